/*
 * Copyright 2023 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package savegame

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulego/flowgraph/api/types"
)

func sampleGame(slot string) *types.SaveGame {
	return &types.SaveGame{
		Slot:    slot,
		SavedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Instances: []types.InstanceRecord{
			{
				InstanceName: "door_1",
				AssetId:      "door",
				OwnerId:      "door1",
				Vars:         types.Vars{"gold": "42"},
				Nodes: []types.NodeRecord{
					{NodeId: "d1", State: types.Active, Payload: types.Payload{"remaining": 0.5}},
				},
			},
			{
				InstanceName:   "door_1_sub",
				AssetId:        "lock",
				ParentInstance: "door_1",
				ParentNode:     "sub",
				Nodes:          []types.NodeRecord{},
			},
		},
	}
}

// testStore 所有存储实现的通用测试
func testStore(t *testing.T, store types.SaveStore) {
	ctx := context.Background()

	err := store.Save(ctx, &types.SaveGame{})
	assert.NotNil(t, err)

	_, err = store.Load(ctx, "missing")
	assert.ErrorIs(t, err, types.ErrSaveNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "missing"), types.ErrSaveNotFound)

	require.Nil(t, store.Save(ctx, sampleGame("slot-b")))
	require.Nil(t, store.Save(ctx, sampleGame("slot-a")))

	slots, err := store.List(ctx)
	require.Nil(t, err)
	assert.Equal(t, []string{"slot-a", "slot-b"}, slots)

	game, err := store.Load(ctx, "slot-a")
	require.Nil(t, err)
	assert.Equal(t, "slot-a", game.Slot)
	assert.True(t, game.SavedAt.Equal(sampleGame("").SavedAt))
	require.Equal(t, 2, len(game.Instances))
	assert.Equal(t, "door_1", game.Instances[0].InstanceName)
	assert.Equal(t, "door1", game.Instances[0].OwnerId)
	assert.Equal(t, "42", game.Instances[0].Vars["gold"])
	node, ok := game.Instances[0].Node("d1")
	require.True(t, ok)
	assert.Equal(t, types.Active, node.State)
	assert.Equal(t, 0.5, node.Payload["remaining"])
	assert.Equal(t, "door_1", game.Instances[1].ParentInstance)
	assert.Equal(t, 1, len(game.RootInstances()))

	//覆盖
	overwrite := sampleGame("slot-a")
	overwrite.Instances = overwrite.Instances[:1]
	require.Nil(t, store.Save(ctx, overwrite))
	game, err = store.Load(ctx, "slot-a")
	require.Nil(t, err)
	assert.Equal(t, 1, len(game.Instances))

	//修改返回值不影响存储
	game.Instances[0].Vars["gold"] = "0"
	game, err = store.Load(ctx, "slot-a")
	require.Nil(t, err)
	assert.Equal(t, "42", game.Instances[0].Vars["gold"])

	//空存档
	require.Nil(t, store.Save(ctx, &types.SaveGame{Slot: "empty"}))
	game, err = store.Load(ctx, "empty")
	require.Nil(t, err)
	assert.Equal(t, 0, len(game.Instances))

	require.Nil(t, store.Delete(ctx, "slot-a"))
	require.Nil(t, store.Delete(ctx, "slot-b"))
	require.Nil(t, store.Delete(ctx, "empty"))
	_, err = store.Load(ctx, "slot-a")
	assert.ErrorIs(t, err, types.ErrSaveNotFound)
	slots, err = store.List(ctx)
	require.Nil(t, err)
	assert.Equal(t, 0, len(slots))
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	testStore(t, store)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("FLOWGRAPH_REDIS_ADDR")
	if addr == "" {
		addr = "127.0.0.1:6379"
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	store, err := NewRedisStore(ctx, Config{Addrs: []string{addr}, Namespace: "flowgraph_test"}, types.NopLogger())
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	defer store.Close()
	testStore(t, store)
}

func TestSQLStore(t *testing.T) {
	for _, driver := range []string{TypeMysql, TypePostgres} {
		t.Run(driver, func(t *testing.T) {
			dsn := os.Getenv("FLOWGRAPH_" + driver + "_DSN")
			if dsn == "" {
				t.Skipf("FLOWGRAPH_%s_DSN not set", driver)
			}
			store, err := NewSQLStore(context.Background(), driver, Config{Dsn: dsn, Table: "flowgraph_save_test", PoolSize: 2}, types.NopLogger())
			require.Nil(t, err)
			defer store.Close()
			testStore(t, store)
		})
	}
}

func TestNewStore(t *testing.T) {
	store, err := NewStore(context.Background(), Config{}, nil)
	require.Nil(t, err)
	_, ok := store.(*MemoryStore)
	assert.True(t, ok)

	_, err = NewStore(context.Background(), Config{Type: "mongo"}, nil)
	assert.NotNil(t, err)

	_, err = NewSQLStore(context.Background(), "sqlite", Config{}, nil)
	assert.NotNil(t, err)
}

func TestDialect(t *testing.T) {
	mysql := dialect{driver: TypeMysql}
	postgres := dialect{driver: TypePostgres}
	assert.Equal(t, "?, ?, ?", mysql.placeholders(1, 3))
	assert.Equal(t, "$2, $3", postgres.placeholders(2, 2))
	assert.Equal(t, "mysql", mysql.sqlDriver())
	assert.Equal(t, "postgres", postgres.sqlDriver())

	s := NewSQLStoreWithDB(nil, TypePostgres, "", nil)
	assert.Equal(t, "INSERT INTO flowgraph_save (slot, seq, instance_name, saved_at, record) VALUES ($1, $2, $3, $4, $5)", s.insertQuery())
}
