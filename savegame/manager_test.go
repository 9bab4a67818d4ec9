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

package savegame_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulego/flowgraph/api/types"
	"github.com/rulego/flowgraph/savegame"
	"github.com/rulego/flowgraph/test"
	"github.com/rulego/flowgraph/world"
)

func trapAsset() *types.FlowAssetDef {
	return test.Asset("trap",
		test.Nodes(
			test.Node("start", "start", nil),
			test.Node("d1", "delay", types.Configuration{"periodInSeconds": 2}),
			test.Node("end", "finish", nil),
		),
		test.Connect("start", "Out", "d1", "In"),
		test.Connect("d1", "Completed", "end", "In"),
	)
}

func TestManager(t *testing.T) {
	ctx := context.Background()
	store := savegame.NewMemoryStore()

	f := test.NewFlow(t, trapAsset())
	f.Start(t, "trap1", "trap")
	f.Tick(0.5)

	m := savegame.NewManager(store, f.Subsystem, nil)
	game, err := m.Save(ctx, "quick")
	require.Nil(t, err)
	assert.Equal(t, 1, len(game.Instances))
	slots, err := m.List(ctx)
	require.Nil(t, err)
	assert.Equal(t, []string{"quick"}, slots)

	_, err = m.Save(ctx, "")
	assert.NotNil(t, err)

	//在新的子系统恢复
	f2 := test.NewFlow(t, trapAsset())
	m2 := savegame.NewManager(store, f2.Subsystem, nil)
	_, err = m2.Load(ctx, "quick")
	require.Nil(t, err)
	x, ok := f2.Subsystem.RootFlow("trap1")
	require.True(t, ok)
	d1, _ := x.Node("d1")
	assert.Equal(t, types.Active, d1.State())

	f2.Tick(1.4)
	assert.Equal(t, types.Active, d1.State())
	f2.Tick(0.2)
	assert.Equal(t, types.Completed, d1.State())
	assert.True(t, x.IsFinished())

	_, err = m2.Load(ctx, "missing")
	assert.ErrorIs(t, err, types.ErrSaveNotFound)

	require.Nil(t, m2.Delete(ctx, "quick"))
	assert.ErrorIs(t, m2.Delete(ctx, "quick"), types.ErrSaveNotFound)
}

func TestManagerWithLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := test.NewFlow(t, trapAsset())
	loop := world.NewLoop(f.Timers, 0, types.NopLogger())
	done := make(chan struct{})
	go func() {
		loop.Run(ctx, 0)
		close(done)
	}()

	require.Nil(t, loop.Do(ctx, func() error {
		_, err := f.Subsystem.StartRootFlow("trap1", "trap", "")
		return err
	}))
	m := savegame.NewManager(savegame.NewMemoryStore(), f.Subsystem, loop)
	m.Autosave(ctx, "auto")()
	game, err := m.Store().Load(ctx, "auto")
	require.Nil(t, err)
	assert.Equal(t, "trap1", game.Instances[0].OwnerId)

	cancel()
	<-done
	_, err = m.Save(context.Background(), "late")
	assert.ErrorIs(t, err, world.ErrLoopStopped)
}
