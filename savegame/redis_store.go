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
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	rd "github.com/go-redis/redis/v9"

	"github.com/rulego/flowgraph/api/types"
)

const (
	saveKey    = "SAVE"
	slotsKey   = "SLOTS"
	headerField = "_header"
	//默认 key 前缀
	defaultNamespace = "flowgraph"
)

var _ types.SaveStore = (*RedisStore)(nil)

// RedisStore 存档保存在 redis hash 中
// Each slot is one hash <namespace>:SAVE:<slot> with a header field and one field per
// instance record. The set <namespace>:SLOTS lists the slots.
type RedisStore struct {
	redisClient rd.UniversalClient
	namespace   string
	logger      types.Logger
}

// NewRedisStore connects to config.Addrs, retrying until config.ConnectTimeout elapses.
func NewRedisStore(ctx context.Context, config Config, logger types.Logger) (*RedisStore, error) {
	client := rd.NewUniversalClient(&rd.UniversalOptions{
		Addrs: config.Addrs,
	})
	s := NewRedisStoreWithClient(client, config.Namespace, logger)
	if err := connect(ctx, config.ConnectTimeout, func() error {
		return client.Ping(ctx).Err()
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %v: %w", config.Addrs, err)
	}
	return s, nil
}

// NewRedisStoreWithClient uses an existing client.
func NewRedisStoreWithClient(client rd.UniversalClient, namespace string, logger types.Logger) *RedisStore {
	if namespace == "" {
		namespace = defaultNamespace
	}
	return &RedisStore{redisClient: client, namespace: namespace, logger: types.NewLogger(logger)}
}

func (s *RedisStore) getNamespaceKey(args ...string) string {
	return fmt.Sprintf("%s:%s", s.namespace, strings.Join(args, ":"))
}

func (s *RedisStore) Save(ctx context.Context, game *types.SaveGame) error {
	if err := checkSlot(game.Slot); err != nil {
		return err
	}
	h, err := json.Marshal(newHeader(game))
	if err != nil {
		return err
	}
	values := []string{headerField, string(h)}
	for _, record := range game.Instances {
		data, err := encodeRecord(record)
		if err != nil {
			return err
		}
		values = append(values, record.InstanceName, string(data))
	}
	key := s.getNamespaceKey(saveKey, game.Slot)
	_, err = s.redisClient.TxPipelined(ctx, func(pipe rd.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, values)
		pipe.SAdd(ctx, s.getNamespaceKey(slotsKey), game.Slot)
		return nil
	})
	if err != nil {
		s.logger.Errorf("error in saving game slot=%s: %v", game.Slot, err)
		return err
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, slot string) (*types.SaveGame, error) {
	fields, err := s.redisClient.HGetAll(ctx, s.getNamespaceKey(saveKey, slot)).Result()
	if err != nil {
		s.logger.Errorf("error in loading game slot=%s: %v", slot, err)
		return nil, err
	}
	raw, ok := fields[headerField]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrSaveNotFound, slot)
	}
	var h header
	if err := json.Unmarshal([]byte(raw), &h); err != nil {
		return nil, err
	}
	game := &types.SaveGame{Slot: h.Slot, SavedAt: h.SavedAt}
	for _, name := range h.Instances {
		data, ok := fields[name]
		if !ok {
			return nil, fmt.Errorf("save %s: instance %s is missing", slot, name)
		}
		record, err := decodeRecord([]byte(data))
		if err != nil {
			return nil, err
		}
		game.Instances = append(game.Instances, record)
	}
	return game, nil
}

func (s *RedisStore) Delete(ctx context.Context, slot string) error {
	n, err := s.redisClient.Del(ctx, s.getNamespaceKey(saveKey, slot)).Result()
	if err != nil {
		return err
	}
	if err := s.redisClient.SRem(ctx, s.getNamespaceKey(slotsKey), slot).Err(); err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", types.ErrSaveNotFound, slot)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	slots, err := s.redisClient.SMembers(ctx, s.getNamespaceKey(slotsKey)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(slots)
	return slots, nil
}

func (s *RedisStore) Close() error {
	return s.redisClient.Close()
}

// connect retries ping with exponential backoff. timeout <= 0 tries once.
func connect(ctx context.Context, timeout time.Duration, ping func() error) error {
	if timeout <= 0 {
		return ping()
	}
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = timeout
	return backoff.Retry(ping, backoff.WithContext(b, ctx))
}
