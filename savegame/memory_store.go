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
	"sync"

	"github.com/rulego/flowgraph/api/types"
)

var _ types.SaveStore = (*MemoryStore)(nil)

// MemoryStore 内存存档
// MemoryStore keeps encoded copies, so callers never share records with the store.
type MemoryStore struct {
	games map[string][]byte
	sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{games: make(map[string][]byte)}
}

func (s *MemoryStore) Save(ctx context.Context, game *types.SaveGame) error {
	if err := checkSlot(game.Slot); err != nil {
		return err
	}
	data, err := json.Marshal(game)
	if err != nil {
		return err
	}
	s.Lock()
	defer s.Unlock()
	s.games[game.Slot] = data
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, slot string) (*types.SaveGame, error) {
	s.RLock()
	data, ok := s.games[slot]
	s.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrSaveNotFound, slot)
	}
	var game types.SaveGame
	if err := json.Unmarshal(data, &game); err != nil {
		return nil, err
	}
	return &game, nil
}

func (s *MemoryStore) Delete(ctx context.Context, slot string) error {
	s.Lock()
	defer s.Unlock()
	if _, ok := s.games[slot]; !ok {
		return fmt.Errorf("%w: %s", types.ErrSaveNotFound, slot)
	}
	delete(s.games, slot)
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	s.RLock()
	defer s.RUnlock()
	slots := make([]string, 0, len(s.games))
	for slot := range s.games {
		slots = append(slots, slot)
	}
	sort.Strings(slots)
	return slots, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
