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
	"fmt"

	"github.com/rulego/flowgraph/api/types"
	"github.com/rulego/flowgraph/engine"
)

// Runner runs fn on the goroutine owning the subsystem. world.Loop implements it.
type Runner interface {
	Do(ctx context.Context, fn func() error) error
}

// DirectRunner runs fn on the calling goroutine, for single threaded use.
type DirectRunner struct{}

func (DirectRunner) Do(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn()
}

// Manager 存档管理
// Manager captures save games on the world loop and persists them off the loop.
type Manager struct {
	store     types.SaveStore
	subsystem *engine.Subsystem
	runner    Runner
	logger    types.Logger
}

// NewManager creates a manager. A nil runner runs on the calling goroutine.
func NewManager(store types.SaveStore, subsystem *engine.Subsystem, runner Runner) *Manager {
	if runner == nil {
		runner = DirectRunner{}
	}
	return &Manager{
		store:     store,
		subsystem: subsystem,
		runner:    runner,
		logger:    types.NewLogger(subsystem.Config().Logger),
	}
}

func (m *Manager) Store() types.SaveStore {
	return m.store
}

// Save captures every root flow into slot and stores it.
// A capture with node errors is still stored, the error is returned.
func (m *Manager) Save(ctx context.Context, slot string) (*types.SaveGame, error) {
	if err := checkSlot(slot); err != nil {
		return nil, err
	}
	var game *types.SaveGame
	var captureErr error
	if err := m.runner.Do(ctx, func() error {
		game, captureErr = m.subsystem.SaveGame(slot)
		return nil
	}); err != nil {
		return nil, err
	}
	if err := m.store.Save(ctx, game); err != nil {
		return nil, fmt.Errorf("save slot %s: %w", slot, err)
	}
	if captureErr != nil {
		m.logger.Warnf("save slot %s captured with errors: %v", slot, captureErr)
	}
	return game, captureErr
}

// Load reads slot from the store and restores its root flows.
func (m *Manager) Load(ctx context.Context, slot string) (*types.SaveGame, error) {
	game, err := m.store.Load(ctx, slot)
	if err != nil {
		return nil, err
	}
	err = m.runner.Do(ctx, func() error {
		return m.subsystem.LoadGame(game)
	})
	return game, err
}

func (m *Manager) Delete(ctx context.Context, slot string) error {
	return m.store.Delete(ctx, slot)
}

func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Autosave returns a job saving into slot, for cron schedulers.
func (m *Manager) Autosave(ctx context.Context, slot string) func() {
	return func() {
		if _, err := m.Save(ctx, slot); err != nil {
			m.logger.Errorf("autosave slot %s error: %v", slot, err)
		} else {
			m.logger.Debugf("autosave slot %s done", slot)
		}
	}
}
