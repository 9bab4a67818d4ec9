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

package action_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulego/flowgraph/api/types"
	"github.com/rulego/flowgraph/components/action"
	"github.com/rulego/flowgraph/test"
)

func newDelay(t *testing.T, configuration types.Configuration, opts ...types.Option) (*action.DelayNode, *test.NodeTestContext) {
	t.Helper()
	opts = append(opts, types.WithLogger(types.NopLogger()))
	config := types.NewConfig(opts...)
	node := &action.DelayNode{}
	node = node.New().(*action.DelayNode)
	require.Nil(t, node.Init(config, configuration))
	return node, test.NewNodeContext(config, node)
}

func TestDelayNode(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		node, _ := newDelay(t, types.Configuration{})
		assert.Equal(t, 1.0, node.Config.PeriodInSeconds)
	})

	t.Run("Completed", func(t *testing.T) {
		node, ctx := newDelay(t, types.Configuration{"periodInSeconds": 1.5})
		ctx.Execute(types.DefaultInputPin)
		assert.Equal(t, "1.50", node.Status())
		ctx.Tick(1)
		assert.Len(t, ctx.Outputs(), 0)
		assert.Equal(t, "0.50", node.Status())
		ctx.Tick(0.6)
		assert.Equal(t, []test.Triggered{{Pin: action.CompletedPin, Finish: true}}, ctx.Outputs())
		assert.Equal(t, types.Completed, ctx.State())
		assert.Equal(t, "", node.Status())
	})

	t.Run("AlreadyActive", func(t *testing.T) {
		_, ctx := newDelay(t, types.Configuration{"periodInSeconds": 1})
		ctx.Execute(types.DefaultInputPin)
		ctx.Execute(types.DefaultInputPin)
		assert.Equal(t, []string{"Timer already active"}, ctx.Errors())
		ctx.Tick(1.1)
		assert.Equal(t, 1, ctx.Count(action.CompletedPin))
	})

	t.Run("Skip", func(t *testing.T) {
		_, ctx := newDelay(t, types.Configuration{"periodInSeconds": 1})
		ctx.Execute(types.DefaultInputPin)
		ctx.Execute(action.SkipPin)
		assert.Equal(t, []test.Triggered{{Pin: action.SkippedPin, Finish: true}}, ctx.Outputs())
		ctx.Tick(2)
		assert.Equal(t, 0, ctx.Count(action.CompletedPin))
		assert.Equal(t, 0, ctx.TimerManager().Pending())
	})

	t.Run("ZeroPeriodNextTick", func(t *testing.T) {
		_, ctx := newDelay(t, types.Configuration{"periodInSeconds": 0})
		ctx.Execute(types.DefaultInputPin)
		assert.Len(t, ctx.Outputs(), 0)
		ctx.Tick(0)
		assert.Equal(t, 1, ctx.Count(action.CompletedPin))
	})

	t.Run("Pattern", func(t *testing.T) {
		_, ctx := newDelay(t, types.Configuration{
			"periodInSeconds":        5,
			"periodInSecondsPattern": "${global.wait}",
		}, types.WithProperties(map[string]interface{}{"wait": 0.5}))
		ctx.Execute(types.DefaultInputPin)
		ctx.Tick(0.6)
		assert.Equal(t, 1, ctx.Count(action.CompletedPin))
	})

	t.Run("BadPattern", func(t *testing.T) {
		_, ctx := newDelay(t, types.Configuration{"periodInSecondsPattern": "${global.missing}"})
		ctx.Execute(types.DefaultInputPin)
		assert.Len(t, ctx.Errors(), 1)
		assert.Equal(t, types.Completed, ctx.State())
		assert.Len(t, ctx.Outputs(), 0)
	})

	t.Run("Cleanup", func(t *testing.T) {
		node, ctx := newDelay(t, types.Configuration{"periodInSeconds": 1})
		ctx.Execute(types.DefaultInputPin)
		node.Cleanup(ctx)
		node.Cleanup(ctx)
		ctx.Tick(2)
		assert.Len(t, ctx.Outputs(), 0)
	})
}

func TestDelaySaveLoad(t *testing.T) {
	node, ctx := newDelay(t, types.Configuration{"periodInSeconds": 1})
	payload, err := node.OnSave(ctx)
	require.Nil(t, err)
	assert.Nil(t, payload)

	ctx.Execute(types.DefaultInputPin)
	ctx.Tick(0.4)
	payload, err = node.OnSave(ctx)
	require.Nil(t, err)
	saved, ok := payload.(action.DelayPayload)
	require.True(t, ok)
	assert.InDelta(t, 0.6, saved.RemainingTime, 1e-6)

	loaded, loadedCtx := newDelay(t, types.Configuration{"periodInSeconds": 1})
	require.Nil(t, loadedCtx.Load(types.Payload{"remainingTime": saved.RemainingTime}))
	assert.Equal(t, "0.60", loaded.Status())
	loadedCtx.Tick(0.5)
	assert.Len(t, loadedCtx.Outputs(), 0)
	loadedCtx.Tick(0.2)
	assert.Equal(t, 1, loadedCtx.Count(action.CompletedPin))
}

func TestDelayLoadReplacesTimer(t *testing.T) {
	node, ctx := newDelay(t, types.Configuration{"periodInSeconds": 5})
	ctx.Execute(types.DefaultInputPin)
	require.Nil(t, ctx.Load(types.Payload{"remainingTime": 0.3}))
	assert.Equal(t, 1, ctx.TimerManager().Pending())
	assert.Equal(t, "0.30", node.Status())

	ctx.Tick(0.4)
	assert.Equal(t, 1, ctx.Count(action.CompletedPin))
	ctx.Tick(10)
	assert.Equal(t, 1, ctx.Count(action.CompletedPin))
	assert.Equal(t, 0, ctx.TimerManager().Pending())
}
