/*
 * Copyright 2024 The RuleGo Authors.
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

package test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rulego/flowgraph/api/types"
	"github.com/rulego/flowgraph/engine"
	"github.com/rulego/flowgraph/world"
)

// Flow 测试用流程子系统，由确定性定时器驱动
type Flow struct {
	Subsystem *engine.Subsystem
	Timers    *world.TimerManager
	Assets    *engine.MemoryLoader
	Debug     *DebugRecorder
}

// NewFlow creates a subsystem over defs. Every def must pass validation.
func NewFlow(t testing.TB, defs ...*types.FlowAssetDef) *Flow {
	t.Helper()
	f := NewFlowUnchecked(t, defs...)
	for _, def := range defs {
		require.Nil(t, f.Subsystem.Validate(def), def.Asset.Id)
	}
	return f
}

// NewFlowUnchecked creates a subsystem over defs without validating them.
func NewFlowUnchecked(t testing.TB, defs ...*types.FlowAssetDef) *Flow {
	t.Helper()
	f := &Flow{
		Timers: world.NewTimerManager(),
		Assets: engine.NewMemoryLoader(),
		Debug:  &DebugRecorder{},
	}
	f.Subsystem = engine.NewSubsystem(f.Assets,
		types.WithTimers(f.Timers),
		types.WithLogger(types.NopLogger()),
		types.WithOnDebug(f.Debug.Record),
	)
	for _, def := range defs {
		require.Nil(t, f.Assets.Put(def))
	}
	return f
}

// Start starts assetId as the root flow of ownerId.
func (f *Flow) Start(t testing.TB, ownerId string, assetId string) *engine.FlowInstance {
	t.Helper()
	x, err := f.Subsystem.StartRootFlow(ownerId, assetId, "")
	require.Nil(t, err)
	return x
}

// Tick advances the clock by seconds.
func (f *Flow) Tick(seconds float64) {
	f.Timers.Tick(world.Seconds(seconds))
}

// Asset 创建资产定义
func Asset(id string, nodes []*types.NodeDef, connections ...types.Connection) *types.FlowAssetDef {
	return &types.FlowAssetDef{
		Asset:    types.AssetInfo{Id: id, Name: id},
		Metadata: types.AssetMetadata{Nodes: nodes, Connections: connections},
	}
}

// Nodes collects node definitions.
func Nodes(nodes ...*types.NodeDef) []*types.NodeDef {
	return nodes
}

// Node 创建调试模式的节点定义
func Node(id string, nodeType string, configuration types.Configuration) *types.NodeDef {
	return &types.NodeDef{Id: id, Type: nodeType, DebugMode: true, Configuration: configuration}
}

// Connect 创建连线
func Connect(fromId string, fromPin string, toId string, toPin string) types.Connection {
	return types.Connection{FromId: fromId, FromPin: fromPin, ToId: toId, ToPin: toPin}
}

// DebugRecorder 记录节点调试事件
type DebugRecorder struct {
	Events []types.DebugEvent
}

func (r *DebugRecorder) Record(event types.DebugEvent) {
	r.Events = append(r.Events, event)
}

// Outputs returns "nodeId.pin" for every output fired, in order.
func (r *DebugRecorder) Outputs() []string {
	var out []string
	for _, e := range r.Events {
		if e.FlowType == types.Out {
			out = append(out, e.NodeId+"."+e.Pin)
		}
	}
	return out
}

// Inputs returns "nodeId.pin" for every input received, in order.
func (r *DebugRecorder) Inputs() []string {
	var out []string
	for _, e := range r.Events {
		if e.FlowType == types.In {
			out = append(out, e.NodeId+"."+e.Pin)
		}
	}
	return out
}

// Count returns how many times nodeId fired pin.
func (r *DebugRecorder) Count(nodeId string, pin string) int {
	n := 0
	for _, e := range r.Events {
		if e.FlowType == types.Out && e.NodeId == nodeId && e.Pin == pin {
			n++
		}
	}
	return n
}

// Errors returns the errors logged by nodes.
func (r *DebugRecorder) Errors() []string {
	var out []string
	for _, e := range r.Events {
		if e.Err != "" {
			out = append(out, e.Err)
		}
	}
	return out
}

// Reset 清空记录
func (r *DebugRecorder) Reset() {
	r.Events = nil
}
