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

// Package test provides fixtures for node and flow tests.
package test

import (
	"fmt"

	"github.com/rulego/flowgraph/api/types"
	"github.com/rulego/flowgraph/world"
)

var _ types.NodeContext = (*NodeTestContext)(nil)

// Triggered records one TriggerOutput call.
type Triggered struct {
	Pin    string
	Finish bool
}

// NodeTestContext
// 只为测试单节点，临时创建的上下文
// 无法把多个节点组成流程，输出通过 Outputs 查看
type NodeTestContext struct {
	Id        string
	Node      types.Node
	config    types.Config
	timers    *world.TimerManager
	state     types.NodeState
	instance  types.FlowInstance
	subsystem types.Subsystem
	outputs   []Triggered
	errors    []string
	//输出端口，TriggerFirstOutput 使用第一个
	OutputPins []types.Pin
	//每次触发输出时回调
	OnTrigger func(pin string, finish bool)
}

// NewNodeContext creates a context for node driven by a fresh TimerManager.
func NewNodeContext(config types.Config, node types.Node) *NodeTestContext {
	ctx := &NodeTestContext{
		Id:     "node",
		Node:   node,
		config: config,
		timers: world.NewTimerManager(),
	}
	if p, ok := node.(types.PinsProvider); ok {
		ctx.OutputPins = p.OutputPins()
	} else {
		ctx.OutputPins = types.NewPins(types.DefaultOutputPin)
	}
	if c, ok := node.(types.ContextPinsProvider); ok {
		_, outputs := c.ContextPins(nil)
		ctx.OutputPins = append(ctx.OutputPins, outputs...)
	}
	return ctx
}

// WithInstance sets the instance returned by Instance.
func (ctx *NodeTestContext) WithInstance(instance types.FlowInstance) *NodeTestContext {
	ctx.instance = instance
	return ctx
}

// WithSubsystem sets the subsystem returned by Subsystem.
func (ctx *NodeTestContext) WithSubsystem(subsystem types.Subsystem) *NodeTestContext {
	ctx.subsystem = subsystem
	return ctx
}

// Execute activates the node and delivers an input like the engine does.
func (ctx *NodeTestContext) Execute(pinName string) {
	if ctx.state == types.Completed {
		if r, ok := ctx.Node.(types.Reentrant); !ok || !r.Reentrant() {
			return
		}
	}
	ctx.state = types.Active
	ctx.Node.ExecuteInput(ctx, pinName)
}

// Load activates the node and restores a payload saved by the node.
func (ctx *NodeTestContext) Load(payload types.Payload) error {
	ctx.state = types.Active
	if p, ok := ctx.Node.(types.Persistent); ok {
		return p.OnLoad(ctx, payload)
	}
	return nil
}

// Tick advances the timers.
func (ctx *NodeTestContext) Tick(seconds float64) {
	ctx.timers.Tick(world.Seconds(seconds))
}

func (ctx *NodeTestContext) TimerManager() *world.TimerManager {
	return ctx.timers
}

// Outputs returns every output triggered so far.
func (ctx *NodeTestContext) Outputs() []Triggered {
	return append([]Triggered(nil), ctx.outputs...)
}

// OutputPinNames returns the triggered pin names in order.
func (ctx *NodeTestContext) OutputPinNames() []string {
	var names []string
	for _, o := range ctx.outputs {
		names = append(names, o.Pin)
	}
	return names
}

// Count returns how many times pin was triggered.
func (ctx *NodeTestContext) Count(pin string) int {
	n := 0
	for _, o := range ctx.outputs {
		if o.Pin == pin {
			n++
		}
	}
	return n
}

func (ctx *NodeTestContext) Errors() []string {
	return ctx.errors
}

func (ctx *NodeTestContext) NodeId() string {
	return ctx.Id
}

func (ctx *NodeTestContext) NodeType() string {
	return ctx.Node.Type()
}

func (ctx *NodeTestContext) State() types.NodeState {
	return ctx.state
}

func (ctx *NodeTestContext) TriggerOutput(pinName string, finish bool) {
	if finish {
		ctx.Finish()
	} else if ctx.state == types.NeverActivated {
		ctx.state = types.Active
	}
	ctx.outputs = append(ctx.outputs, Triggered{Pin: pinName, Finish: finish})
	if ctx.OnTrigger != nil {
		ctx.OnTrigger(pinName, finish)
	}
}

func (ctx *NodeTestContext) TriggerFirstOutput(finish bool) {
	if len(ctx.OutputPins) > 0 {
		ctx.TriggerOutput(ctx.OutputPins[0].Name, finish)
	} else if finish {
		ctx.Finish()
	}
}

func (ctx *NodeTestContext) Finish() {
	if ctx.state == types.Completed {
		return
	}
	ctx.state = types.Completed
	ctx.Node.Cleanup(ctx)
}

func (ctx *NodeTestContext) ForceFinish() {
	if f, ok := ctx.Node.(types.ForceFinisher); ok {
		f.ForceFinishNode(ctx)
		return
	}
	ctx.TriggerFirstOutput(true)
}

func (ctx *NodeTestContext) LogError(format string, args ...interface{}) {
	ctx.errors = append(ctx.errors, fmt.Sprintf(format, args...))
}

func (ctx *NodeTestContext) Instance() types.FlowInstance {
	return ctx.instance
}

func (ctx *NodeTestContext) Subsystem() types.Subsystem {
	return ctx.subsystem
}

func (ctx *NodeTestContext) Timers() types.TimerService {
	return ctx.timers
}

func (ctx *NodeTestContext) Logger() types.Logger {
	return ctx.config.Logger
}

func (ctx *NodeTestContext) Config() types.Config {
	return ctx.config
}

// CreateAndInitNode 创建并初始化一个节点实例
func CreateAndInitNode(targetNodeType string, initConfig types.Configuration, registry *types.SafeComponentSlice) (types.Node, error) {
	var nodeFactory types.Node
	for _, component := range registry.Components() {
		if component.Type() == targetNodeType {
			nodeFactory = component
		}
	}
	if nodeFactory == nil {
		return nil, fmt.Errorf("%w: %s", types.ErrNodeTypeNotFound, targetNodeType)
	}
	node := nodeFactory.New()
	err := node.Init(types.NewConfig(types.WithLogger(types.NopLogger())), initConfig)
	return node, err
}
