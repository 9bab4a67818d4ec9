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

package route

import (
	"github.com/rulego/flowgraph/api/types"
	"github.com/rulego/flowgraph/components/base"
)

// 注册节点
func init() {
	Registry.Add(&PostStartNode{})
}

// PostStartNode 实例初始化后的下一帧触发输出
// PostStartNode fires its output on the first tick after the instance is initialized,
// unless the node was activated in between, for example by loading a save game.
type PostStartNode struct {
	base.Noop
}

// Type 组件类型
func (x *PostStartNode) Type() string {
	return "postStart"
}

func (x *PostStartNode) New() types.Node {
	return &PostStartNode{}
}

func (x *PostStartNode) Category() string {
	return "route"
}

func (x *PostStartNode) Init(config types.Config, configuration types.Configuration) error {
	return nil
}

func (x *PostStartNode) InputPins() []types.Pin {
	return nil
}

func (x *PostStartNode) OutputPins() []types.Pin {
	return types.NewPins(types.DefaultOutputPin)
}

func (x *PostStartNode) InitializeInstance(ctx types.NodeContext) {
	ctx.Timers().ScheduleNextTick(func() {
		if ctx.State() == types.NeverActivated && !ctx.Instance().IsFinished() {
			ctx.TriggerFirstOutput(false)
		}
	})
}

func (x *PostStartNode) ExecuteInput(ctx types.NodeContext, pinName string) {
}
