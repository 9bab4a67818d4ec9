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

package graph

//开始节点，示例：
//{
//        "id": "start",
//        "type": "start"
//  }
import (
	"github.com/rulego/flowgraph/api/types"
	"github.com/rulego/flowgraph/components/base"
)

// 注册节点
func init() {
	Registry.Add(&StartNode{})
}

// StartNode 流程开始节点，没有输入端口
type StartNode struct {
	base.Noop
}

// Type 组件类型
func (x *StartNode) Type() string {
	return "start"
}

func (x *StartNode) New() types.Node {
	return &StartNode{}
}

func (x *StartNode) Category() string {
	return "graph"
}

// Init 初始化
func (x *StartNode) Init(config types.Config, configuration types.Configuration) error {
	return nil
}

func (x *StartNode) InputPins() []types.Pin {
	return nil
}

func (x *StartNode) OutputPins() []types.Pin {
	return types.NewPins(types.DefaultOutputPin)
}

func (x *StartNode) IsStartNode() bool {
	return true
}

func (x *StartNode) ExecuteInput(ctx types.NodeContext, pinName string) {
	ctx.TriggerFirstOutput(true)
}
