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

//结束节点，示例：
//{
//        "id": "end",
//        "type": "finish"
//  }
import (
	"github.com/rulego/flowgraph/api/types"
	"github.com/rulego/flowgraph/components/base"
)

// 注册节点
func init() {
	Registry.Add(&FinishNode{})
}

// FinishNode 流程结束节点
// Completing it finishes the owning instance. A sub flow then finishes its owning
// sub graph node.
type FinishNode struct {
	base.Noop
}

// Type 组件类型
func (x *FinishNode) Type() string {
	return "finish"
}

func (x *FinishNode) New() types.Node {
	return &FinishNode{}
}

func (x *FinishNode) Category() string {
	return "graph"
}

// Init 初始化
func (x *FinishNode) Init(config types.Config, configuration types.Configuration) error {
	return nil
}

func (x *FinishNode) InputPins() []types.Pin {
	return types.NewPins(types.DefaultInputPin)
}

func (x *FinishNode) OutputPins() []types.Pin {
	return nil
}

func (x *FinishNode) IsEndNode() bool {
	return true
}

func (x *FinishNode) ExecuteInput(ctx types.NodeContext, pinName string) {
	ctx.Finish()
}
