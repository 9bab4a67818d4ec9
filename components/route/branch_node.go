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

//条件分支节点，示例：
//{
//        "id": "b1",
//        "type": "branch",
//        "configuration": {
//          "expr": "vars.gold >= 100"
//        }
//  }
import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/rulego/flowgraph/api/types"
	"github.com/rulego/flowgraph/components/base"
	"github.com/rulego/flowgraph/utils/maps"
)

const (
	TruePin  = "True"
	FalsePin = "False"
)

// 注册节点
func init() {
	Registry.Add(&BranchNode{})
}

// BranchConfiguration 节点配置
type BranchConfiguration struct {
	// 表达式
	Expr string
}

// BranchNode 使用expr表达式选择输出
// 表达式返回true触发True端口，否则触发False端口，执行失败记录错误并触发False端口。
// 通过 vars 访问实例变量，例如 vars.gold >= 100
// 通过 global 访问全局配置，pin 访问输入端口名
type BranchNode struct {
	//节点配置
	Config  BranchConfiguration
	program *vm.Program
}

// Type 组件类型
func (x *BranchNode) Type() string {
	return "branch"
}

func (x *BranchNode) New() types.Node {
	return &BranchNode{}
}

func (x *BranchNode) Category() string {
	return "route"
}

// Init 初始化
func (x *BranchNode) Init(config types.Config, configuration types.Configuration) error {
	if err := maps.Map2Struct(configuration, &x.Config); err != nil {
		return err
	}
	if x.Config.Expr == "" {
		return fmt.Errorf("expr is empty")
	}
	program, err := expr.Compile(x.Config.Expr, expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return err
	}
	x.program = program
	return nil
}

func (x *BranchNode) OutputPins() []types.Pin {
	return types.NewPins(TruePin, FalsePin)
}

func (x *BranchNode) InputPins() []types.Pin {
	return types.NewPins(types.DefaultInputPin)
}

func (x *BranchNode) Reentrant() bool {
	return true
}

func (x *BranchNode) ExecuteInput(ctx types.NodeContext, pinName string) {
	env := base.NodeUtils.GetEnv(ctx, pinName)
	out, err := vm.Run(x.program, env)
	if err != nil {
		ctx.LogError("branch %s: %v", x.Config.Expr, err)
		ctx.TriggerOutput(FalsePin, true)
		return
	}
	if result, ok := out.(bool); ok && result {
		ctx.TriggerOutput(TruePin, true)
	} else {
		ctx.TriggerOutput(FalsePin, true)
	}
}

func (x *BranchNode) Cleanup(ctx types.NodeContext) {
}

// Destroy 销毁
func (x *BranchNode) Destroy() {
}
