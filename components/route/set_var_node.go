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

//设置实例变量，示例：
//{
//        "id": "v1",
//        "type": "setVar",
//        "configuration": {
//          "vars": {
//            "gold": "vars.gold + 10",
//            "met": "true"
//          }
//        }
//  }
import (
	"fmt"
	"sort"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/rulego/flowgraph/api/types"
	"github.com/rulego/flowgraph/components/base"
	"github.com/rulego/flowgraph/utils/maps"
)

// 注册节点
func init() {
	Registry.Add(&SetVarNode{})
}

// SetVarConfiguration 节点配置
type SetVarConfiguration struct {
	//变量名 -> expr表达式
	Vars map[string]string
}

// SetVarNode 使用expr表达式计算并写入实例变量，按变量名顺序求值
type SetVarNode struct {
	//节点配置
	Config   SetVarConfiguration
	keys     []string
	programs map[string]*vm.Program
}

// Type 组件类型
func (x *SetVarNode) Type() string {
	return "setVar"
}

func (x *SetVarNode) New() types.Node {
	return &SetVarNode{}
}

func (x *SetVarNode) Category() string {
	return "route"
}

// Init 初始化
func (x *SetVarNode) Init(config types.Config, configuration types.Configuration) error {
	if err := maps.Map2Struct(configuration, &x.Config); err != nil {
		return err
	}
	x.programs = make(map[string]*vm.Program, len(x.Config.Vars))
	x.keys = x.keys[:0]
	for k, v := range x.Config.Vars {
		program, err := expr.Compile(v, expr.AllowUndefinedVariables())
		if err != nil {
			return fmt.Errorf("var %s: %w", k, err)
		}
		x.programs[k] = program
		x.keys = append(x.keys, k)
	}
	sort.Strings(x.keys)
	return nil
}

func (x *SetVarNode) Reentrant() bool {
	return true
}

func (x *SetVarNode) ExecuteInput(ctx types.NodeContext, pinName string) {
	vars := ctx.Instance().Vars()
	for _, k := range x.keys {
		out, err := vm.Run(x.programs[k], base.NodeUtils.GetEnv(ctx, pinName))
		if err != nil {
			ctx.LogError("set var %s: %v", k, err)
			continue
		}
		vars[k] = out
	}
	ctx.TriggerFirstOutput(true)
}

func (x *SetVarNode) Cleanup(ctx types.NodeContext) {
}

// Destroy 销毁
func (x *SetVarNode) Destroy() {
}
