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

//命名跳转节点，示例：
//{
//        "id": "r1",
//        "type": "namedReroute",
//        "configuration": {
//          "isInput": true,
//          "name": "toBoss"
//        }
//  }
import (
	"sort"

	"github.com/rulego/flowgraph/api/types"
	"github.com/rulego/flowgraph/utils/maps"
)

const (
	// NamedRerouteType 节点类型
	NamedRerouteType = "namedReroute"
	// TargetNodesKey 配置中预计算的目标节点
	TargetNodesKey = "targetNodes"
	colorKey       = "color"
	defaultColor   = "#000000"
)

// 注册节点
func init() {
	Registry.Add(&NamedRerouteNode{})
}

// NamedRerouteConfiguration 节点配置
type NamedRerouteConfiguration struct {
	//true: 输入端，false: 输出端
	IsInput bool
	//跳转名称
	Name string
	//编辑器颜色，输出端继承输入端颜色
	Color string
	//同名输出端节点ID，由 UpdateReroutes 生成
	TargetNodes []string
}

// NamedRerouteNode 命名跳转节点
// NamedRerouteNode links same named input and output markers without wired edges.
// Triggering an input marker force finishes every linked output marker, which then
// fires its own wired output.
type NamedRerouteNode struct {
	//节点配置
	Config NamedRerouteConfiguration
}

// Type 组件类型
func (x *NamedRerouteNode) Type() string {
	return NamedRerouteType
}

func (x *NamedRerouteNode) New() types.Node {
	return &NamedRerouteNode{Config: NamedRerouteConfiguration{IsInput: true}}
}

func (x *NamedRerouteNode) Category() string {
	return "route"
}

// Init 初始化
func (x *NamedRerouteNode) Init(config types.Config, configuration types.Configuration) error {
	return maps.Map2Struct(configuration, &x.Config)
}

func (x *NamedRerouteNode) InputPins() []types.Pin {
	if x.Config.IsInput {
		return types.NewPins(types.DefaultInputPin)
	}
	return nil
}

func (x *NamedRerouteNode) OutputPins() []types.Pin {
	if x.Config.IsInput {
		return nil
	}
	return types.NewPins(types.DefaultOutputPin)
}

func (x *NamedRerouteNode) Reentrant() bool {
	return true
}

func (x *NamedRerouteNode) ExecuteInput(ctx types.NodeContext, pinName string) {
	if !x.Config.IsInput || x.Config.Name == "" {
		ctx.Finish()
		return
	}
	instance := ctx.Instance()
	def, _ := ctx.Subsystem().AssetDef(instance.AssetId())
	for _, targetId := range x.Config.TargetNodes {
		target, ok := instance.FindNode(targetId)
		if !ok || target.NodeType() != NamedRerouteType {
			continue
		}
		//目标的名称或方向可能已变化
		if def != nil && !isOutputReroute(def, targetId, x.Config.Name) {
			continue
		}
		target.TriggerFirstOutput(true)
	}
	ctx.Finish()
}

func isOutputReroute(def *types.FlowAssetDef, nodeId string, name string) bool {
	nodeDef, ok := def.Node(nodeId)
	if !ok {
		return false
	}
	var c NamedRerouteConfiguration
	if err := maps.Map2Struct(nodeDef.Configuration, &c); err != nil {
		return false
	}
	return !c.IsInput && c.Name == name
}

func (x *NamedRerouteNode) Cleanup(ctx types.NodeContext) {
}

// Destroy 销毁
func (x *NamedRerouteNode) Destroy() {
}

// UpdateReroutes links every input reroute to the output reroutes sharing its name and
// stores the ids in the input's targetNodes. Outputs take the color of their input.
// Reroutes without a name lose their targets.
func UpdateReroutes(def *types.FlowAssetDef) {
	if def == nil {
		return
	}
	type reroute struct {
		def    *types.NodeDef
		config NamedRerouteConfiguration
	}
	byName := make(map[string][]reroute)
	var names []string
	for _, nodeDef := range def.NodesOfType(NamedRerouteType) {
		r := reroute{def: nodeDef, config: NamedRerouteConfiguration{IsInput: true}}
		_ = maps.Map2Struct(nodeDef.Configuration, &r.config)
		if nodeDef.Configuration == nil {
			nodeDef.Configuration = make(types.Configuration)
		}
		delete(nodeDef.Configuration, TargetNodesKey)
		if r.config.Name == "" {
			continue
		}
		if _, ok := byName[r.config.Name]; !ok {
			names = append(names, r.config.Name)
		}
		byName[r.config.Name] = append(byName[r.config.Name], r)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, in := range byName[name] {
			if !in.config.IsInput {
				continue
			}
			color := in.config.Color
			if color == "" {
				color = defaultColor
			}
			targets := make([]string, 0)
			for _, out := range byName[name] {
				if out.config.IsInput || out.def == in.def {
					continue
				}
				out.def.Configuration[colorKey] = color
				targets = append(targets, out.def.Id)
			}
			in.def.Configuration[TargetNodesKey] = targets
		}
	}
}
