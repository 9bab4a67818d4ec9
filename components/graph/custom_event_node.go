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

//自定义输入/输出节点，示例：
//{
//        "id": "s1",
//        "type": "customInput",
//        "configuration": {
//          "eventName": "Skip"
//        }
//  }
import (
	"errors"
	"fmt"

	"github.com/rulego/flowgraph/api/types"
	"github.com/rulego/flowgraph/components/base"
	"github.com/rulego/flowgraph/utils/maps"
)

// 注册节点
func init() {
	Registry.Add(&CustomInputNode{}, &CustomOutputNode{})
}

// CustomEventConfiguration 节点配置
type CustomEventConfiguration struct {
	//事件名称，需在资产的 customInputs/customOutputs 中声明
	EventName string
}

// CustomInputNode 自定义输入节点
// It fires its output every time the instance receives the custom input EventName.
type CustomInputNode struct {
	base.Noop
	Config CustomEventConfiguration
}

// Type 组件类型
func (x *CustomInputNode) Type() string {
	return "customInput"
}

func (x *CustomInputNode) New() types.Node {
	return &CustomInputNode{}
}

func (x *CustomInputNode) Category() string {
	return "graph"
}

// Init 初始化
func (x *CustomInputNode) Init(config types.Config, configuration types.Configuration) error {
	return maps.Map2Struct(configuration, &x.Config)
}

func (x *CustomInputNode) InputPins() []types.Pin {
	return nil
}

func (x *CustomInputNode) OutputPins() []types.Pin {
	return types.NewPins(types.DefaultOutputPin)
}

func (x *CustomInputNode) CustomInputName() string {
	return x.Config.EventName
}

func (x *CustomInputNode) Reentrant() bool {
	return true
}

func (x *CustomInputNode) ExecuteInput(ctx types.NodeContext, pinName string) {
	ctx.TriggerFirstOutput(true)
}

func (x *CustomInputNode) Validate(assetId string, assets types.AssetProvider) error {
	return validateEventName(x.Config.EventName, assetId, assets, func(def *types.FlowAssetDef) []string {
		return def.Asset.CustomInputs
	})
}

// CustomOutputNode 自定义输出节点
// It forwards EventName to the owner of the instance and finishes.
type CustomOutputNode struct {
	base.Noop
	Config CustomEventConfiguration
}

// Type 组件类型
func (x *CustomOutputNode) Type() string {
	return "customOutput"
}

func (x *CustomOutputNode) New() types.Node {
	return &CustomOutputNode{}
}

func (x *CustomOutputNode) Category() string {
	return "graph"
}

// Init 初始化
func (x *CustomOutputNode) Init(config types.Config, configuration types.Configuration) error {
	return maps.Map2Struct(configuration, &x.Config)
}

func (x *CustomOutputNode) InputPins() []types.Pin {
	return types.NewPins(types.DefaultInputPin)
}

func (x *CustomOutputNode) OutputPins() []types.Pin {
	return nil
}

func (x *CustomOutputNode) Reentrant() bool {
	return true
}

func (x *CustomOutputNode) ExecuteInput(ctx types.NodeContext, pinName string) {
	if x.Config.EventName != "" {
		ctx.Instance().TriggerCustomOutput(x.Config.EventName)
	}
	ctx.Finish()
}

func (x *CustomOutputNode) Validate(assetId string, assets types.AssetProvider) error {
	return validateEventName(x.Config.EventName, assetId, assets, func(def *types.FlowAssetDef) []string {
		return def.Asset.CustomOutputs
	})
}

func validateEventName(name string, assetId string, assets types.AssetProvider, declared func(def *types.FlowAssetDef) []string) error {
	if name == "" {
		return errors.New("event name is empty")
	}
	if assets == nil {
		return nil
	}
	def, ok := assets.AssetDef(assetId)
	if !ok {
		return nil
	}
	for _, n := range declared(def) {
		if n == name {
			return nil
		}
	}
	return fmt.Errorf("event %s is not declared by asset %s", name, assetId)
}
