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

//子流程节点，示例：
//{
//        "id": "s1",
//        "type": "subGraph",
//        "name": "子流程",
//        "configuration": {
//          "asset": "side_quest_01",
//          "canInstanceIdenticalAsset": false,
//          "preload": false
//        }
//  }
import (
	"errors"
	"fmt"

	"github.com/rulego/flowgraph/api/types"
	"github.com/rulego/flowgraph/utils/maps"
)

const (
	// StartPin starts the child instance.
	StartPin = "Start"
	// FinishPin fires when the child instance finishes.
	FinishPin = "Finish"
)

// 注册节点
func init() {
	Registry.Add(&SubGraphNode{})
}

// SubGraphConfiguration 节点配置
type SubGraphConfiguration struct {
	//子流程资产ID
	Asset string
	//是否允许实例化与所属资产相同的资产
	CanInstanceIdenticalAsset bool
	//实例初始化时预加载子流程
	Preload bool
}

// SubGraphPayload is persisted while the node is active.
type SubGraphPayload struct {
	SavedAssetInstanceName string `mapstructure:"savedAssetInstanceName"`
}

// SubGraphNode 子流程节点
// SubGraphNode runs another asset as a child instance owned by this node.
//
// Start creates the child, any other input pin is forwarded to the child as a custom
// input and every custom output of the child fires the output pin of the same name.
// The node finishes through Finish when the child reaches one of its finish nodes.
// Its context pins are the custom inputs and outputs declared by the asset.
type SubGraphNode struct {
	//节点配置
	Config SubGraphConfiguration
	//从存档恢复的子流程实例名
	SavedAssetInstanceName string
}

// Type 组件类型
func (x *SubGraphNode) Type() string {
	return "subGraph"
}

func (x *SubGraphNode) New() types.Node {
	return &SubGraphNode{}
}

func (x *SubGraphNode) Category() string {
	return "graph"
}

// Init 初始化
func (x *SubGraphNode) Init(config types.Config, configuration types.Configuration) error {
	return maps.Map2Struct(configuration, &x.Config)
}

func (x *SubGraphNode) InputPins() []types.Pin {
	return types.NewPins(StartPin)
}

func (x *SubGraphNode) OutputPins() []types.Pin {
	return types.NewPins(FinishPin)
}

// ContextPins exposes the asset's custom inputs and outputs.
func (x *SubGraphNode) ContextPins(assets types.AssetProvider) ([]types.Pin, []types.Pin) {
	if x.Config.Asset == "" || assets == nil {
		return nil, nil
	}
	def, ok := assets.AssetDef(x.Config.Asset)
	if !ok {
		return nil, nil
	}
	return types.NewPins(def.Asset.CustomInputs...), types.NewPins(def.Asset.CustomOutputs...)
}

// CanBeAssetInstanced reports whether the asset is set and is not the owning asset,
// unless identical assets are allowed.
func (x *SubGraphNode) CanBeAssetInstanced(owningAssetId string) bool {
	return x.Config.Asset != "" && (x.Config.CanInstanceIdenticalAsset || x.Config.Asset != owningAssetId)
}

func (x *SubGraphNode) InitializeInstance(ctx types.NodeContext) {
	if x.Config.Preload {
		x.PreloadContent(ctx)
	}
}

func (x *SubGraphNode) PreloadContent(ctx types.NodeContext) {
	if !x.CanBeAssetInstanced(ctx.Instance().AssetId()) {
		return
	}
	if _, err := ctx.Subsystem().CreateSubFlow(ctx, x.Config.Asset, "", true); err != nil {
		ctx.LogError("preload %s: %v", x.Config.Asset, err)
	}
}

func (x *SubGraphNode) FlushContent(ctx types.NodeContext) {
	ctx.Subsystem().RemoveSubFlow(ctx, types.FinishPolicyAbort)
}

func (x *SubGraphNode) ExecuteInput(ctx types.NodeContext, pinName string) {
	if !x.CanBeAssetInstanced(ctx.Instance().AssetId()) {
		if x.Config.Asset == "" {
			ctx.LogError("Missing Flow Asset")
		} else {
			ctx.LogError("Asset %s cannot be instance, probably is the same as the asset owning this SubGraph node.", x.Config.Asset)
		}
		ctx.Finish()
		return
	}

	if pinName == StartPin {
		if _, err := ctx.Subsystem().CreateSubFlow(ctx, x.Config.Asset, "", false); err != nil {
			ctx.LogError("create sub flow %s: %v", x.Config.Asset, err)
			ctx.Finish()
		}
		return
	}
	if sub, ok := ctx.Subsystem().SubFlow(ctx); ok {
		sub.TriggerCustomInput(pinName)
	}
}

// Cleanup 子流程按所属实例的结束策略结束
func (x *SubGraphNode) Cleanup(ctx types.NodeContext) {
	policy := types.FinishPolicyKeep
	if instance := ctx.Instance(); instance != nil {
		policy = instance.FinishPolicy()
	}
	ctx.Subsystem().RemoveSubFlow(ctx, policy)
}

func (x *SubGraphNode) ForceFinishNode(ctx types.NodeContext) {
	ctx.TriggerFirstOutput(true)
}

func (x *SubGraphNode) OnSave(ctx types.NodeContext) (interface{}, error) {
	sub, ok := ctx.Subsystem().SubFlow(ctx)
	if !ok {
		return nil, nil
	}
	return SubGraphPayload{SavedAssetInstanceName: sub.Id()}, nil
}

func (x *SubGraphNode) OnLoad(ctx types.NodeContext, payload types.Payload) error {
	var p SubGraphPayload
	if err := payload.Decode(&p); err != nil {
		return err
	}
	x.SavedAssetInstanceName = p.SavedAssetInstanceName
	if x.SavedAssetInstanceName == "" {
		return nil
	}
	_, err := ctx.Subsystem().LoadSubFlow(ctx, x.Config.Asset, x.SavedAssetInstanceName)
	x.SavedAssetInstanceName = ""
	return err
}

func (x *SubGraphNode) Validate(assetId string, assets types.AssetProvider) error {
	if x.Config.Asset == "" {
		return errors.New("Flow Asset not assigned or invalid!")
	}
	if assets != nil {
		if _, ok := assets.AssetDef(x.Config.Asset); !ok {
			return errors.New("Flow Asset not assigned or invalid!")
		}
	}
	if !x.CanBeAssetInstanced(assetId) {
		return fmt.Errorf("asset %s cannot be instanced by itself", x.Config.Asset)
	}
	return nil
}

// Destroy 销毁
func (x *SubGraphNode) Destroy() {
}
