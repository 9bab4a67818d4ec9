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

package actor

//通知角色节点，示例：
//{
//        "id": "n1",
//        "type": "notifyActor",
//        "configuration": {
//          "identity": {"identityTags": ["Door.Main"]},
//          "notifyTags": ["Door.Open"],
//          "netMode": "authority"
//        }
//  }
import (
	"github.com/rulego/flowgraph/api/types"
	"github.com/rulego/flowgraph/utils/maps"
)

// 注册节点
func init() {
	Registry.Add(&NotifyActorNode{})
}

// NotifyActorConfiguration 节点配置
type NotifyActorConfiguration struct {
	//角色身份匹配条件，默认 HasAllExact
	Identity types.Identity
	//发送给组件的标签
	NotifyTags []string
	NetMode    types.NetMode
}

// NotifyActorNode 向匹配身份的组件发送通知标签，然后结束
type NotifyActorNode struct {
	//节点配置
	Config NotifyActorConfiguration
}

// Type 组件类型
func (x *NotifyActorNode) Type() string {
	return "notifyActor"
}

func (x *NotifyActorNode) New() types.Node {
	return &NotifyActorNode{Config: NotifyActorConfiguration{
		Identity: types.Identity{MatchType: types.HasAllExact},
		NetMode:  types.NetModeAuthority,
	}}
}

func (x *NotifyActorNode) Category() string {
	return "world"
}

// Init 初始化
func (x *NotifyActorNode) Init(config types.Config, configuration types.Configuration) error {
	return maps.Map2Struct(configuration, &x.Config)
}

func (x *NotifyActorNode) Validate(assetId string, assets types.AssetProvider) error {
	if !x.Config.Identity.IsValid() {
		return types.ErrMissingIdentity
	}
	return nil
}

func (x *NotifyActorNode) ExecuteInput(ctx types.NodeContext, pinName string) {
	if !x.Config.Identity.IsValid() {
		ctx.LogError(MissingIdentityTag)
		ctx.Finish()
		return
	}
	tags := types.NewTagContainer(x.Config.NotifyTags...)
	for _, component := range ctx.Subsystem().FindComponents(x.Config.Identity) {
		component.NotifyFromGraph(tags, x.Config.NetMode)
	}
	ctx.TriggerFirstOutput(true)
}

func (x *NotifyActorNode) Cleanup(ctx types.NodeContext) {
}

// Destroy 销毁
func (x *NotifyActorNode) Destroy() {
}
