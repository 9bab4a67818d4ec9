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

//角色通知观察节点，示例：
//{
//        "id": "o2",
//        "type": "onNotifyFromActor",
//        "configuration": {
//          "identity": {"identityTags": ["Door.Main"]},
//          "notifyTags": ["Door.Opened"],
//          "successLimit": 0
//        }
//  }
import (
	"github.com/rulego/flowgraph/api/types"
	"github.com/rulego/flowgraph/utils/maps"
)

// 注册节点
func init() {
	Registry.Add(&OnNotifyFromActorNode{})
}

// OnNotifyFromActorConfiguration 节点配置
type OnNotifyFromActorConfiguration struct {
	//关注的通知标签，空表示任意
	NotifyTags []string
	//true: 标签必须完全相同，false: 按层级匹配，例如 Door 匹配 Door.Opened
	ExactMatch bool
}

// OnNotifyFromActorNode 匹配角色发出通知标签时触发Success
type OnNotifyFromActorNode struct {
	ComponentObserver
	NotifyConfig OnNotifyFromActorConfiguration
	//组件ID -> 通知订阅
	notifySubs map[string]types.SubscriptionHandle
}

// Type 组件类型
func (x *OnNotifyFromActorNode) Type() string {
	return "onNotifyFromActor"
}

func (x *OnNotifyFromActorNode) New() types.Node {
	n := &OnNotifyFromActorNode{}
	n.ComponentObserver = NewComponentObserver(n)
	return n
}

// Init 初始化
func (x *OnNotifyFromActorNode) Init(config types.Config, configuration types.Configuration) error {
	if err := x.ComponentObserver.Init(config, configuration); err != nil {
		return err
	}
	return maps.Map2Struct(configuration, &x.NotifyConfig)
}

func (x *OnNotifyFromActorNode) matches(tag types.Tag) bool {
	if len(x.NotifyConfig.NotifyTags) == 0 {
		return true
	}
	for _, t := range x.NotifyConfig.NotifyTags {
		if x.NotifyConfig.ExactMatch {
			if string(tag) == t {
				return true
			}
		} else if tag.Matches(types.Tag(t)) {
			return true
		}
	}
	return false
}

func (x *OnNotifyFromActorNode) ObserveActor(ctx types.NodeContext, component types.Component) {
	x.Track(component)
	if x.notifySubs == nil {
		x.notifySubs = make(map[string]types.SubscriptionHandle)
	}
	if _, ok := x.notifySubs[component.Id()]; ok {
		return
	}
	x.notifySubs[component.Id()] = component.SubscribeNotify(func(c types.Component, tag types.Tag) {
		if x.matches(tag) {
			x.OnEventReceived(ctx)
		}
	})
}

func (x *OnNotifyFromActorNode) ForgetActor(ctx types.NodeContext, component types.Component, reason ForgetReason) {
	if h, ok := x.notifySubs[component.Id()]; ok {
		component.UnsubscribeNotify(h)
		delete(x.notifySubs, component.Id())
	}
}
