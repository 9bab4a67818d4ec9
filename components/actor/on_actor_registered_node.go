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

//角色注册观察节点，示例：
//{
//        "id": "o1",
//        "type": "onActorRegistered",
//        "configuration": {
//          "identity": {"identityTags": ["NPC.Guard"], "matchType": "HasAny"},
//          "successLimit": 2
//        }
//  }
import "github.com/rulego/flowgraph/api/types"

// 注册节点
func init() {
	Registry.Add(&OnActorRegisteredNode{})
	Registry.Add(&OnActorUnregisteredNode{})
}

// OnActorRegisteredNode 匹配的角色出现时触发Success
// OnActorRegisteredNode succeeds once for every matching actor, including actors
// already present when observing starts.
type OnActorRegisteredNode struct {
	ComponentObserver
}

// Type 组件类型
func (x *OnActorRegisteredNode) Type() string {
	return "onActorRegistered"
}

func (x *OnActorRegisteredNode) New() types.Node {
	n := &OnActorRegisteredNode{}
	n.ComponentObserver = NewComponentObserver(n)
	return n
}

func (x *OnActorRegisteredNode) ObserveActor(ctx types.NodeContext, component types.Component) {
	x.Track(component)
	x.OnEventReceived(ctx)
}

func (x *OnActorRegisteredNode) ForgetActor(ctx types.NodeContext, component types.Component, reason ForgetReason) {
}

// OnActorUnregisteredNode 已跟踪的匹配角色离开时触发Success
type OnActorUnregisteredNode struct {
	ComponentObserver
}

// Type 组件类型
func (x *OnActorUnregisteredNode) Type() string {
	return "onActorUnregistered"
}

func (x *OnActorUnregisteredNode) New() types.Node {
	n := &OnActorUnregisteredNode{}
	n.ComponentObserver = NewComponentObserver(n)
	return n
}

func (x *OnActorUnregisteredNode) ObserveActor(ctx types.NodeContext, component types.Component) {
	x.Track(component)
}

func (x *OnActorUnregisteredNode) ForgetActor(ctx types.NodeContext, component types.Component, reason ForgetReason) {
	if reason == ForgetUnregistered {
		x.OnEventReceived(ctx)
	}
}
