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

//脚本观察节点，示例：
//{
//        "id": "o3",
//        "type": "observeScript",
//        "configuration": {
//          "identity": {"identityTags": ["Enemy"]},
//          "successLimit": 3,
//          "script": "function ObserveActor(actor) { return actor.tags.indexOf('Enemy.Boss') < 0 }\nfunction ForgetActor(actor, reason) { return reason == 'unregistered' }"
//        }
//  }
import (
	"github.com/rulego/flowgraph/api/types"
	"github.com/rulego/flowgraph/utils/js"
	"github.com/rulego/flowgraph/utils/maps"
)

const (
	// ObserveActorFunc 返回true时跟踪该角色并计为一次成功
	ObserveActorFunc = "ObserveActor"
	// ForgetActorFunc 返回true时计为一次成功
	ForgetActorFunc = "ForgetActor"
)

// 注册节点
func init() {
	Registry.Add(&ObserveScriptNode{})
}

// ObserveScriptConfiguration 节点配置
type ObserveScriptConfiguration struct {
	//js脚本，可定义 ObserveActor(actor) 和 ForgetActor(actor, reason)
	Script string
}

// ObserveScriptNode 使用js脚本决定跟踪哪些角色
// ObserveScriptNode lets a script decide which matching actors are tracked.
// ObserveActor(actor) returning true tracks the actor and counts a success, a missing
// function tracks without success. ForgetActor(actor, reason) returning true counts a
// success, reason is "unregistered", "tagsRemoved" or "cleanup".
// actor is {id, componentId, tags}.
type ObserveScriptNode struct {
	ComponentObserver
	ScriptConfig ObserveScriptConfiguration
	jsEngine     *js.GojaJsEngine
}

// Type 组件类型
func (x *ObserveScriptNode) Type() string {
	return "observeScript"
}

func (x *ObserveScriptNode) New() types.Node {
	n := &ObserveScriptNode{}
	n.ComponentObserver = NewComponentObserver(n)
	return n
}

// Init 初始化
func (x *ObserveScriptNode) Init(config types.Config, configuration types.Configuration) error {
	if err := x.ComponentObserver.Init(config, configuration); err != nil {
		return err
	}
	if err := maps.Map2Struct(configuration, &x.ScriptConfig); err != nil {
		return err
	}
	jsEngine, err := js.NewGojaJsEngine(config, x.ScriptConfig.Script, nil)
	if err != nil {
		return err
	}
	x.jsEngine = jsEngine
	return nil
}

func actorValue(component types.Component) map[string]interface{} {
	return map[string]interface{}{
		"id":          actorKey(component),
		"componentId": component.Id(),
		"tags":        component.IdentityTags().Strings(),
	}
}

func (x *ObserveScriptNode) call(ctx types.NodeContext, functionName string, args ...interface{}) bool {
	if x.jsEngine == nil || !x.jsEngine.HasFunction(functionName) {
		return false
	}
	out, err := x.jsEngine.Execute(functionName, args...)
	if err != nil {
		ctx.LogError("%s: %v", functionName, err)
		return false
	}
	result, ok := out.(bool)
	return ok && result
}

func (x *ObserveScriptNode) ObserveActor(ctx types.NodeContext, component types.Component) {
	if x.jsEngine == nil || !x.jsEngine.HasFunction(ObserveActorFunc) {
		x.Track(component)
		return
	}
	if x.call(ctx, ObserveActorFunc, actorValue(component)) {
		x.Track(component)
		x.OnEventReceived(ctx)
	}
}

func (x *ObserveScriptNode) ForgetActor(ctx types.NodeContext, component types.Component, reason ForgetReason) {
	if x.call(ctx, ForgetActorFunc, actorValue(component), reason.String()) {
		x.OnEventReceived(ctx)
	}
}

// Destroy 销毁
func (x *ObserveScriptNode) Destroy() {
	if x.jsEngine != nil {
		x.jsEngine.Stop()
	}
}
