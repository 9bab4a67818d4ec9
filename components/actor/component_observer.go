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

import (
	"github.com/rulego/flowgraph/api/types"
	"github.com/rulego/flowgraph/utils/maps"
)

const (
	StartPin     = "Start"
	StopPin      = "Stop"
	SuccessPin   = "Success"
	CompletedPin = "Completed"
	StoppedPin   = "Stopped"

	// MissingIdentityTag 缺少身份标签
	MissingIdentityTag = "Missing Identity Tag"
	// NoActorsFound 激活中但没有匹配的角色
	NoActorsFound = "No actors found"
)

// ForgetReason tells ForgetActor why an actor is no longer tracked.
type ForgetReason int

const (
	ForgetUnregistered ForgetReason = iota
	ForgetTagsRemoved
	ForgetCleanup
)

// ObserverHooks is implemented by observer nodes.
type ObserverHooks interface {
	// ObserveActor is called for a matching component that is not tracked yet. The hook
	// calls ComponentObserver.Track to keep it.
	ObserveActor(ctx types.NodeContext, component types.Component)
	// ForgetActor is called after a tracked component was dropped.
	ForgetActor(ctx types.NodeContext, component types.Component, reason ForgetReason)
}

// ObserverConfiguration 观察节点配置
type ObserverConfiguration struct {
	//角色身份匹配条件
	Identity types.Identity
	//成功次数上限，0表示不限，只能通过Stop结束
	SuccessLimit int
}

// ObserverPayload is persisted while observing.
type ObserverPayload struct {
	SuccessCount int `mapstructure:"successCount"`
	//已跟踪的角色ID
	Tracked []string `mapstructure:"tracked"`
}

// ComponentObserver 观察匹配身份的角色组件
// ComponentObserver bridges a node to the live set of components matching its identity.
type ComponentObserver struct {
	//节点配置
	Config ObserverConfiguration
	hooks  ObserverHooks
	ctx    types.NodeContext
	//角色ID -> 组件，按加入顺序
	registered   map[string]types.Component
	order        []string
	subs         []types.SubscriptionHandle
	successCount int
	//读档后恢复观察的定时器
	resume types.TimerHandle
	//读档前已跟踪的角色，恢复时不再触发
	restored map[string]bool
}

// NewComponentObserver creates an observer with a success limit of 1.
func NewComponentObserver(hooks ObserverHooks) ComponentObserver {
	return ComponentObserver{
		Config: ObserverConfiguration{SuccessLimit: 1},
		hooks:  hooks,
	}
}

func (x *ComponentObserver) Category() string {
	return "world"
}

// Init 初始化
func (x *ComponentObserver) Init(config types.Config, configuration types.Configuration) error {
	return maps.Map2Struct(configuration, &x.Config)
}

func (x *ComponentObserver) InputPins() []types.Pin {
	return types.NewPins(StartPin, StopPin)
}

func (x *ComponentObserver) OutputPins() []types.Pin {
	return types.NewPins(SuccessPin, CompletedPin, StoppedPin)
}

func (x *ComponentObserver) Validate(assetId string, assets types.AssetProvider) error {
	if !x.Config.Identity.IsValid() {
		return types.ErrMissingIdentity
	}
	return nil
}

func (x *ComponentObserver) ExecuteInput(ctx types.NodeContext, pinName string) {
	if !x.Config.Identity.IsValid() {
		ctx.LogError(MissingIdentityTag)
		ctx.Finish()
		return
	}
	switch pinName {
	case StartPin:
		x.StartObserving(ctx)
	case StopPin:
		ctx.TriggerOutput(StoppedPin, true)
	}
}

func actorKey(component types.Component) string {
	if actor := component.Actor(); actor != nil {
		return actor.Id()
	}
	return component.Id()
}

// IsTracked reports whether the component's actor is tracked.
func (x *ComponentObserver) IsTracked(component types.Component) bool {
	_, ok := x.registered[actorKey(component)]
	return ok
}

// Track keeps the component's actor in the registered actor map.
func (x *ComponentObserver) Track(component types.Component) {
	key := actorKey(component)
	if x.registered == nil {
		x.registered = make(map[string]types.Component)
	}
	if _, ok := x.registered[key]; ok {
		return
	}
	x.registered[key] = component
	x.order = append(x.order, key)
}

func (x *ComponentObserver) untrack(component types.Component) bool {
	key := actorKey(component)
	if _, ok := x.registered[key]; !ok {
		return false
	}
	delete(x.registered, key)
	for i, k := range x.order {
		if k == key {
			x.order = append(x.order[:i], x.order[i+1:]...)
			break
		}
	}
	return true
}

// Tracked returns tracked components in the order they were added.
func (x *ComponentObserver) Tracked() []types.Component {
	out := make([]types.Component, 0, len(x.order))
	for _, k := range x.order {
		out = append(out, x.registered[k])
	}
	return out
}

// SuccessCount 当前成功次数
func (x *ComponentObserver) SuccessCount() int {
	return x.successCount
}

// IsObserving reports whether registry events are followed.
func (x *ComponentObserver) IsObserving() bool {
	return len(x.subs) > 0
}

// StartObserving collects matching components already registered, then subscribes to
// registry events. The scan stops as soon as the node is no longer active.
func (x *ComponentObserver) StartObserving(ctx types.NodeContext) {
	x.ctx = ctx
	subsystem := ctx.Subsystem()
	for _, component := range subsystem.FindComponents(x.Config.Identity) {
		if x.restored[actorKey(component)] {
			x.Track(component)
			continue
		}
		if !x.IsTracked(component) {
			x.hooks.ObserveActor(ctx, component)
		}
		if ctx.State() != types.Active {
			return
		}
	}
	if x.IsObserving() {
		return
	}
	x.subs = append(x.subs,
		subsystem.Subscribe(types.ComponentRegistered, x.onComponentRegistered),
		subsystem.Subscribe(types.ComponentTagsAdded, x.onComponentTagsAdded),
		subsystem.Subscribe(types.ComponentTagsRemoved, x.onComponentTagsRemoved),
		subsystem.Subscribe(types.ComponentUnregistered, x.onComponentUnregistered),
	)
}

// StopObserving 取消订阅，可重复调用
func (x *ComponentObserver) StopObserving(ctx types.NodeContext) {
	if len(x.subs) == 0 {
		return
	}
	subsystem := ctx.Subsystem()
	for _, h := range x.subs {
		subsystem.Unsubscribe(h)
	}
	x.subs = nil
}

func (x *ComponentObserver) onComponentRegistered(event types.ComponentEvent) {
	if !x.IsTracked(event.Component) && x.Config.Identity.Matches(event.Component) {
		x.hooks.ObserveActor(x.ctx, event.Component)
	}
}

func (x *ComponentObserver) onComponentTagsAdded(event types.ComponentEvent) {
	if !x.IsTracked(event.Component) && x.Config.Identity.Matches(event.Component) {
		x.hooks.ObserveActor(x.ctx, event.Component)
	}
}

// 已跟踪且不再匹配的角色被遗忘
func (x *ComponentObserver) onComponentTagsRemoved(event types.ComponentEvent) {
	if x.IsTracked(event.Component) && !x.Config.Identity.Matches(event.Component) {
		x.untrack(event.Component)
		x.hooks.ForgetActor(x.ctx, event.Component, ForgetTagsRemoved)
	}
}

func (x *ComponentObserver) onComponentUnregistered(event types.ComponentEvent) {
	if x.untrack(event.Component) {
		x.hooks.ForgetActor(x.ctx, event.Component, ForgetUnregistered)
	}
}

// OnEventReceived fires Success and, once a positive limit is reached, Completed.
func (x *ComponentObserver) OnEventReceived(ctx types.NodeContext) {
	if ctx.State() != types.Active {
		return
	}
	ctx.TriggerOutput(SuccessPin, false)
	x.successCount++
	if x.Config.SuccessLimit > 0 && x.successCount == x.Config.SuccessLimit {
		ctx.TriggerOutput(CompletedPin, true)
	}
}

// Cleanup stops observing and forgets every tracked actor. Safe to call repeatedly,
// also from inside an observer callback.
func (x *ComponentObserver) Cleanup(ctx types.NodeContext) {
	if x.resume != 0 {
		ctx.Timers().Cancel(x.resume)
		x.resume = 0
	}
	x.restored = nil
	x.StopObserving(ctx)
	tracked := x.Tracked()
	x.registered = nil
	x.order = nil
	for _, component := range tracked {
		x.hooks.ForgetActor(ctx, component, ForgetCleanup)
	}
	x.successCount = 0
}

func (x *ComponentObserver) OnSave(ctx types.NodeContext) (interface{}, error) {
	return ObserverPayload{SuccessCount: x.successCount, Tracked: append([]string(nil), x.order...)}, nil
}

// OnLoad restores the success count and resumes observing on the next tick. Actors
// tracked at save time are tracked again without being observed twice.
func (x *ComponentObserver) OnLoad(ctx types.NodeContext, payload types.Payload) error {
	var p ObserverPayload
	if err := payload.Decode(&p); err != nil {
		return err
	}
	x.ctx = ctx
	x.successCount = p.SuccessCount
	if !x.Config.Identity.IsValid() {
		return nil
	}
	x.restored = make(map[string]bool, len(p.Tracked))
	for _, key := range p.Tracked {
		x.restored[key] = true
	}
	if x.resume != 0 {
		ctx.Timers().Cancel(x.resume)
	}
	x.resume = ctx.Timers().ScheduleNextTick(func() {
		x.resume = 0
		if ctx.State() == types.Active {
			x.StartObserving(ctx)
		}
		x.restored = nil
	})
	return nil
}

// Status reports NoActorsFound while active without tracked actors.
func (x *ComponentObserver) Status() string {
	if x.ctx != nil && x.ctx.State() == types.Active && len(x.registered) == 0 {
		return NoActorsFound
	}
	return ""
}

// Destroy 销毁
func (x *ComponentObserver) Destroy() {
}

func (r ForgetReason) String() string {
	switch r {
	case ForgetUnregistered:
		return "unregistered"
	case ForgetTagsRemoved:
		return "tagsRemoved"
	default:
		return "cleanup"
	}
}
