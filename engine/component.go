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

package engine

import (
	"github.com/rulego/flowgraph/api/types"
)

// FlowComponentClass is the class every FlowComponent reports.
const FlowComponentClass = "FlowComponent"

var _ types.Component = (*FlowComponent)(nil)

// RootFlowSettings 根流程配置
type RootFlowSettings struct {
	AssetId string `json:"assetId" mapstructure:"assetId"`
	// AutoStart starts the root flow in BeginPlay.
	AutoStart bool `json:"autoStart" mapstructure:"autoStart"`
	// InstanceName is optional, a unique name is generated when empty.
	InstanceName string `json:"instanceName" mapstructure:"instanceName"`
}

// GraphNotifyListener receives tags a graph sends to the component.
type GraphNotifyListener func(component *FlowComponent, tags types.TagContainer, mode types.NetMode)

// CustomEventListener receives custom outputs of the component's root flow.
type CustomEventListener func(component *FlowComponent, instance *FlowInstance, eventName string)

type notifySubscription struct {
	handle  types.SubscriptionHandle
	handler func(component types.Component, tag types.Tag)
}

// FlowComponent 角色流程组件
// FlowComponent is the host side component that gives an actor an identity, lets it
// talk to graphs and may own a root flow.
type FlowComponent struct {
	id        string
	actor     types.Actor
	classes   []string
	tags      types.TagContainer
	subsystem *Subsystem
	RootFlow  RootFlowSettings

	notifySubs           []notifySubscription
	lastHandle           types.SubscriptionHandle
	graphListeners       []GraphNotifyListener
	customEventListeners []CustomEventListener
	finishedListeners    []func(component *FlowComponent, instance *FlowInstance)
}

// NewFlowComponent creates a component for actor carrying identity tags.
func NewFlowComponent(id string, actor types.Actor, tags ...string) *FlowComponent {
	return &FlowComponent{
		id:    id,
		actor: actor,
		tags:  types.NewTagContainer(tags...),
	}
}

// WithClasses adds component classes matched by identity component filters.
func (c *FlowComponent) WithClasses(classes ...string) *FlowComponent {
	c.classes = append(c.classes, classes...)
	return c
}

func (c *FlowComponent) Id() string {
	return c.id
}

func (c *FlowComponent) Actor() types.Actor {
	return c.actor
}

func (c *FlowComponent) IsA(class string) bool {
	if class == FlowComponentClass {
		return true
	}
	for _, cl := range c.classes {
		if cl == class {
			return true
		}
	}
	return false
}

// IdentityTags returns a copy of the component's tags.
func (c *FlowComponent) IdentityTags() types.TagContainer {
	return append(types.TagContainer(nil), c.tags...)
}

// BeginPlay registers the component and starts the root flow if configured.
func (c *FlowComponent) BeginPlay(subsystem *Subsystem) error {
	c.subsystem = subsystem
	if err := subsystem.RegisterComponent(c); err != nil {
		c.subsystem = nil
		return err
	}
	if c.RootFlow.AutoStart && c.RootFlow.AssetId != "" {
		if _, err := c.StartRootFlow(); err != nil {
			return err
		}
	}
	return nil
}

// EndPlay finishes the root flow and unregisters the component.
func (c *FlowComponent) EndPlay() error {
	if c.subsystem == nil {
		return nil
	}
	if _, ok := c.subsystem.RootFlow(c.id); ok {
		_ = c.subsystem.FinishRootFlow(c.id, types.FinishPolicyKeep)
	}
	err := c.subsystem.UnregisterComponent(c.id)
	c.subsystem = nil
	return err
}

// AddIdentityTag adds one tag.
func (c *FlowComponent) AddIdentityTag(tag types.Tag, mode types.NetMode) {
	c.AddIdentityTags(types.TagContainer{tag}, mode)
}

// AddIdentityTags adds tags and dispatches ComponentTagsAdded with the tags that were new.
func (c *FlowComponent) AddIdentityTags(tags types.TagContainer, mode types.NetMode) {
	var added types.TagContainer
	for _, tag := range tags {
		if c.tags.Add(tag) {
			added = append(added, tag)
		}
	}
	if c.subsystem != nil && len(added) > 0 {
		c.subsystem.OnTagsAdded(c, added, mode)
	}
}

// RemoveIdentityTag removes one tag.
func (c *FlowComponent) RemoveIdentityTag(tag types.Tag, mode types.NetMode) {
	c.RemoveIdentityTags(types.TagContainer{tag}, mode)
}

// RemoveIdentityTags removes tags and dispatches ComponentTagsRemoved with those removed.
func (c *FlowComponent) RemoveIdentityTags(tags types.TagContainer, mode types.NetMode) {
	var removed types.TagContainer
	for _, tag := range tags {
		if c.tags.Remove(tag) {
			removed = append(removed, tag)
		}
	}
	if c.subsystem != nil && len(removed) > 0 {
		c.subsystem.OnTagsRemoved(c, removed, mode)
	}
}

// NotifyGraph sends a tag to every graph node observing this component.
func (c *FlowComponent) NotifyGraph(tag types.Tag, mode types.NetMode) {
	subs := append([]notifySubscription(nil), c.notifySubs...)
	for _, sub := range subs {
		if c.hasNotifySubscription(sub.handle) {
			sub.handler(c, tag)
		}
	}
	if c.subsystem != nil {
		c.subsystem.onComponentNotify(c, tag, mode)
	}
}

// BulkNotifyGraph sends every tag in order.
func (c *FlowComponent) BulkNotifyGraph(tags types.TagContainer, mode types.NetMode) {
	for _, tag := range tags {
		c.NotifyGraph(tag, mode)
	}
}

func (c *FlowComponent) SubscribeNotify(handler func(component types.Component, tag types.Tag)) types.SubscriptionHandle {
	c.lastHandle++
	c.notifySubs = append(c.notifySubs, notifySubscription{handle: c.lastHandle, handler: handler})
	return c.lastHandle
}

func (c *FlowComponent) UnsubscribeNotify(handle types.SubscriptionHandle) {
	for i, sub := range c.notifySubs {
		if sub.handle == handle {
			c.notifySubs = append(c.notifySubs[:i:i], c.notifySubs[i+1:]...)
			return
		}
	}
}

// NotifySubscriberCount returns the number of graph nodes listening to this component.
func (c *FlowComponent) NotifySubscriberCount() int {
	return len(c.notifySubs)
}

func (c *FlowComponent) hasNotifySubscription(handle types.SubscriptionHandle) bool {
	for _, sub := range c.notifySubs {
		if sub.handle == handle {
			return true
		}
	}
	return false
}

// NotifyFromGraph delivers tags sent by a graph node to the listeners.
func (c *FlowComponent) NotifyFromGraph(tags types.TagContainer, mode types.NetMode) {
	for _, l := range c.graphListeners {
		l(c, tags, mode)
	}
}

// OnNotifyFromGraph adds a listener for NotifyFromGraph.
func (c *FlowComponent) OnNotifyFromGraph(listener GraphNotifyListener) {
	c.graphListeners = append(c.graphListeners, listener)
}

// OnRootFlowCustomEvent adds a listener for custom outputs of the root flow.
func (c *FlowComponent) OnRootFlowCustomEvent(listener CustomEventListener) {
	c.customEventListeners = append(c.customEventListeners, listener)
}

// OnRootFlowFinished adds a listener called when the root flow reaches a finish node.
func (c *FlowComponent) OnRootFlowFinished(listener func(component *FlowComponent, instance *FlowInstance)) {
	c.finishedListeners = append(c.finishedListeners, listener)
}

// StartRootFlow starts the configured root flow.
func (c *FlowComponent) StartRootFlow() (*FlowInstance, error) {
	if c.subsystem == nil {
		return nil, types.ErrComponentNotFound
	}
	return c.subsystem.StartRootFlow(c.id, c.RootFlow.AssetId, c.RootFlow.InstanceName)
}

// FinishRootFlow finishes the running root flow.
func (c *FlowComponent) FinishRootFlow(policy types.FinishPolicy) error {
	if c.subsystem == nil {
		return types.ErrComponentNotFound
	}
	return c.subsystem.FinishRootFlow(c.id, policy)
}

// RootFlowInstance returns the running root flow.
func (c *FlowComponent) RootFlowInstance() (*FlowInstance, bool) {
	if c.subsystem == nil {
		return nil, false
	}
	return c.subsystem.RootFlow(c.id)
}

// TriggerRootFlowCustomInput forwards a custom input to the root flow.
func (c *FlowComponent) TriggerRootFlowCustomInput(name string) error {
	if c.subsystem == nil {
		return types.ErrComponentNotFound
	}
	return c.subsystem.TriggerRootFlowCustomInput(c.id, name)
}

func (c *FlowComponent) onRootFlowFinished(x *FlowInstance) {
	for _, l := range c.finishedListeners {
		l(c, x)
	}
}

func (c *FlowComponent) onRootFlowCustomEvent(x *FlowInstance, name string) {
	for _, l := range c.customEventListeners {
		l(c, x, name)
	}
}
