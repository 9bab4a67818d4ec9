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
	"fmt"

	"github.com/rulego/flowgraph/api/types"
)

// rootFlowOwner is implemented by components that want root flow callbacks.
type rootFlowOwner interface {
	onRootFlowFinished(x *FlowInstance)
	onRootFlowCustomEvent(x *FlowInstance, name string)
}

// RegisterComponent adds a component to the registry and dispatches ComponentRegistered.
func (s *Subsystem) RegisterComponent(component types.Component) error {
	id := component.Id()
	if _, ok := s.components[id]; ok {
		return fmt.Errorf("%w: %s", types.ErrComponentExists, id)
	}
	s.components[id] = component
	s.componentOrder = append(s.componentOrder, id)
	s.dispatch(types.ComponentEvent{Kind: types.ComponentRegistered, Component: component, NetMode: types.NetModeLocal})
	return nil
}

// UnregisterComponent removes a component and dispatches ComponentUnregistered.
func (s *Subsystem) UnregisterComponent(componentId string) error {
	component, ok := s.components[componentId]
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrComponentNotFound, componentId)
	}
	delete(s.components, componentId)
	for i, id := range s.componentOrder {
		if id == componentId {
			s.componentOrder = append(s.componentOrder[:i], s.componentOrder[i+1:]...)
			break
		}
	}
	s.dispatch(types.ComponentEvent{Kind: types.ComponentUnregistered, Component: component, NetMode: types.NetModeLocal})
	return nil
}

func (s *Subsystem) Component(componentId string) (types.Component, bool) {
	c, ok := s.components[componentId]
	return c, ok
}

// Components returns registered components in registration order.
func (s *Subsystem) Components() []types.Component {
	out := make([]types.Component, 0, len(s.componentOrder))
	for _, id := range s.componentOrder {
		out = append(out, s.components[id])
	}
	return out
}

// FindComponents returns registered components matching identity in registration order.
func (s *Subsystem) FindComponents(identity types.Identity) []types.Component {
	var out []types.Component
	for _, id := range s.componentOrder {
		if c := s.components[id]; identity.Matches(c) {
			out = append(out, c)
		}
	}
	return out
}

// IsRegistered reports whether the component is in the registry.
func (s *Subsystem) IsRegistered(componentId string) bool {
	_, ok := s.components[componentId]
	return ok
}

// Subscribe registers a handler for one registry event kind.
func (s *Subsystem) Subscribe(kind types.ComponentEventKind, handler types.ComponentEventHandler) types.SubscriptionHandle {
	s.lastHandle++
	h := s.lastHandle
	s.subscribers[kind] = append(s.subscribers[kind], subscription{handle: h, handler: handler})
	s.liveHandles[h] = kind
	return h
}

// Unsubscribe removes a subscription. Unknown handles are ignored.
func (s *Subsystem) Unsubscribe(handle types.SubscriptionHandle) {
	kind, ok := s.liveHandles[handle]
	if !ok {
		return
	}
	delete(s.liveHandles, handle)
	subs := s.subscribers[kind]
	for i, sub := range subs {
		if sub.handle == handle {
			s.subscribers[kind] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
}

// SubscriberCount returns the number of live subscriptions.
func (s *Subsystem) SubscriberCount() int {
	return len(s.liveHandles)
}

// dispatch calls the subscribers present when the event fired, skipping those that
// unsubscribed while it was being delivered.
func (s *Subsystem) dispatch(event types.ComponentEvent) {
	subs := append([]subscription(nil), s.subscribers[event.Kind]...)
	for _, sub := range subs {
		if _, live := s.liveHandles[sub.handle]; !live {
			continue
		}
		sub.handler(event)
	}
}

// OnTagsAdded dispatches ComponentTagsAdded for a registered component.
func (s *Subsystem) OnTagsAdded(component types.Component, tags types.TagContainer, mode types.NetMode) {
	if !s.IsRegistered(component.Id()) || tags.IsEmpty() {
		return
	}
	s.dispatch(types.ComponentEvent{Kind: types.ComponentTagsAdded, Component: component, Tags: tags, NetMode: mode})
}

// OnTagsRemoved dispatches ComponentTagsRemoved for a registered component.
func (s *Subsystem) OnTagsRemoved(component types.Component, tags types.TagContainer, mode types.NetMode) {
	if !s.IsRegistered(component.Id()) || tags.IsEmpty() {
		return
	}
	s.dispatch(types.ComponentEvent{Kind: types.ComponentTagsRemoved, Component: component, Tags: tags, NetMode: mode})
}

// AddNotifyHook observes notifications registered components send to graphs.
func (s *Subsystem) AddNotifyHook(hook NotifyHook) {
	s.notifyHooks = append(s.notifyHooks, hook)
}

func (s *Subsystem) onComponentNotify(component types.Component, tag types.Tag, mode types.NetMode) {
	for _, hook := range s.notifyHooks {
		hook(component, tag, mode)
	}
}
