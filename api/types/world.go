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

package types

import "time"

// TimerHandle identifies a scheduled callback. The zero handle is never issued.
type TimerHandle uint64

// TimerService 定时器服务
// TimerService schedules callbacks on the world loop.
// Cancel after fire and double cancel are no-ops.
type TimerService interface {
	// ScheduleAfter runs fn once d has elapsed. d <= 0 behaves as ScheduleNextTick.
	ScheduleAfter(d time.Duration, fn func()) TimerHandle
	// ScheduleNextTick runs fn on the next scheduling tick, never inline.
	ScheduleNextTick(fn func()) TimerHandle
	Cancel(handle TimerHandle)
	// RemainingTime returns the time left for a pending timer.
	RemainingTime(handle TimerHandle) (time.Duration, bool)
}

// Actor 世界中的角色
type Actor interface {
	Id() string
	IsA(class string) bool
}

// Component 角色上的流程组件
// Component is an identified actor component known to the subsystem.
type Component interface {
	Id() string
	Actor() Actor
	IsA(class string) bool
	IdentityTags() TagContainer
	// NotifyFromGraph delivers notify tags sent by a graph to this component.
	NotifyFromGraph(tags TagContainer, mode NetMode)
	// SubscribeNotify registers a handler for tags the component sends to graphs.
	SubscribeNotify(handler func(component Component, tag Tag)) SubscriptionHandle
	UnsubscribeNotify(handle SubscriptionHandle)
}

// SubscriptionHandle identifies an event subscription. The zero handle is never issued.
type SubscriptionHandle uint64

// ComponentEventKind 组件注册表事件类型
type ComponentEventKind int

const (
	ComponentRegistered ComponentEventKind = iota
	ComponentUnregistered
	ComponentTagsAdded
	ComponentTagsRemoved
)

func (k ComponentEventKind) String() string {
	switch k {
	case ComponentRegistered:
		return "registered"
	case ComponentUnregistered:
		return "unregistered"
	case ComponentTagsAdded:
		return "tagsAdded"
	case ComponentTagsRemoved:
		return "tagsRemoved"
	default:
		return "unknown"
	}
}

// ComponentEvent is dispatched by the subsystem when its component registry changes.
type ComponentEvent struct {
	Kind      ComponentEventKind
	Component Component
	// Tags changed by a tag event.
	Tags    TagContainer
	NetMode NetMode
}

// ComponentEventHandler handles registry events.
type ComponentEventHandler func(event ComponentEvent)
