/*
 * Copyright 2023 The RuleGo Authors.
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

package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulego/flowgraph/api/types"
	"github.com/rulego/flowgraph/engine"
	"github.com/rulego/flowgraph/test"
	"github.com/rulego/flowgraph/world"
)

func TestRegisterComponent(t *testing.T) {
	f := test.NewFlow(t)
	door := engine.NewFlowComponent("door", world.NewActor("door", "Door", "Actor"), "Door.Main")
	require.Nil(t, door.BeginPlay(f.Subsystem))
	assert.True(t, f.Subsystem.IsRegistered("door"))
	assert.ErrorIs(t, f.Subsystem.RegisterComponent(door), types.ErrComponentExists)
	assert.ErrorIs(t, f.Subsystem.UnregisterComponent("nobody"), types.ErrComponentNotFound)

	c, ok := f.Subsystem.Component("door")
	require.True(t, ok)
	assert.Equal(t, "door", c.Actor().Id())

	require.Nil(t, door.EndPlay())
	require.Nil(t, door.EndPlay())
	assert.False(t, f.Subsystem.IsRegistered("door"))
	assert.Len(t, f.Subsystem.Components(), 0)
}

func TestFindComponents(t *testing.T) {
	f := test.NewFlow(t)
	doors := []*engine.FlowComponent{
		engine.NewFlowComponent("d1", world.NewActor("a1", "Door", "Actor"), "Door.Main"),
		engine.NewFlowComponent("d2", world.NewActor("a2", "Gate", "Actor"), "Door.Main", "Door.Locked").WithClasses("Lock"),
		engine.NewFlowComponent("d3", world.NewActor("a3", "Door", "Actor"), "Door.Side"),
	}
	for _, d := range doors {
		require.Nil(t, d.BeginPlay(f.Subsystem))
	}
	ids := func(identity types.Identity) []string {
		var out []string
		for _, c := range f.Subsystem.FindComponents(identity) {
			out = append(out, c.Id())
		}
		return out
	}
	assert.Equal(t, []string{"d1", "d2", "d3"}, ids(types.Identity{IdentityTags: []string{"Door"}}))
	assert.Equal(t, []string(nil), ids(types.Identity{IdentityTags: []string{"Door"}, MatchType: types.HasAnyExact}))
	assert.Equal(t, []string{"d1"}, ids(types.Identity{IdentityTags: []string{"Door.Main"}, MatchType: types.HasAllExact}))
	assert.Equal(t, []string{"d2"}, ids(types.Identity{IdentityTags: []string{"Door.Main", "Door.Locked"}, MatchType: types.HasAll}))
	assert.Equal(t, []string{"d1", "d3"}, ids(types.Identity{IdentityTags: []string{"Door"}, ActorClass: "Door"}))
	assert.Equal(t, []string{"d2"}, ids(types.Identity{IdentityTags: []string{"Door"}, ComponentClass: "Lock"}))
	assert.Equal(t, []string{"d1", "d2", "d3"}, ids(types.Identity{IdentityTags: []string{"Door"}, ComponentClass: engine.FlowComponentClass}))
	assert.Equal(t, []string(nil), ids(types.Identity{}))
}

func TestDispatchSnapshot(t *testing.T) {
	f := test.NewFlow(t)
	s := f.Subsystem
	var calls []string
	var second, late types.SubscriptionHandle
	s.Subscribe(types.ComponentRegistered, func(event types.ComponentEvent) {
		calls = append(calls, "first:"+event.Component.Id())
		s.Unsubscribe(second)
		if late == 0 {
			late = s.Subscribe(types.ComponentRegistered, func(event types.ComponentEvent) {
				calls = append(calls, "late:"+event.Component.Id())
			})
		}
	})
	second = s.Subscribe(types.ComponentRegistered, func(event types.ComponentEvent) {
		calls = append(calls, "second:"+event.Component.Id())
	})
	assert.Equal(t, 2, s.SubscriberCount())

	require.Nil(t, engine.NewFlowComponent("c1", nil, "A").BeginPlay(s))
	assert.Equal(t, []string{"first:c1"}, calls)
	assert.Equal(t, 2, s.SubscriberCount())

	require.Nil(t, engine.NewFlowComponent("c2", nil, "A").BeginPlay(s))
	assert.Equal(t, []string{"first:c1", "first:c2", "late:c2"}, calls)

	s.Unsubscribe(late)
	s.Unsubscribe(late)
	s.Unsubscribe(12345)
	assert.Equal(t, 1, s.SubscriberCount())
}

func TestTagEvents(t *testing.T) {
	f := test.NewFlow(t)
	s := f.Subsystem
	var added, removed []string
	s.Subscribe(types.ComponentTagsAdded, func(event types.ComponentEvent) {
		added = append(added, event.Tags.Strings()...)
	})
	s.Subscribe(types.ComponentTagsRemoved, func(event types.ComponentEvent) {
		removed = append(removed, event.Tags.Strings()...)
	})

	c := engine.NewFlowComponent("c1", nil, "A")
	//未注册的组件不派发事件
	c.AddIdentityTag("B", types.NetModeLocal)
	s.OnTagsAdded(c, types.NewTagContainer("C"), types.NetModeLocal)
	assert.Len(t, added, 0)

	require.Nil(t, c.BeginPlay(s))
	c.AddIdentityTags(types.NewTagContainer("A", "D"), types.NetModeLocal)
	assert.Equal(t, []string{"D"}, added)
	c.AddIdentityTag("D", types.NetModeLocal)
	assert.Equal(t, []string{"D"}, added)

	c.RemoveIdentityTags(types.NewTagContainer("A", "Z"), types.NetModeLocal)
	assert.Equal(t, []string{"A"}, removed)
	assert.Equal(t, []string{"B", "D"}, c.IdentityTags().Strings())
}

func TestNotifyHook(t *testing.T) {
	f := test.NewFlow(t)
	var got []string
	f.Subsystem.AddNotifyHook(func(component types.Component, tag types.Tag, mode types.NetMode) {
		got = append(got, component.Id()+":"+string(tag))
	})
	c := engine.NewFlowComponent("c1", nil, "A")
	c.NotifyGraph("Ping", types.NetModeLocal)
	require.Nil(t, c.BeginPlay(f.Subsystem))
	c.BulkNotifyGraph(types.NewTagContainer("Ping", "Pong"), types.NetModeLocal)
	assert.Equal(t, []string{"c1:Ping", "c1:Pong"}, got)
}

func TestComponentRootFlow(t *testing.T) {
	f := test.NewFlow(t, doorAsset(true))
	door := engine.NewFlowComponent("door1", world.NewActor("door1", "Door"), "Door.Main")
	door.RootFlow = engine.RootFlowSettings{AssetId: "door", AutoStart: true, InstanceName: "door1_flow"}
	var events []string
	door.OnRootFlowCustomEvent(func(component *engine.FlowComponent, instance *engine.FlowInstance, eventName string) {
		events = append(events, instance.Id()+":"+eventName)
	})
	door.OnRootFlowFinished(func(component *engine.FlowComponent, instance *engine.FlowInstance) {
		events = append(events, instance.Id()+":finished")
	})
	require.Nil(t, door.BeginPlay(f.Subsystem))
	x, ok := door.RootFlowInstance()
	require.True(t, ok)
	assert.Equal(t, "door1_flow", x.Id())
	assert.Equal(t, []string{"door1_flow:Opened"}, events)

	f.Tick(1.1)
	assert.Equal(t, []string{"door1_flow:Opened", "door1_flow:finished"}, events)
	_, ok = door.RootFlowInstance()
	assert.False(t, ok)

	//手动启动，EndPlay 结束根流程
	_, err := door.StartRootFlow()
	require.Nil(t, err)
	assert.Equal(t, 1, f.Timers.Pending())
	require.Nil(t, door.EndPlay())
	_, ok = f.Subsystem.RootFlow("door1")
	assert.False(t, ok)
	assert.Equal(t, 0, f.Timers.Pending())
	assert.ErrorIs(t, door.FinishRootFlow(types.FinishPolicyKeep), types.ErrComponentNotFound)
}
