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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type testActor struct {
	id      string
	classes []string
}

func (a *testActor) Id() string { return a.id }
func (a *testActor) IsA(class string) bool {
	for _, c := range a.classes {
		if c == class {
			return true
		}
	}
	return false
}

type testComponent struct {
	actor   *testActor
	classes []string
	tags    TagContainer
}

func (c *testComponent) Id() string                 { return c.actor.id + ".flow" }
func (c *testComponent) Actor() Actor               { return c.actor }
func (c *testComponent) IdentityTags() TagContainer { return c.tags }
func (c *testComponent) IsA(class string) bool {
	for _, cl := range c.classes {
		if cl == class {
			return true
		}
	}
	return false
}
func (c *testComponent) NotifyFromGraph(tags TagContainer, mode NetMode) {}
func (c *testComponent) SubscribeNotify(handler func(component Component, tag Tag)) SubscriptionHandle {
	return 0
}
func (c *testComponent) UnsubscribeNotify(handle SubscriptionHandle) {}

func TestTagMatches(t *testing.T) {
	assert.True(t, Tag("Npc.Guard").Matches("Npc.Guard"))
	assert.True(t, Tag("Npc.Guard.Captain").Matches("Npc.Guard"))
	assert.False(t, Tag("Npc.Guard").Matches("Npc.Guard.Captain"))
	assert.False(t, Tag("Npc.GuardDog").Matches("Npc.Guard"))
	assert.False(t, Tag("Npc").Matches(""))
}

func TestTagContainer(t *testing.T) {
	c := NewTagContainer("A", "B", "A", "")
	assert.Equal(t, TagContainer{"A", "B"}, c)
	assert.False(t, c.Add("B"))
	assert.True(t, c.Add("C"))
	assert.True(t, c.Remove("A"))
	assert.False(t, c.Remove("A"))
	assert.Equal(t, []string{"B", "C"}, c.Strings())
	assert.True(t, NewTagContainer("X", "Y").Equal(NewTagContainer("Y", "X")))
}

func TestHasMatchingTags(t *testing.T) {
	identity := NewTagContainer("Npc.Guard", "Quest.Target")

	tests := []struct {
		name      string
		component TagContainer
		want      map[MatchType]bool
	}{
		{
			name:      "equal",
			component: NewTagContainer("Quest.Target", "Npc.Guard"),
			want:      map[MatchType]bool{HasAny: true, HasAll: true, HasAnyExact: true, HasAllExact: true},
		},
		{
			name:      "overlap",
			component: NewTagContainer("Npc.Guard", "Faction.Red"),
			want:      map[MatchType]bool{HasAny: true, HasAll: false, HasAnyExact: true, HasAllExact: false},
		},
		{
			name:      "disjoint",
			component: NewTagContainer("Faction.Red"),
			want:      map[MatchType]bool{HasAny: false, HasAll: false, HasAnyExact: false, HasAllExact: false},
		},
		{
			name:      "superset",
			component: NewTagContainer("Npc.Guard", "Quest.Target", "Faction.Red"),
			want:      map[MatchType]bool{HasAny: true, HasAll: true, HasAnyExact: true, HasAllExact: false},
		},
		{
			name:      "subset",
			component: NewTagContainer("Quest.Target"),
			want:      map[MatchType]bool{HasAny: true, HasAll: false, HasAnyExact: true, HasAllExact: false},
		},
		{
			name:      "children",
			component: NewTagContainer("Npc.Guard.Captain", "Quest.Target.Main"),
			want:      map[MatchType]bool{HasAny: true, HasAll: true, HasAnyExact: false, HasAllExact: false},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for matchType, want := range tt.want {
				assert.Equal(t, want, HasMatchingTags(tt.component, identity, matchType), matchType)
			}
		})
	}
}

func TestIdentityMatches(t *testing.T) {
	guard := &testComponent{
		actor:   &testActor{id: "guard_1", classes: []string{"Pawn", "Character"}},
		classes: []string{"FlowComponent"},
		tags:    NewTagContainer("Npc.Guard"),
	}

	t.Run("emptyTags", func(t *testing.T) {
		identity := Identity{MatchType: HasAny}
		assert.False(t, identity.IsValid())
		assert.False(t, identity.Matches(guard))
	})
	t.Run("tags", func(t *testing.T) {
		identity := Identity{IdentityTags: []string{"Npc"}, MatchType: HasAny}
		assert.True(t, identity.Matches(guard))
		identity.MatchType = HasAnyExact
		assert.False(t, identity.Matches(guard))
	})
	t.Run("actorFilter", func(t *testing.T) {
		identity := Identity{IdentityTags: []string{"Npc.Guard"}, MatchType: HasAll, ActorClass: "Character"}
		assert.True(t, identity.Matches(guard))
		identity.ActorClass = "Vehicle"
		assert.False(t, identity.Matches(guard))
	})
	t.Run("componentFilter", func(t *testing.T) {
		identity := Identity{IdentityTags: []string{"Npc.Guard"}, MatchType: HasAllExact, ComponentClass: "FlowComponent"}
		assert.True(t, identity.Matches(guard))
		identity.ComponentClass = "AudioComponent"
		assert.False(t, identity.Matches(guard))
	})
	t.Run("nil", func(t *testing.T) {
		identity := Identity{IdentityTags: []string{"Npc.Guard"}}
		assert.False(t, identity.Matches(nil))
	})
}
