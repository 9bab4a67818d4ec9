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
	"sort"
	"strings"
)

// Tag 层级标签，使用 "." 分隔，例如 "Npc.Guard.Captain"
// Tag is a hierarchical gameplay tag. "Npc.Guard" matches "Npc.Guard.Captain" non-exactly.
type Tag string

// Matches reports whether t equals other or is a descendant of it.
func (t Tag) Matches(other Tag) bool {
	if t == other {
		return true
	}
	return other != "" && strings.HasPrefix(string(t), string(other)+".")
}

// TagContainer is an ordered set of tags.
type TagContainer []Tag

// NewTagContainer builds a container, dropping empty and duplicate tags.
func NewTagContainer(tags ...string) TagContainer {
	var c TagContainer
	for _, tag := range tags {
		c.Add(Tag(tag))
	}
	return c
}

// Add adds a tag. It returns false if the tag was already present or empty.
func (c *TagContainer) Add(tag Tag) bool {
	if tag == "" || c.HasTagExact(tag) {
		return false
	}
	*c = append(*c, tag)
	return true
}

// Remove removes a tag. It returns false if the tag was not present.
func (c *TagContainer) Remove(tag Tag) bool {
	for i, t := range *c {
		if t == tag {
			*c = append((*c)[:i], (*c)[i+1:]...)
			return true
		}
	}
	return false
}

// IsEmpty reports whether the container has no tags.
func (c TagContainer) IsEmpty() bool {
	return len(c) == 0
}

// HasTag reports whether any tag of the container matches tag hierarchically.
func (c TagContainer) HasTag(tag Tag) bool {
	for _, t := range c {
		if t.Matches(tag) {
			return true
		}
	}
	return false
}

// HasTagExact reports whether tag is in the container.
func (c TagContainer) HasTagExact(tag Tag) bool {
	for _, t := range c {
		if t == tag {
			return true
		}
	}
	return false
}

// HasAny reports whether the container matches at least one of tags.
func (c TagContainer) HasAny(tags TagContainer) bool {
	for _, tag := range tags {
		if c.HasTag(tag) {
			return true
		}
	}
	return false
}

// HasAnyExact reports whether the container holds at least one of tags.
func (c TagContainer) HasAnyExact(tags TagContainer) bool {
	for _, tag := range tags {
		if c.HasTagExact(tag) {
			return true
		}
	}
	return false
}

// HasAll reports whether the container matches every one of tags.
func (c TagContainer) HasAll(tags TagContainer) bool {
	for _, tag := range tags {
		if !c.HasTag(tag) {
			return false
		}
	}
	return true
}

// HasAllExact reports whether the container holds exactly the same set as tags.
func (c TagContainer) HasAllExact(tags TagContainer) bool {
	return c.Equal(tags)
}

// Equal compares two containers as sets.
func (c TagContainer) Equal(other TagContainer) bool {
	a, b := c.sorted(), other.sorted()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Strings returns the tags as strings.
func (c TagContainer) Strings() []string {
	out := make([]string, 0, len(c))
	for _, t := range c {
		out = append(out, string(t))
	}
	return out
}

func (c TagContainer) sorted() []Tag {
	var out []Tag
	for _, t := range c {
		dup := false
		for _, o := range out {
			if o == t {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MatchType 标签匹配方式
type MatchType string

const (
	HasAny      MatchType = "HasAny"
	HasAll      MatchType = "HasAll"
	HasAnyExact MatchType = "HasAnyExact"
	HasAllExact MatchType = "HasAllExact"
)

// HasMatchingTags tests container against tags using matchType.
// An unknown match type behaves as HasAny.
func HasMatchingTags(container TagContainer, tags TagContainer, matchType MatchType) bool {
	switch matchType {
	case HasAll:
		return container.HasAll(tags)
	case HasAnyExact:
		return container.HasAnyExact(tags)
	case HasAllExact:
		return container.HasAllExact(tags)
	default:
		return container.HasAny(tags)
	}
}

// Identity 身份匹配条件
// Identity selects components by their identity tags and optional class filters.
type Identity struct {
	IdentityTags   []string  `json:"identityTags" mapstructure:"identityTags"`
	MatchType      MatchType `json:"matchType" mapstructure:"matchType"`
	ActorClass     string    `json:"actorClass,omitempty" mapstructure:"actorClass"`
	ComponentClass string    `json:"componentClass,omitempty" mapstructure:"componentClass"`
}

// Tags returns the identity tags as a container.
func (i Identity) Tags() TagContainer {
	return NewTagContainer(i.IdentityTags...)
}

// IsValid reports whether the identity can match anything at all.
func (i Identity) IsValid() bool {
	return !i.Tags().IsEmpty()
}

// Matches reports whether the component and its owning actor satisfy the identity.
func (i Identity) Matches(component Component) bool {
	if component == nil {
		return false
	}
	tags := i.Tags()
	if tags.IsEmpty() {
		return false
	}
	if i.ActorClass != "" {
		if actor := component.Actor(); actor == nil || !actor.IsA(i.ActorClass) {
			return false
		}
	}
	if i.ComponentClass != "" && !component.IsA(i.ComponentClass) {
		return false
	}
	return HasMatchingTags(component.IdentityTags(), tags, i.MatchType)
}
