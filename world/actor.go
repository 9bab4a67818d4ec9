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

package world

import "github.com/rulego/flowgraph/api/types"

var _ types.Actor = (*Actor)(nil)

// Actor 世界角色
// Actor is a world entity identified by id. Classes lists the actor class and its
// ancestors, most derived first.
type Actor struct {
	id      string
	classes []string
}

// NewActor creates an actor of the given classes.
func NewActor(id string, classes ...string) *Actor {
	return &Actor{id: id, classes: classes}
}

func (a *Actor) Id() string {
	return a.id
}

// Class returns the most derived class.
func (a *Actor) Class() string {
	if len(a.classes) == 0 {
		return ""
	}
	return a.classes[0]
}

func (a *Actor) IsA(class string) bool {
	for _, c := range a.classes {
		if c == class {
			return true
		}
	}
	return false
}
