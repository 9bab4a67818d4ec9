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

package engine

import (
	"fmt"

	"github.com/rulego/flowgraph/api/types"
)

var _ types.ComponentRegistry = (*CustomComponentRegistry)(nil)

// CustomComponentRegistry combines default and game specific node registries.
// Built in types take precedence, a game cannot shadow them.
type CustomComponentRegistry struct {
	defaultComponents types.ComponentRegistry
	customComponents  types.ComponentRegistry
}

// NewCustomComponentRegistry creates a registry resolving defaultComponents first,
// then customComponents. A nil customComponents gets an empty registry.
func NewCustomComponentRegistry(defaultComponents, customComponents types.ComponentRegistry) *CustomComponentRegistry {
	if customComponents == nil {
		customComponents = new(NodeComponentRegistry)
	}
	return &CustomComponentRegistry{
		defaultComponents: defaultComponents,
		customComponents:  customComponents,
	}
}

// Register adds a game node type. Types already provided by the default registry are rejected.
func (r *CustomComponentRegistry) Register(node types.Node) error {
	if _, ok := r.defaultComponents.GetComponents()[node.Type()]; ok {
		return fmt.Errorf("%w: %s is a built in node type", types.ErrNodeTypeExists, node.Type())
	}
	return r.customComponents.Register(node)
}

// Unregister removes a game node type.
func (r *CustomComponentRegistry) Unregister(componentType string) error {
	return r.customComponents.Unregister(componentType)
}

func (r *CustomComponentRegistry) NewNode(componentType string) (types.Node, error) {
	node, err := r.defaultComponents.NewNode(componentType)
	if err == nil {
		return node, err
	}
	return r.customComponents.NewNode(componentType)
}

// GetComponents returns both registries merged.
func (r *CustomComponentRegistry) GetComponents() map[string]types.Node {
	components := r.customComponents.GetComponents()
	for k, v := range r.defaultComponents.GetComponents() {
		components[k] = v
	}
	return components
}

func (r *CustomComponentRegistry) GetComponentDescriptors() types.ComponentDescriptorList {
	list := append(r.defaultComponents.GetComponentDescriptors(), r.customComponents.GetComponentDescriptors()...)
	list.Sort()
	return list
}

func (r *CustomComponentRegistry) DefaultComponents() types.ComponentRegistry {
	return r.defaultComponents
}

func (r *CustomComponentRegistry) CustomComponents() types.ComponentRegistry {
	return r.customComponents
}
