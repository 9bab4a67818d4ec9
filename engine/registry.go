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
	"sync"

	"github.com/rulego/flowgraph/api/types"
	"github.com/rulego/flowgraph/components/action"
	"github.com/rulego/flowgraph/components/actor"
	"github.com/rulego/flowgraph/components/graph"
	"github.com/rulego/flowgraph/components/route"
)

// Registry is the default registry for flow node components.
var Registry = new(NodeComponentRegistry)

// init registers default components to the default component registry.
func init() {
	var components []types.Node
	components = append(components, graph.Registry.Components()...)
	components = append(components, route.Registry.Components()...)
	components = append(components, actor.Registry.Components()...)
	components = append(components, action.Registry.Components()...)

	for _, node := range components {
		_ = Registry.Register(node)
	}
}

var _ types.ComponentRegistry = (*NodeComponentRegistry)(nil)

// NodeComponentRegistry is a registry for flow node components.
type NodeComponentRegistry struct {
	// components is a map of node prototypes by type.
	components map[string]types.Node
	// RWMutex is a read/write mutex lock.
	sync.RWMutex
}

// Register adds a node component to the registry.
func (r *NodeComponentRegistry) Register(node types.Node) error {
	r.Lock()
	defer r.Unlock()
	if r.components == nil {
		r.components = make(map[string]types.Node)
	}
	if _, ok := r.components[node.Type()]; ok {
		return fmt.Errorf("%w. componentType=%s", types.ErrNodeTypeExists, node.Type())
	}
	r.components[node.Type()] = node

	return nil
}

// Unregister removes a component from the registry by its type.
func (r *NodeComponentRegistry) Unregister(componentType string) error {
	r.Lock()
	defer r.Unlock()
	if _, ok := r.components[componentType]; !ok {
		return fmt.Errorf("%w. componentType=%s", types.ErrNodeTypeNotFound, componentType)
	}
	delete(r.components, componentType)
	return nil
}

// NewNode creates a new instance of a node component by its type.
func (r *NodeComponentRegistry) NewNode(componentType string) (types.Node, error) {
	r.RLock()
	defer r.RUnlock()

	if node, ok := r.components[componentType]; !ok {
		return nil, fmt.Errorf("%w. componentType=%s", types.ErrNodeTypeNotFound, componentType)
	} else {
		return node.New(), nil
	}
}

// GetComponents returns a map of all registered components.
func (r *NodeComponentRegistry) GetComponents() map[string]types.Node {
	r.RLock()
	defer r.RUnlock()
	var components = map[string]types.Node{}
	for k, v := range r.components {
		components[k] = v
	}
	return components
}

// GetComponentDescriptors describes every registered component.
func (r *NodeComponentRegistry) GetComponentDescriptors() types.ComponentDescriptorList {
	r.RLock()
	defer r.RUnlock()
	list := make(types.ComponentDescriptorList, 0, len(r.components))
	for _, component := range r.components {
		list = append(list, types.Describe(component.New()))
	}
	list.Sort()
	return list
}
