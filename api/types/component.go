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

package types

import (
	"sort"
	"sync"
)

// ComponentRegistry 节点组件注册器
type ComponentRegistry interface {
	// Register adds a node prototype. Fails if the type already exists.
	Register(node Node) error
	// Unregister removes a node type.
	Unregister(componentType string) error
	// NewNode creates a new node of the given type.
	NewNode(componentType string) (Node, error)
	// GetComponents returns all registered prototypes keyed by type.
	GetComponents() map[string]Node
	// GetComponentDescriptors describes every registered type.
	GetComponentDescriptors() ComponentDescriptorList
}

// CategoryGetter 该接口是可选的，组件可以实现该接口，提供分类
type CategoryGetter interface {
	Category() string
}

// ComponentDescriptor describes a node type for tooling.
type ComponentDescriptor struct {
	Type       string `json:"type"`
	Category   string `json:"category"`
	InputPins  []Pin  `json:"inputPins"`
	OutputPins []Pin  `json:"outputPins"`
}

// ComponentDescriptorList 组件描述列表
type ComponentDescriptorList []ComponentDescriptor

// Sort orders descriptors by category then type.
func (c ComponentDescriptorList) Sort() {
	sort.Slice(c, func(i, j int) bool {
		if c[i].Category != c[j].Category {
			return c[i].Category < c[j].Category
		}
		return c[i].Type < c[j].Type
	})
}

// Describe builds the descriptor of a node prototype.
func Describe(node Node) ComponentDescriptor {
	d := ComponentDescriptor{Type: node.Type()}
	if c, ok := node.(CategoryGetter); ok {
		d.Category = c.Category()
	}
	d.InputPins, d.OutputPins = StaticPins(node)
	return d
}

// StaticPins returns the declared pins of a node, In/Out when it declares none.
func StaticPins(node Node) (inputs []Pin, outputs []Pin) {
	if p, ok := node.(PinsProvider); ok {
		return p.InputPins(), p.OutputPins()
	}
	return NewPins(DefaultInputPin), NewPins(DefaultOutputPin)
}

// SafeComponentSlice 安全的组件列表切片
type SafeComponentSlice struct {
	//组件列表
	components []Node
	sync.Mutex
}

// Add 线程安全地添加元素
func (p *SafeComponentSlice) Add(nodes ...Node) {
	p.Lock()
	defer p.Unlock()
	p.components = append(p.components, nodes...)
}

// Components 获取组件列表
func (p *SafeComponentSlice) Components() []Node {
	p.Lock()
	defer p.Unlock()
	return p.components
}
