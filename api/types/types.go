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

// Package types defines the contracts shared by the flow graph runtime, its node
// components and the host: node and context interfaces, identity matching,
// asset definitions, save records and configuration.
package types

import (
	"github.com/rulego/flowgraph/utils/maps"
)

// DefaultInputPin 默认输入端口
const DefaultInputPin = "In"

// DefaultOutputPin 默认输出端口
const DefaultOutputPin = "Out"

// Flow types passed to Config.OnDebug.
const (
	In  = "IN"
	Out = "OUT"
)

// NodeState 节点激活状态
// NodeState is the activation state of a flow node.
type NodeState int

const (
	// NeverActivated the node has not received any input yet.
	NeverActivated NodeState = iota
	// Active the node is executing and is part of the instance active set.
	Active
	// Completed the node finished. Terminal for non reentrant nodes.
	Completed
)

func (s NodeState) String() string {
	switch s {
	case NeverActivated:
		return "NeverActivated"
	case Active:
		return "Active"
	case Completed:
		return "Completed"
	default:
		return "Unknown"
	}
}

// FinishPolicy decides what happens to saved data when an instance is finished.
type FinishPolicy int

const (
	// FinishPolicyKeep keeps the instance record of the loaded save game.
	FinishPolicyKeep FinishPolicy = iota
	// FinishPolicyAbort drops the instance record of the loaded save game.
	FinishPolicyAbort
)

func (p FinishPolicy) String() string {
	if p == FinishPolicyAbort {
		return "Abort"
	}
	return "Keep"
}

// NetMode 复制模式
// NetMode tells whether a tag change or notification is replicated to peers.
type NetMode string

const (
	// NetModeLocal applies the change in this process only.
	NetModeLocal NetMode = "local"
	// NetModeAuthority applies the change and replicates it.
	NetModeAuthority NetMode = "authority"
)

// Configuration 节点配置
type Configuration map[string]interface{}

// Copy returns a shallow copy of the configuration.
func (c Configuration) Copy() Configuration {
	out := make(Configuration, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Vars instance scoped variables, readable from expressions and persisted with the instance.
type Vars map[string]interface{}

// Payload a node save payload, keyed by field name.
type Payload map[string]interface{}

// Decode decodes the payload into the node's payload struct.
func (p Payload) Decode(out interface{}) error {
	return maps.Map2Struct(p, out)
}

// Pin 端口
// Pin is a named connection point of a node. Wiring refers to pins by name.
type Pin struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
}

// Label returns the display name, or the name if none is set.
func (p Pin) Label() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Name
}

// NewPins creates pins from names.
func NewPins(names ...string) []Pin {
	pins := make([]Pin, 0, len(names))
	for _, name := range names {
		pins = append(pins, Pin{Name: name})
	}
	return pins
}

// FindPin returns the pin with the given name.
func FindPin(pins []Pin, name string) (Pin, bool) {
	for _, pin := range pins {
		if pin.Name == name {
			return pin, true
		}
	}
	return Pin{}, false
}

// Node 流程节点组件接口
// Node is the interface every flow node type implements.
// New node types are added by implementing it and registering a prototype.
type Node interface {
	// New creates a fresh instance of this node type.
	New() Node
	// Type returns the component type used in asset definitions.
	Type() string
	// Init decodes the node configuration. Called once when the owning instance is created.
	Init(config Config, configuration Configuration) error
	// ExecuteInput is invoked when an upstream output connected to pinName fires.
	ExecuteInput(ctx NodeContext, pinName string)
	// Cleanup releases outstanding timers and subscriptions. Must be idempotent.
	Cleanup(ctx NodeContext)
	// Destroy is called when the owning instance is destroyed.
	Destroy()
}

// PinsProvider is implemented by nodes whose pins differ from In/Out.
type PinsProvider interface {
	InputPins() []Pin
	OutputPins() []Pin
}

// ContextPinsProvider is implemented by nodes whose pin set is extended at runtime,
// either from their own configuration or from a referenced asset.
type ContextPinsProvider interface {
	ContextPins(assets AssetProvider) (inputs []Pin, outputs []Pin)
}

// Persistent is implemented by nodes that externalize resumption state.
type Persistent interface {
	// OnSave returns the payload struct, or nil when there is nothing to persist.
	OnSave(ctx NodeContext) (interface{}, error)
	// OnLoad restores the node from its payload. The node is already Active.
	OnLoad(ctx NodeContext, payload Payload) error
}

// Validator is implemented by nodes that can detect authoring errors.
type Validator interface {
	Validate(assetId string, assets AssetProvider) error
}

// InstanceInitializer is called once after every node of a new instance is created.
type InstanceInitializer interface {
	InitializeInstance(ctx NodeContext)
}

// ForceFinisher overrides what force finishing a node does.
type ForceFinisher interface {
	ForceFinishNode(ctx NodeContext)
}

// Reentrant is implemented by nodes that accept inputs after completing.
type Reentrant interface {
	Reentrant() bool
}

// EndNode marks nodes whose completion finishes the owning instance.
type EndNode interface {
	IsEndNode() bool
}

// StartNode marks nodes executed when an instance starts.
type StartNode interface {
	IsStartNode() bool
}

// CustomInputNode marks nodes that handle a named custom input of the instance.
type CustomInputNode interface {
	CustomInputName() string
}

// ContentPreloader is implemented by nodes that can prepare content ahead of execution.
type ContentPreloader interface {
	PreloadContent(ctx NodeContext)
	FlushContent(ctx NodeContext)
}

// StatusReporter exposes a short human readable status.
type StatusReporter interface {
	Status() string
}

// NodeContext 节点运行上下文
// NodeContext is the runtime handle given to a node. It is stable for the node's lifetime.
type NodeContext interface {
	NodeId() string
	NodeType() string
	State() NodeState
	// TriggerOutput fires every edge leaving pinName. When finish is true the node
	// completes and is cleaned up before the edges are followed.
	TriggerOutput(pinName string, finish bool)
	// TriggerFirstOutput triggers the first output pin, or only finishes if there is none.
	TriggerFirstOutput(finish bool)
	// Finish completes the node without triggering outputs.
	Finish()
	// ForceFinish completes the node from outside its normal flow.
	ForceFinish()
	// LogError logs an error for this node and keeps it as the node status.
	LogError(format string, args ...interface{})
	Instance() FlowInstance
	Subsystem() Subsystem
	Timers() TimerService
	Logger() Logger
	Config() Config
}

// FlowInstance 流程实例
// FlowInstance is a live execution of a flow asset.
type FlowInstance interface {
	Id() string
	AssetId() string
	AssetName() string
	// OwnerId is the owning component id for root instances.
	OwnerId() string
	FindNode(nodeId string) (NodeContext, bool)
	TriggerCustomInput(name string)
	TriggerCustomOutput(name string)
	Vars() Vars
	IsFinished() bool
	// FinishPolicy is the policy the instance finished with, Keep while running.
	FinishPolicy() FinishPolicy
}

// AssetProvider resolves asset definitions by id.
type AssetProvider interface {
	AssetDef(assetId string) (*FlowAssetDef, bool)
}

// Subsystem 流程子系统
// Subsystem is the process wide registry of instances and identified components.
type Subsystem interface {
	AssetProvider
	Component(componentId string) (Component, bool)
	FindComponents(identity Identity) []Component
	Subscribe(kind ComponentEventKind, handler ComponentEventHandler) SubscriptionHandle
	Unsubscribe(handle SubscriptionHandle)
	CreateSubFlow(owner NodeContext, assetId string, instanceName string, preloading bool) (FlowInstance, error)
	LoadSubFlow(owner NodeContext, assetId string, instanceName string) (FlowInstance, error)
	RemoveSubFlow(owner NodeContext, policy FinishPolicy)
	SubFlow(owner NodeContext) (FlowInstance, bool)
}
