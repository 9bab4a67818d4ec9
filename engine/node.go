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
	"strings"

	"github.com/rulego/flowgraph/api/types"
	"github.com/rulego/flowgraph/utils/maps"
)

var _ types.NodeContext = (*NodeCtx)(nil)

// NodeCtx 节点组件实例
// NodeCtx wraps a node component with its activation state machine and is the
// types.NodeContext handed to the component.
type NodeCtx struct {
	//组件实例
	types.Node
	//所属流程实例
	instance *FlowInstance
	//组件配置
	SelfDefinition *types.NodeDef
	config         types.Config
	state          types.NodeState
	inputPins      []types.Pin
	outputPins     []types.Pin
	status         string
	errors         []string
}

// InitNodeCtx 初始化NodeCtx
func InitNodeCtx(config types.Config, instance *FlowInstance, selfDefinition *types.NodeDef) (*NodeCtx, error) {
	node, err := config.ComponentsRegistry.NewNode(selfDefinition.Type)
	if err != nil {
		return nil, err
	}
	if selfDefinition.Configuration == nil {
		selfDefinition.Configuration = make(types.Configuration)
	}
	configuration := processVariables(config, selfDefinition.Configuration)
	if err = node.Init(config, configuration); err != nil {
		return nil, fmt.Errorf("init node %s(%s): %w", selfDefinition.Id, selfDefinition.Type, err)
	}
	n := &NodeCtx{
		Node:           node,
		instance:       instance,
		SelfDefinition: selfDefinition,
		config:         config,
	}
	n.inputPins, n.outputPins = nodePins(node, instance.subsystem)
	return n, nil
}

// nodePins returns static pins followed by context pins.
func nodePins(node types.Node, assets types.AssetProvider) ([]types.Pin, []types.Pin) {
	inputs, outputs := types.StaticPins(node)
	inputs = append([]types.Pin(nil), inputs...)
	outputs = append([]types.Pin(nil), outputs...)
	if p, ok := node.(types.ContextPinsProvider); ok {
		ci, co := p.ContextPins(assets)
		inputs = append(inputs, ci...)
		outputs = append(outputs, co...)
	}
	return inputs, outputs
}

func (n *NodeCtx) NodeId() string {
	return n.SelfDefinition.Id
}

func (n *NodeCtx) NodeType() string {
	return n.SelfDefinition.Type
}

func (n *NodeCtx) State() types.NodeState {
	return n.state
}

func (n *NodeCtx) InputPins() []types.Pin {
	return n.inputPins
}

func (n *NodeCtx) OutputPins() []types.Pin {
	return n.outputPins
}

func (n *NodeCtx) IsDebugMode() bool {
	return n.SelfDefinition.DebugMode
}

// Status returns the node's own status, or the last error it logged.
func (n *NodeCtx) Status() string {
	if r, ok := n.Node.(types.StatusReporter); ok {
		if s := r.Status(); s != "" {
			return s
		}
	}
	return n.status
}

// Errors returns every error the node logged.
func (n *NodeCtx) Errors() []string {
	return n.errors
}

func (n *NodeCtx) Instance() types.FlowInstance {
	return n.instance
}

func (n *NodeCtx) Subsystem() types.Subsystem {
	return n.instance.subsystem
}

func (n *NodeCtx) Timers() types.TimerService {
	return n.instance.subsystem.timers
}

func (n *NodeCtx) Logger() types.Logger {
	return n.config.Logger
}

func (n *NodeCtx) Config() types.Config {
	return n.config
}

// executeInput is the edge resolution entry point.
// checkPin is false for instance level entries such as start and custom inputs.
func (n *NodeCtx) executeInput(pinName string, checkPin bool) {
	if n.state == types.Completed && !n.isReentrant() {
		n.config.Logger.Warnf("flow %s node %s already completed, input %s ignored", n.instance.id, n.NodeId(), pinName)
		return
	}
	if checkPin {
		if _, ok := types.FindPin(n.inputPins, pinName); !ok {
			n.config.Logger.Debugf("flow %s node %s has no input pin %s", n.instance.id, n.NodeId(), pinName)
			return
		}
	}
	n.activate()
	n.debug(types.In, pinName, "")
	n.Node.ExecuteInput(n, pinName)
}

func (n *NodeCtx) isReentrant() bool {
	r, ok := n.Node.(types.Reentrant)
	return ok && r.Reentrant()
}

func (n *NodeCtx) activate() {
	if n.state == types.Active {
		return
	}
	n.state = types.Active
	n.instance.activate(n)
}

// TriggerOutput finishes the node first when finish is set, then follows every edge
// leaving pinName in declaration order.
// A completed node that is not reentrant can no longer trigger outputs.
func (n *NodeCtx) TriggerOutput(pinName string, finish bool) {
	if n.state == types.Completed && !n.isReentrant() {
		n.config.Logger.Warnf("flow %s node %s already completed, output %s ignored", n.instance.id, n.NodeId(), pinName)
		return
	}
	if finish {
		n.Finish()
	} else if n.state == types.NeverActivated {
		//未经输入直接触发输出的节点视为激活，例如postStart
		n.activate()
	}
	if _, ok := types.FindPin(n.outputPins, pinName); !ok {
		n.config.Logger.Debugf("flow %s node %s has no output pin %s", n.instance.id, n.NodeId(), pinName)
	}
	n.debug(types.Out, pinName, "")
	n.instance.triggerOutput(n, pinName)
}

func (n *NodeCtx) TriggerFirstOutput(finish bool) {
	if len(n.outputPins) > 0 {
		n.TriggerOutput(n.outputPins[0].Name, finish)
	} else if finish {
		n.Finish()
	}
}

// Finish marks the node Completed and cleans it up. Finishing a completed node is a no-op.
func (n *NodeCtx) Finish() {
	if n.state == types.Completed {
		return
	}
	n.state = types.Completed
	n.instance.deactivate(n)
	n.Node.Cleanup(n)
	if end, ok := n.Node.(types.EndNode); ok && end.IsEndNode() {
		n.instance.onEndNodeFinished(n)
	}
}

func (n *NodeCtx) ForceFinish() {
	if f, ok := n.Node.(types.ForceFinisher); ok {
		f.ForceFinishNode(n)
		return
	}
	n.TriggerFirstOutput(true)
}

func (n *NodeCtx) LogError(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	n.status = msg
	n.errors = append(n.errors, msg)
	n.config.Logger.Errorf("flow %s(%s) node %s(%s): %s", n.instance.def.Asset.Id, n.instance.id, n.NodeId(), n.NodeType(), msg)
	n.debug("", "", msg)
}

// abort cleans the node up without running end node logic.
func (n *NodeCtx) abort() {
	n.state = types.Completed
	n.Node.Cleanup(n)
}

func (n *NodeCtx) save() (types.NodeRecord, error) {
	record := types.NodeRecord{NodeId: n.NodeId(), State: n.state}
	p, ok := n.Node.(types.Persistent)
	if !ok {
		return record, nil
	}
	v, err := p.OnSave(n)
	if err != nil {
		return record, fmt.Errorf("save node %s: %w", n.NodeId(), err)
	}
	if v != nil {
		payload, err := maps.Struct2Map(v)
		if err != nil {
			return record, fmt.Errorf("save node %s: %w", n.NodeId(), err)
		}
		record.Payload = payload
	}
	return record, nil
}

func (n *NodeCtx) load(record types.NodeRecord) error {
	if record.State == types.Active {
		n.activate()
	} else {
		n.state = record.State
	}
	if p, ok := n.Node.(types.Persistent); ok {
		if err := p.OnLoad(n, record.Payload); err != nil {
			return fmt.Errorf("load node %s: %w", n.NodeId(), err)
		}
	}
	return nil
}

func (n *NodeCtx) debug(flowType string, pin string, err string) {
	if n.config.OnDebug == nil || (err == "" && !n.IsDebugMode()) {
		return
	}
	n.config.OnDebug(types.DebugEvent{
		InstanceId: n.instance.id,
		AssetId:    n.instance.def.Asset.Id,
		FlowType:   flowType,
		NodeId:     n.NodeId(),
		NodeType:   n.NodeType(),
		Pin:        pin,
		Err:        err,
	})
}

// 使用全局配置替换节点占位符配置，例如：${global.propertyKey}
func processVariables(config types.Config, configuration types.Configuration) types.Configuration {
	result := configuration.Copy()
	if len(config.Properties) == 0 {
		return result
	}
	for key, value := range result {
		if strV, ok := value.(string); ok {
			for k, v := range config.Properties {
				strV = strings.ReplaceAll(strV, "${global."+k+"}", fmt.Sprint(v))
			}
			result[key] = strV
		}
	}
	return result
}
