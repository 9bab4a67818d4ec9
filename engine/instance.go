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
	"errors"
	"fmt"

	"github.com/rulego/flowgraph/api/types"
)

var _ types.FlowInstance = (*FlowInstance)(nil)

// MaxTriggerDepth 同步触发的最大嵌套深度，超过后剩余连线在下一帧执行
const MaxTriggerDepth = 128

type routeKey struct {
	nodeId string
	pin    string
}

// FlowInstance 流程实例
// FlowInstance is a live execution of a flow asset: one NodeCtx per template node,
// the edges resolved by (node, output pin) and the active node set.
type FlowInstance struct {
	id        string
	def       *types.FlowAssetDef
	subsystem *Subsystem
	config    types.Config
	//节点组件实例，按定义顺序
	nodes     map[string]*NodeCtx
	nodeOrder []string
	//节点路由，保持连线声明顺序
	routes map[routeKey][]types.Connection
	//当前激活节点
	active []string
	//根流程的所属组件
	ownerId string
	//子流程的所属实例和节点
	parentInstance string
	parentNode     string
	vars           types.Vars
	finishPolicy   types.FinishPolicy
	started        bool
	finished       bool
	destroyed      bool
}

// newFlowInstance creates every node of the template and resolves its edges.
func newFlowInstance(subsystem *Subsystem, def *types.FlowAssetDef, id string) (*FlowInstance, error) {
	x := &FlowInstance{
		id:        id,
		def:       def,
		subsystem: subsystem,
		config:    subsystem.config,
		nodes:     make(map[string]*NodeCtx, len(def.Metadata.Nodes)),
		routes:    make(map[routeKey][]types.Connection),
		vars:      make(types.Vars),
	}
	for _, nodeDef := range def.Metadata.Nodes {
		if _, ok := x.nodes[nodeDef.Id]; ok {
			x.destroy()
			return nil, fmt.Errorf("duplicate node id %s in asset %s", nodeDef.Id, def.Asset.Id)
		}
		nodeCtx, err := InitNodeCtx(x.config, x, nodeDef)
		if err != nil {
			x.destroy()
			return nil, err
		}
		x.nodes[nodeDef.Id] = nodeCtx
		x.nodeOrder = append(x.nodeOrder, nodeDef.Id)
	}
	for _, conn := range def.Metadata.Connections {
		key := routeKey{nodeId: conn.FromId, pin: conn.FromPin}
		x.routes[key] = append(x.routes[key], conn)
	}
	return x, nil
}

// initializeInstance lets nodes prepare themselves once the whole graph exists.
func (x *FlowInstance) initializeInstance() {
	for _, id := range x.nodeOrder {
		n := x.nodes[id]
		if init, ok := n.Node.(types.InstanceInitializer); ok {
			init.InitializeInstance(n)
		}
	}
}

func (x *FlowInstance) Id() string {
	return x.id
}

func (x *FlowInstance) AssetId() string {
	return x.def.Asset.Id
}

func (x *FlowInstance) AssetName() string {
	if x.def.Asset.Name != "" {
		return x.def.Asset.Name
	}
	return x.def.Asset.Id
}

func (x *FlowInstance) OwnerId() string {
	return x.ownerId
}

// Parent returns the instance and node owning this sub flow.
func (x *FlowInstance) Parent() (instanceId string, nodeId string) {
	return x.parentInstance, x.parentNode
}

func (x *FlowInstance) Definition() *types.FlowAssetDef {
	return x.def
}

func (x *FlowInstance) Vars() types.Vars {
	return x.vars
}

func (x *FlowInstance) IsFinished() bool {
	return x.finished
}

// FinishPolicy returns the policy the instance finished with, Keep while running.
func (x *FlowInstance) FinishPolicy() types.FinishPolicy {
	return x.finishPolicy
}

func (x *FlowInstance) IsStarted() bool {
	return x.started
}

func (x *FlowInstance) FindNode(nodeId string) (types.NodeContext, bool) {
	n, ok := x.nodes[nodeId]
	if !ok {
		return nil, false
	}
	return n, true
}

// Node returns the node context by id.
func (x *FlowInstance) Node(nodeId string) (*NodeCtx, bool) {
	n, ok := x.nodes[nodeId]
	return n, ok
}

// Nodes returns every node in definition order.
func (x *FlowInstance) Nodes() []*NodeCtx {
	out := make([]*NodeCtx, 0, len(x.nodeOrder))
	for _, id := range x.nodeOrder {
		out = append(out, x.nodes[id])
	}
	return out
}

// ActiveNodes returns the ids of active nodes in activation order.
func (x *FlowInstance) ActiveNodes() []string {
	return append([]string(nil), x.active...)
}

// StartFlow executes every start node.
func (x *FlowInstance) StartFlow() {
	if x.started || x.finished {
		return
	}
	x.started = true
	found := false
	for _, id := range x.nodeOrder {
		n := x.nodes[id]
		if s, ok := n.Node.(types.StartNode); ok && s.IsStartNode() {
			found = true
			n.executeInput(types.DefaultInputPin, false)
			if x.finished {
				return
			}
		}
	}
	if !found {
		x.config.Logger.Warnf("flow %s(%s) has no start node", x.def.Asset.Id, x.id)
	}
}

// TriggerCustomInput enters the graph through custom input nodes named name.
// Unknown names are ignored.
func (x *FlowInstance) TriggerCustomInput(name string) {
	if x.finished {
		return
	}
	for _, id := range x.nodeOrder {
		n := x.nodes[id]
		if c, ok := n.Node.(types.CustomInputNode); ok && c.CustomInputName() == name {
			n.executeInput(types.DefaultInputPin, false)
			if x.finished {
				return
			}
		}
	}
}

// TriggerCustomOutput leaves the graph: sub flows trigger the owning node's pin of the
// same name, root flows notify the owning component.
func (x *FlowInstance) TriggerCustomOutput(name string) {
	if x.parentInstance != "" {
		if owner, ok := x.subsystem.ownerNode(x); ok {
			owner.TriggerOutput(name, false)
		}
		return
	}
	x.subsystem.onRootFlowCustomEvent(x, name)
}

// PreloadContent asks every node able to prepare content ahead of execution to do so.
func (x *FlowInstance) PreloadContent() {
	for _, id := range x.nodeOrder {
		n := x.nodes[id]
		if p, ok := n.Node.(types.ContentPreloader); ok {
			p.PreloadContent(n)
		}
	}
}

// FlushContent releases content prepared by PreloadContent.
func (x *FlowInstance) FlushContent() {
	for _, id := range x.nodeOrder {
		n := x.nodes[id]
		if p, ok := n.Node.(types.ContentPreloader); ok {
			p.FlushContent(n)
		}
	}
}

// FinishFlow cleans up every active node and marks the instance finished.
func (x *FlowInstance) FinishFlow(policy types.FinishPolicy) {
	if x.finished {
		return
	}
	x.finished = true
	x.finishPolicy = policy
	active := x.active
	x.active = nil
	for _, id := range active {
		x.nodes[id].abort()
	}
	if policy == types.FinishPolicyAbort {
		x.subsystem.dropSavedInstance(x.id)
	}
}

func (x *FlowInstance) triggerOutput(from *NodeCtx, pin string) {
	x.followEdges(x.routes[routeKey{nodeId: from.NodeId(), pin: pin}])
}

// followEdges executes the targets of conns. Past MaxTriggerDepth nested triggers the
// edges are handed to the next tick.
func (x *FlowInstance) followEdges(conns []types.Connection) {
	if len(conns) == 0 {
		return
	}
	s := x.subsystem
	if s.triggerDepth >= MaxTriggerDepth {
		x.config.Logger.Warnf("flow %s trigger depth exceeds %d, edges of %s.%s deferred to next tick", x.id, MaxTriggerDepth, conns[0].FromId, conns[0].FromPin)
		s.timers.ScheduleNextTick(func() {
			x.followEdges(conns)
		})
		return
	}
	s.triggerDepth++
	defer func() {
		s.triggerDepth--
	}()
	for _, conn := range conns {
		if x.finished {
			return
		}
		target, ok := x.nodes[conn.ToId]
		if !ok {
			x.config.Logger.Debugf("flow %s edge %s.%s points to missing node %s", x.id, conn.FromId, conn.FromPin, conn.ToId)
			continue
		}
		target.executeInput(conn.ToPin, true)
	}
}

func (x *FlowInstance) activate(n *NodeCtx) {
	for _, id := range x.active {
		if id == n.NodeId() {
			return
		}
	}
	x.active = append(x.active, n.NodeId())
}

func (x *FlowInstance) deactivate(n *NodeCtx) {
	for i, id := range x.active {
		if id == n.NodeId() {
			x.active = append(x.active[:i], x.active[i+1:]...)
			return
		}
	}
}

func (x *FlowInstance) onEndNodeFinished(n *NodeCtx) {
	if x.finished {
		return
	}
	x.subsystem.onInstanceFinished(x)
}

func (x *FlowInstance) save() (types.InstanceRecord, error) {
	record := types.InstanceRecord{
		InstanceName:   x.id,
		AssetId:        x.def.Asset.Id,
		OwnerId:        x.ownerId,
		ParentInstance: x.parentInstance,
		ParentNode:     x.parentNode,
		Vars:           make(types.Vars, len(x.vars)),
	}
	for k, v := range x.vars {
		record.Vars[k] = v
	}
	var errs []error
	for _, id := range x.active {
		nodeRecord, err := x.nodes[id].save()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		record.Nodes = append(record.Nodes, nodeRecord)
	}
	return record, errors.Join(errs...)
}

func (x *FlowInstance) load(record *types.InstanceRecord) error {
	x.started = true
	for k, v := range record.Vars {
		x.vars[k] = v
	}
	var errs []error
	for _, nodeRecord := range record.Nodes {
		n, ok := x.nodes[nodeRecord.NodeId]
		if !ok {
			x.config.Logger.Warnf("flow %s saved node %s no longer exists", x.id, nodeRecord.NodeId)
			continue
		}
		if err := n.load(nodeRecord); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (x *FlowInstance) destroy() {
	if x.destroyed {
		return
	}
	x.destroyed = true
	for _, id := range x.nodeOrder {
		x.nodes[id].Node.Destroy()
	}
}
