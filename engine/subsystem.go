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

package engine

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/rulego/flowgraph/api/types"
	"github.com/rulego/flowgraph/world"
)

var _ types.Subsystem = (*Subsystem)(nil)

// ownerKey identifies the node owning a sub flow.
type ownerKey struct {
	instanceId string
	nodeId     string
}

type subscription struct {
	handle  types.SubscriptionHandle
	handler types.ComponentEventHandler
}

// NotifyHook observes notifications components send to graphs.
type NotifyHook func(component types.Component, tag types.Tag, mode types.NetMode)

// Subsystem 流程子系统
// Subsystem owns every live flow instance and the registry of identified components.
// It is not safe for concurrent use: all calls must come from the world loop.
type Subsystem struct {
	config types.Config
	timers types.TimerService
	assets AssetLoader
	//所有实例，按实例名
	instances map[string]*FlowInstance
	//根流程，按所属组件
	rootInstances map[string]*FlowInstance
	//子流程，按所属节点
	subFlows map[ownerKey]*FlowInstance
	//已注册组件
	components     map[string]types.Component
	componentOrder []string
	subscribers    map[types.ComponentEventKind][]subscription
	liveHandles    map[types.SubscriptionHandle]types.ComponentEventKind
	lastHandle     types.SubscriptionHandle
	notifyHooks    []NotifyHook
	loadedSaveGame *types.SaveGame
	//当前同步触发嵌套深度
	triggerDepth int
}

// NewSubsystem creates a subsystem reading asset templates from assets.
func NewSubsystem(assets AssetLoader, opts ...types.Option) *Subsystem {
	config := types.NewConfig(opts...)
	if config.ComponentsRegistry == nil {
		config.ComponentsRegistry = Registry
	}
	if config.Parser == nil {
		config.Parser = &JsonParser{}
	}
	if config.Timers == nil {
		config.Timers = world.NewTimerManager()
	}
	return &Subsystem{
		config:        config,
		timers:        config.Timers,
		assets:        assets,
		instances:     make(map[string]*FlowInstance),
		rootInstances: make(map[string]*FlowInstance),
		subFlows:      make(map[ownerKey]*FlowInstance),
		components:    make(map[string]types.Component),
		subscribers:   make(map[types.ComponentEventKind][]subscription),
		liveHandles:   make(map[types.SubscriptionHandle]types.ComponentEventKind),
	}
}

func (s *Subsystem) Config() types.Config {
	return s.config
}

func (s *Subsystem) Timers() types.TimerService {
	return s.timers
}

func (s *Subsystem) Assets() AssetLoader {
	return s.assets
}

func (s *Subsystem) AssetDef(assetId string) (*types.FlowAssetDef, bool) {
	if s.assets == nil {
		return nil, false
	}
	return s.assets.AssetDef(assetId)
}

// Instance returns a live instance by name.
func (s *Subsystem) Instance(instanceId string) (*FlowInstance, bool) {
	x, ok := s.instances[instanceId]
	return x, ok
}

// Instances returns every live instance ordered by name.
func (s *Subsystem) Instances() []*FlowInstance {
	out := make([]*FlowInstance, 0, len(s.instances))
	for _, x := range s.instances {
		out = append(out, x)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (s *Subsystem) newInstanceName(assetId string) string {
	return fmt.Sprintf("%s_%s", assetId, uuid.Must(uuid.NewV4()).String())
}

func (s *Subsystem) createInstance(assetId string, instanceName string) (*FlowInstance, error) {
	def, ok := s.AssetDef(assetId)
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrAssetNotFound, assetId)
	}
	if instanceName == "" {
		instanceName = s.newInstanceName(assetId)
	}
	if _, ok := s.instances[instanceName]; ok {
		return nil, fmt.Errorf("%w: %s", types.ErrInstanceExists, instanceName)
	}
	x, err := newFlowInstance(s, def, instanceName)
	if err != nil {
		return nil, err
	}
	s.instances[instanceName] = x
	return x, nil
}

// StartRootFlow creates and starts the root instance of assetId owned by ownerId.
func (s *Subsystem) StartRootFlow(ownerId string, assetId string, instanceName string) (*FlowInstance, error) {
	x, err := s.newRootFlow(ownerId, assetId, instanceName)
	if err != nil {
		return nil, err
	}
	x.initializeInstance()
	x.StartFlow()
	return x, nil
}

func (s *Subsystem) newRootFlow(ownerId string, assetId string, instanceName string) (*FlowInstance, error) {
	if ownerId == "" {
		return nil, errors.New("root flow owner id is empty")
	}
	if _, ok := s.rootInstances[ownerId]; ok {
		return nil, fmt.Errorf("%w: owner %s already runs a root flow", types.ErrInstanceExists, ownerId)
	}
	if def, ok := s.AssetDef(assetId); ok && def.Asset.SingleInstance {
		for _, root := range s.rootInstances {
			if root.AssetId() == assetId {
				return nil, fmt.Errorf("%w: %s", types.ErrSingleInstanceOnly, assetId)
			}
		}
	}
	x, err := s.createInstance(assetId, instanceName)
	if err != nil {
		return nil, err
	}
	x.ownerId = ownerId
	s.rootInstances[ownerId] = x
	return x, nil
}

// FinishRootFlow finishes and destroys the root instance owned by ownerId.
func (s *Subsystem) FinishRootFlow(ownerId string, policy types.FinishPolicy) error {
	x, ok := s.rootInstances[ownerId]
	if !ok {
		return fmt.Errorf("%w: root flow of %s", types.ErrInstanceNotFound, ownerId)
	}
	s.destroyInstance(x, policy)
	return nil
}

// RootFlow returns the root instance owned by ownerId.
func (s *Subsystem) RootFlow(ownerId string) (*FlowInstance, bool) {
	x, ok := s.rootInstances[ownerId]
	return x, ok
}

// TriggerRootFlowCustomInput forwards a custom input to the root instance of ownerId.
func (s *Subsystem) TriggerRootFlowCustomInput(ownerId string, name string) error {
	x, ok := s.rootInstances[ownerId]
	if !ok {
		return fmt.Errorf("%w: root flow of %s", types.ErrInstanceNotFound, ownerId)
	}
	x.TriggerCustomInput(name)
	return nil
}

// CreateSubFlow creates the child instance owned by owner. A preloaded child is only
// initialized; otherwise it is started unless it already runs.
func (s *Subsystem) CreateSubFlow(owner types.NodeContext, assetId string, instanceName string, preloading bool) (types.FlowInstance, error) {
	key := ownerKey{instanceId: owner.Instance().Id(), nodeId: owner.NodeId()}
	x, ok := s.subFlows[key]
	if !ok {
		var err error
		if x, err = s.createInstance(assetId, instanceName); err != nil {
			return nil, err
		}
		x.parentInstance, x.parentNode = key.instanceId, key.nodeId
		s.subFlows[key] = x
		x.initializeInstance()
	}
	if !preloading {
		x.StartFlow()
	}
	return x, nil
}

// LoadSubFlow restores the child instance owned by owner from the loaded save game.
func (s *Subsystem) LoadSubFlow(owner types.NodeContext, assetId string, instanceName string) (types.FlowInstance, error) {
	key := ownerKey{instanceId: owner.Instance().Id(), nodeId: owner.NodeId()}
	existing, ok := s.subFlows[key]
	if ok && existing.started {
		return existing, nil
	}
	if s.loadedSaveGame == nil {
		return nil, fmt.Errorf("%w: no save game loaded", types.ErrSaveNotFound)
	}
	record, ok := s.loadedSaveGame.Instance(instanceName)
	if !ok {
		return nil, fmt.Errorf("%w: instance %s", types.ErrSaveNotFound, instanceName)
	}
	if existing != nil {
		// preloaded, not started yet
		return existing, existing.load(record)
	}
	if record.AssetId != "" {
		assetId = record.AssetId
	}
	x, err := s.createInstance(assetId, instanceName)
	if err != nil {
		return nil, err
	}
	x.parentInstance, x.parentNode = key.instanceId, key.nodeId
	s.subFlows[key] = x
	x.initializeInstance()
	return x, x.load(record)
}

// RemoveSubFlow finishes and destroys the child instance owned by owner.
func (s *Subsystem) RemoveSubFlow(owner types.NodeContext, policy types.FinishPolicy) {
	key := ownerKey{instanceId: owner.Instance().Id(), nodeId: owner.NodeId()}
	if x, ok := s.subFlows[key]; ok {
		s.destroyInstance(x, policy)
	}
}

func (s *Subsystem) SubFlow(owner types.NodeContext) (types.FlowInstance, bool) {
	x, ok := s.subFlows[ownerKey{instanceId: owner.Instance().Id(), nodeId: owner.NodeId()}]
	if !ok {
		return nil, false
	}
	return x, true
}

// childrenOf returns sub flows owned by nodes of x, ordered by node id.
func (s *Subsystem) childrenOf(x *FlowInstance) []*FlowInstance {
	var keys []ownerKey
	for key := range s.subFlows {
		if key.instanceId == x.id {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].nodeId < keys[j].nodeId })
	out := make([]*FlowInstance, 0, len(keys))
	for _, key := range keys {
		out = append(out, s.subFlows[key])
	}
	return out
}

// destroyInstance finishes x, destroys its remaining children first and then x itself.
func (s *Subsystem) destroyInstance(x *FlowInstance, policy types.FinishPolicy) {
	if x.destroyed {
		return
	}
	x.FinishFlow(policy)
	for _, child := range s.childrenOf(x) {
		s.destroyInstance(child, policy)
	}
	x.destroy()
	delete(s.instances, x.id)
	if x.parentInstance != "" {
		key := ownerKey{instanceId: x.parentInstance, nodeId: x.parentNode}
		if s.subFlows[key] == x {
			delete(s.subFlows, key)
		}
	} else if s.rootInstances[x.ownerId] == x {
		delete(s.rootInstances, x.ownerId)
	}
}

func (s *Subsystem) ownerNode(x *FlowInstance) (*NodeCtx, bool) {
	parent, ok := s.instances[x.parentInstance]
	if !ok {
		return nil, false
	}
	return parent.Node(x.parentNode)
}

// onInstanceFinished runs when an end node of x completes.
func (s *Subsystem) onInstanceFinished(x *FlowInstance) {
	if x.parentInstance != "" {
		x.FinishFlow(types.FinishPolicyKeep)
		if owner, ok := s.ownerNode(x); ok {
			owner.ForceFinish()
		}
		return
	}
	s.destroyInstance(x, types.FinishPolicyKeep)
	if c, ok := s.components[x.ownerId].(rootFlowOwner); ok {
		c.onRootFlowFinished(x)
	}
}

func (s *Subsystem) onRootFlowCustomEvent(x *FlowInstance, name string) {
	if c, ok := s.components[x.ownerId].(rootFlowOwner); ok {
		c.onRootFlowCustomEvent(x, name)
	}
}

func (s *Subsystem) dropSavedInstance(instanceId string) {
	if s.loadedSaveGame != nil {
		s.loadedSaveGame.RemoveInstance(instanceId)
	}
}

// Shutdown destroys every root flow.
func (s *Subsystem) Shutdown() {
	for _, x := range s.rootFlowsOrdered() {
		s.destroyInstance(x, types.FinishPolicyKeep)
	}
}

func (s *Subsystem) rootFlowsOrdered() []*FlowInstance {
	owners := make([]string, 0, len(s.rootInstances))
	for owner := range s.rootInstances {
		owners = append(owners, owner)
	}
	sort.Strings(owners)
	out := make([]*FlowInstance, 0, len(owners))
	for _, owner := range owners {
		out = append(out, s.rootInstances[owner])
	}
	return out
}

// SaveGame captures every root flow and its sub flows.
func (s *Subsystem) SaveGame(slot string) (*types.SaveGame, error) {
	game := &types.SaveGame{Slot: slot, SavedAt: time.Now().UTC()}
	var errs []error
	var saveTree func(x *FlowInstance)
	saveTree = func(x *FlowInstance) {
		record, err := x.save()
		if err != nil {
			errs = append(errs, err)
		}
		game.Instances = append(game.Instances, record)
		for _, child := range s.childrenOf(x) {
			saveTree(child)
		}
	}
	for _, x := range s.rootFlowsOrdered() {
		saveTree(x)
	}
	return game, errors.Join(errs...)
}

// LoadGame restores root flows from game. A running root flow of the same owner is
// finished first. Sub flows are restored by their owning nodes.
func (s *Subsystem) LoadGame(game *types.SaveGame) error {
	s.loadedSaveGame = game
	var errs []error
	for _, record := range game.RootInstances() {
		if record.OwnerId == "" {
			continue
		}
		if x, ok := s.rootInstances[record.OwnerId]; ok {
			s.destroyInstance(x, types.FinishPolicyKeep)
		}
		if _, err := s.LoadRootFlow(record.OwnerId, record.InstanceName); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LoadRootFlow restores a single root instance from the loaded save game.
func (s *Subsystem) LoadRootFlow(ownerId string, instanceName string) (*FlowInstance, error) {
	if s.loadedSaveGame == nil {
		return nil, fmt.Errorf("%w: no save game loaded", types.ErrSaveNotFound)
	}
	record, ok := s.loadedSaveGame.Instance(instanceName)
	if !ok {
		return nil, fmt.Errorf("%w: instance %s", types.ErrSaveNotFound, instanceName)
	}
	x, err := s.newRootFlow(ownerId, record.AssetId, instanceName)
	if err != nil {
		return nil, err
	}
	x.initializeInstance()
	return x, x.load(record)
}

// LoadedSaveGame returns the save game passed to the last LoadGame.
func (s *Subsystem) LoadedSaveGame() *types.SaveGame {
	return s.loadedSaveGame
}
