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
	"strings"

	"github.com/rulego/flowgraph/api/types"
	"github.com/rulego/flowgraph/components/route"
)

// ValidateAsset reports authoring errors of a definition: unknown node types, invalid
// configurations, node specific errors, dangling edges, missing start nodes and cycles
// made only of nodes that trigger their outputs synchronously.
// All issues are joined into one error.
func ValidateAsset(config types.Config, def *types.FlowAssetDef, assets types.AssetProvider) error {
	registry := config.ComponentsRegistry
	if registry == nil {
		registry = Registry
	}
	assets = &overlayAssets{def: def, base: assets}
	var errs []error
	type pins struct{ inputs, outputs []types.Pin }
	nodes := make(map[string]pins)
	//可重入节点同步触发输出
	reentrant := make(map[string]bool)
	var reroutes []rerouteMarker
	hasStart := false

	for _, nodeDef := range def.Metadata.Nodes {
		if _, ok := nodes[nodeDef.Id]; ok {
			errs = append(errs, fmt.Errorf("node %s: duplicate id", nodeDef.Id))
			continue
		}
		node, err := registry.NewNode(nodeDef.Type)
		if err != nil {
			errs = append(errs, fmt.Errorf("node %s: %w", nodeDef.Id, err))
			continue
		}
		configuration := nodeDef.Configuration
		if configuration == nil {
			configuration = make(types.Configuration)
		}
		if err := node.Init(config, processVariables(config, configuration)); err != nil {
			errs = append(errs, fmt.Errorf("node %s: %w", nodeDef.Id, err))
			continue
		}
		if v, ok := node.(types.Validator); ok {
			if err := v.Validate(def.Asset.Id, assets); err != nil {
				errs = append(errs, fmt.Errorf("node %s: %w", nodeDef.Id, err))
			}
		}
		if s, ok := node.(types.StartNode); ok && s.IsStartNode() {
			hasStart = true
		}
		if r, ok := node.(types.Reentrant); ok && r.Reentrant() {
			reentrant[nodeDef.Id] = true
		}
		if r, ok := node.(*route.NamedRerouteNode); ok && r.Config.Name != "" {
			reroutes = append(reroutes, rerouteMarker{id: nodeDef.Id, name: r.Config.Name, isInput: r.Config.IsInput})
		}
		inputs, outputs := nodePins(node, assets)
		nodes[nodeDef.Id] = pins{inputs: inputs, outputs: outputs}
		node.Destroy()
	}
	if !hasStart {
		errs = append(errs, errors.New("asset has no start node"))
	}

	for _, conn := range def.Metadata.Connections {
		from, ok := nodes[conn.FromId]
		if !ok {
			errs = append(errs, fmt.Errorf("connection %s.%s -> %s.%s: missing source node", conn.FromId, conn.FromPin, conn.ToId, conn.ToPin))
			continue
		}
		to, ok := nodes[conn.ToId]
		if !ok {
			errs = append(errs, fmt.Errorf("connection %s.%s -> %s.%s: missing target node", conn.FromId, conn.FromPin, conn.ToId, conn.ToPin))
			continue
		}
		if _, ok := types.FindPin(from.outputs, conn.FromPin); !ok {
			errs = append(errs, fmt.Errorf("connection %s.%s -> %s.%s: missing output pin", conn.FromId, conn.FromPin, conn.ToId, conn.ToPin))
		}
		if _, ok := types.FindPin(to.inputs, conn.ToPin); !ok {
			errs = append(errs, fmt.Errorf("connection %s.%s -> %s.%s: missing input pin", conn.FromId, conn.FromPin, conn.ToId, conn.ToPin))
		}
	}
	if cycle := synchronousCycle(def, reentrant, reroutes); len(cycle) > 0 {
		errs = append(errs, fmt.Errorf("%w: %s", types.ErrSynchronousCycle, strings.Join(cycle, " -> ")))
	}
	return errors.Join(errs...)
}

type rerouteMarker struct {
	id      string
	name    string
	isInput bool
}

// synchronousCycle returns the first cycle of reentrant nodes, following wired edges and
// the links between same named reroutes. Empty if there is none.
func synchronousCycle(def *types.FlowAssetDef, reentrant map[string]bool, reroutes []rerouteMarker) []string {
	next := make(map[string][]string)
	for _, conn := range def.Metadata.Connections {
		if reentrant[conn.FromId] && reentrant[conn.ToId] {
			next[conn.FromId] = append(next[conn.FromId], conn.ToId)
		}
	}
	for _, in := range reroutes {
		if !in.isInput {
			continue
		}
		for _, out := range reroutes {
			if !out.isInput && out.name == in.name {
				next[in.id] = append(next[in.id], out.id)
			}
		}
	}

	const (
		unvisited = iota
		visiting
		visited
	)
	color := make(map[string]int)
	var path []string
	var visit func(id string) []string
	visit = func(id string) []string {
		color[id] = visiting
		path = append(path, id)
		for _, to := range next[id] {
			switch color[to] {
			case visiting:
				for i, p := range path {
					if p == to {
						return append(append([]string(nil), path[i:]...), to)
					}
				}
			case unvisited:
				if cycle := visit(to); cycle != nil {
					return cycle
				}
			}
		}
		path = path[:len(path)-1]
		color[id] = visited
		return nil
	}
	for _, nodeDef := range def.Metadata.Nodes {
		if reentrant[nodeDef.Id] && color[nodeDef.Id] == unvisited {
			if cycle := visit(nodeDef.Id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// Validate validates a definition against this subsystem's registry and assets.
func (s *Subsystem) Validate(def *types.FlowAssetDef) error {
	return ValidateAsset(s.config, def, s)
}

// overlayAssets resolves the definition under validation before it is stored.
type overlayAssets struct {
	def  *types.FlowAssetDef
	base types.AssetProvider
}

func (o *overlayAssets) AssetDef(assetId string) (*types.FlowAssetDef, bool) {
	if o.def != nil && o.def.Asset.Id == assetId {
		return o.def, true
	}
	if o.base == nil {
		return nil, false
	}
	return o.base.AssetDef(assetId)
}
