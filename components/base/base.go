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

// Package base provides helpers shared by node components.
package base

import (
	"github.com/rulego/flowgraph/api/types"
)

// Keys of the expression and script environment.
const (
	VarsKey     = "vars"
	GlobalKey   = "global"
	PinKey      = "pin"
	NodeIdKey   = "nodeId"
	InstanceKey = "instance"
	AssetKey    = "asset"
)

var NodeUtils = &nodeUtils{}

type nodeUtils struct {
}

// GetEnv builds the environment expressions and scripts evaluate against.
// vars is the live instance variable map.
func (n *nodeUtils) GetEnv(ctx types.NodeContext, pin string) map[string]interface{} {
	env := map[string]interface{}{
		PinKey:    pin,
		NodeIdKey: ctx.NodeId(),
		GlobalKey: ctx.Config().Properties,
	}
	if instance := ctx.Instance(); instance != nil {
		env[VarsKey] = map[string]interface{}(instance.Vars())
		env[InstanceKey] = instance.Id()
		env[AssetKey] = instance.AssetId()
	}
	return env
}

// Noop provides empty Cleanup and Destroy for nodes that hold no resources.
type Noop struct{}

func (Noop) Cleanup(ctx types.NodeContext) {}

func (Noop) Destroy() {}
