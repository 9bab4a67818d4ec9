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

package types

// FlowAssetDef 流程资产定义
// FlowAssetDef is the immutable template of a flow graph.
//
//	{
//	  "asset": {"id": "quest_intro", "name": "Quest intro", "customInputs": ["Skip"]},
//	  "metadata": {
//	    "nodes": [
//	      {"id": "start", "type": "start"},
//	      {"id": "s1", "type": "log", "configuration": {"message": "hello"}},
//	      {"id": "end", "type": "finish"}
//	    ],
//	    "connections": [
//	      {"fromId": "start", "fromPin": "Out", "toId": "s1", "toPin": "In"},
//	      {"fromId": "s1", "fromPin": "Out", "toId": "end", "toPin": "In"}
//	    ]
//	  }
//	}
type FlowAssetDef struct {
	Asset    AssetInfo     `json:"asset"`
	Metadata AssetMetadata `json:"metadata"`
}

// AssetInfo 资产基础信息
type AssetInfo struct {
	Id   string `json:"id"`
	Name string `json:"name"`
	// CustomInputs names a parent sub graph node may forward into the instance.
	CustomInputs []string `json:"customInputs,omitempty"`
	// CustomOutputs names the instance may forward to its owner.
	CustomOutputs []string `json:"customOutputs,omitempty"`
	// SingleInstance forbids running more than one root instance of the asset.
	SingleInstance bool `json:"singleInstance,omitempty"`

	AdditionalInfo map[string]interface{} `json:"additionalInfo,omitempty"`
}

// AssetMetadata 节点和连线
type AssetMetadata struct {
	Nodes       []*NodeDef   `json:"nodes"`
	Connections []Connection `json:"connections"`
}

// NodeDef 节点定义
type NodeDef struct {
	Id             string                 `json:"id"`
	Type           string                 `json:"type"`
	Name           string                 `json:"name,omitempty"`
	DebugMode      bool                   `json:"debugMode,omitempty"`
	Configuration  Configuration          `json:"configuration,omitempty"`
	AdditionalInfo map[string]interface{} `json:"additionalInfo,omitempty"`
}

// Connection 连线，按名称引用端口
// Connection wires an output pin to an input pin, both by name.
type Connection struct {
	FromId  string `json:"fromId"`
	FromPin string `json:"fromPin"`
	ToId    string `json:"toId"`
	ToPin   string `json:"toPin"`
}

// Node returns the node definition with the given id.
func (d *FlowAssetDef) Node(nodeId string) (*NodeDef, bool) {
	for _, n := range d.Metadata.Nodes {
		if n.Id == nodeId {
			return n, true
		}
	}
	return nil, false
}

// NodesOfType returns node definitions of a type in declaration order.
func (d *FlowAssetDef) NodesOfType(nodeType string) []*NodeDef {
	var out []*NodeDef
	for _, n := range d.Metadata.Nodes {
		if n.Type == nodeType {
			out = append(out, n)
		}
	}
	return out
}
