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

import (
	"context"
	"time"
)

// NodeRecord 节点存档记录
// NodeRecord is the saved state of one active node, keyed by node id.
type NodeRecord struct {
	NodeId  string    `json:"nodeId"`
	State   NodeState `json:"state"`
	Payload Payload   `json:"payload,omitempty"`
}

// InstanceRecord 实例存档记录
// InstanceRecord is the saved state of one flow instance. Sub flows point at the
// instance and node owning them.
type InstanceRecord struct {
	InstanceName   string       `json:"instanceName"`
	AssetId        string       `json:"assetId"`
	OwnerId        string       `json:"ownerId,omitempty"`
	ParentInstance string       `json:"parentInstance,omitempty"`
	ParentNode     string       `json:"parentNode,omitempty"`
	Vars           Vars         `json:"vars,omitempty"`
	Nodes          []NodeRecord `json:"nodes"`
}

// Node returns the record of a node.
func (r *InstanceRecord) Node(nodeId string) (NodeRecord, bool) {
	for _, n := range r.Nodes {
		if n.NodeId == nodeId {
			return n, true
		}
	}
	return NodeRecord{}, false
}

// SaveGame 存档
type SaveGame struct {
	Slot      string           `json:"slot"`
	SavedAt   time.Time        `json:"savedAt"`
	Instances []InstanceRecord `json:"instances"`
}

// Instance returns the record of an instance by name.
func (s *SaveGame) Instance(instanceName string) (*InstanceRecord, bool) {
	for i := range s.Instances {
		if s.Instances[i].InstanceName == instanceName {
			return &s.Instances[i], true
		}
	}
	return nil, false
}

// RemoveInstance drops the record of an instance.
func (s *SaveGame) RemoveInstance(instanceName string) {
	for i := range s.Instances {
		if s.Instances[i].InstanceName == instanceName {
			s.Instances = append(s.Instances[:i], s.Instances[i+1:]...)
			return
		}
	}
}

// RootInstances returns records that are not owned by a sub graph node.
func (s *SaveGame) RootInstances() []InstanceRecord {
	var out []InstanceRecord
	for _, r := range s.Instances {
		if r.ParentInstance == "" {
			out = append(out, r)
		}
	}
	return out
}

// SaveStore 存档存储
// SaveStore is a keyed record store for save games.
type SaveStore interface {
	Save(ctx context.Context, game *SaveGame) error
	// Load returns ErrSaveNotFound when the slot does not exist.
	Load(ctx context.Context, slot string) (*SaveGame, error)
	Delete(ctx context.Context, slot string) error
	List(ctx context.Context) ([]string, error)
	Close() error
}
