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

// Package replication mirrors authority tag changes and graph notifications between
// game servers over MQTT.
//
// Changes made with NetModeAuthority are published to <prefix>/events. Messages from
// other servers are applied on the world loop with NetModeLocal, so they are never
// published again.
package replication

import (
	"encoding/json"
	"fmt"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/gofrs/uuid/v5"

	"github.com/rulego/flowgraph/api/types"
	"github.com/rulego/flowgraph/engine"
	"github.com/rulego/flowgraph/utils/mqtt"
)

const (
	KindTagsAdded   = "tagsAdded"
	KindTagsRemoved = "tagsRemoved"
	KindNotify      = "notify"

	DefaultTopicPrefix = "flowgraph"
)

// Message 复制消息
type Message struct {
	//发送方标识
	Origin      string   `json:"origin"`
	Kind        string   `json:"kind"`
	ComponentId string   `json:"componentId"`
	Tags        []string `json:"tags"`
}

// Transport publishes and subscribes raw payloads. *mqtt.Client implements it.
type Transport interface {
	Publish(topic string, qos byte, data []byte) error
	RegisterHandler(handler mqtt.Handler) error
	UnregisterHandler(topic string) error
}

// Poster hands work to the world loop. *world.Loop implements it.
type Poster interface {
	Post(fn func()) bool
}

// replica is a component whose tags can be changed by remote messages.
type replica interface {
	AddIdentityTags(tags types.TagContainer, mode types.NetMode)
	RemoveIdentityTags(tags types.TagContainer, mode types.NetMode)
	NotifyGraph(tag types.Tag, mode types.NetMode)
}

// Replicator 组件状态复制器
type Replicator struct {
	subsystem *engine.Subsystem
	transport Transport
	poster    Poster
	origin    string
	topic     string
	qos       byte
	logger    types.Logger

	handles []types.SubscriptionHandle
	mu      sync.RWMutex
	started bool
}

// NewReplicator creates a replicator. Start must be called on the world loop.
func NewReplicator(subsystem *engine.Subsystem, transport Transport, poster Poster, topicPrefix string, qos byte) *Replicator {
	if topicPrefix == "" {
		topicPrefix = DefaultTopicPrefix
	}
	r := &Replicator{
		subsystem: subsystem,
		transport: transport,
		poster:    poster,
		origin:    uuid.Must(uuid.NewV4()).String(),
		topic:     topicPrefix + "/events",
		qos:       qos,
		logger:    types.NewLogger(subsystem.Config().Logger),
	}
	subsystem.AddNotifyHook(r.onNotify)
	return r
}

// Origin returns the id this replicator stamps on its messages.
func (r *Replicator) Origin() string {
	return r.origin
}

func (r *Replicator) Topic() string {
	return r.topic
}

// Start subscribes to registry events and to the replication topic.
func (r *Replicator) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}
	if err := r.transport.RegisterHandler(mqtt.Handler{
		Topic: r.topic,
		Qos:   r.qos,
		Handle: func(c paho.Client, data paho.Message) {
			r.OnMessage(data.Payload())
		},
	}); err != nil {
		return err
	}
	r.handles = append(r.handles,
		r.subsystem.Subscribe(types.ComponentTagsAdded, r.onTagsEvent),
		r.subsystem.Subscribe(types.ComponentTagsRemoved, r.onTagsEvent),
	)
	r.started = true
	return nil
}

// Stop unsubscribes. It must be called on the world loop.
func (r *Replicator) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return nil
	}
	for _, h := range r.handles {
		r.subsystem.Unsubscribe(h)
	}
	r.handles = nil
	r.started = false
	return r.transport.UnregisterHandler(r.topic)
}

func (r *Replicator) isStarted() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.started
}

func (r *Replicator) onTagsEvent(event types.ComponentEvent) {
	if event.NetMode != types.NetModeAuthority {
		return
	}
	kind := KindTagsAdded
	if event.Kind == types.ComponentTagsRemoved {
		kind = KindTagsRemoved
	}
	r.publish(Message{Kind: kind, ComponentId: event.Component.Id(), Tags: event.Tags.Strings()})
}

func (r *Replicator) onNotify(component types.Component, tag types.Tag, mode types.NetMode) {
	if mode != types.NetModeAuthority || !r.isStarted() {
		return
	}
	r.publish(Message{Kind: KindNotify, ComponentId: component.Id(), Tags: []string{string(tag)}})
}

func (r *Replicator) publish(msg Message) {
	msg.Origin = r.origin
	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Errorf("replication marshal error: %v", err)
		return
	}
	if err := r.transport.Publish(r.topic, r.qos, data); err != nil {
		r.logger.Warnf("replication publish %s error: %v", msg.Kind, err)
	}
}

// OnMessage decodes a message from the transport and applies it on the world loop.
// Messages stamped with this replicator's origin are ignored.
func (r *Replicator) OnMessage(payload []byte) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		r.logger.Warnf("replication message is invalid: %v", err)
		return
	}
	if msg.Origin == r.origin {
		return
	}
	if !r.poster.Post(func() {
		if err := r.apply(msg); err != nil {
			r.logger.Warnf("replication apply error: %v", err)
		}
	}) {
		r.logger.Warnf("replication message dropped, world loop stopped")
	}
}

func (r *Replicator) apply(msg Message) error {
	component, ok := r.subsystem.Component(msg.ComponentId)
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrComponentNotFound, msg.ComponentId)
	}
	target, ok := component.(replica)
	if !ok {
		return fmt.Errorf("component %s does not accept replicated changes", msg.ComponentId)
	}
	tags := types.NewTagContainer(msg.Tags...)
	switch msg.Kind {
	case KindTagsAdded:
		target.AddIdentityTags(tags, types.NetModeLocal)
	case KindTagsRemoved:
		target.RemoveIdentityTags(tags, types.NetModeLocal)
	case KindNotify:
		for _, tag := range tags {
			target.NotifyGraph(tag, types.NetModeLocal)
		}
	default:
		return fmt.Errorf("unknown replication message kind %s", msg.Kind)
	}
	return nil
}
