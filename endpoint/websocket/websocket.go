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

// Package websocket streams node debug events to websocket clients.
//
// Hub.Record is passed to the subsystem with types.WithOnDebug. Each client gets a
// buffered queue; events are dropped for a client whose queue is full.
package websocket

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rulego/flowgraph/api/types"
)

const (
	//默认每个连接缓存的事件数
	DefaultQueueSize = 256
	writeWait        = 5 * time.Second
)

type client struct {
	conn *websocket.Conn
	//只接收该实例的事件，空表示全部
	instanceId string
	queue      chan types.DebugEvent
	done       chan struct{}
	closeOnce  sync.Once
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// Hub 调试事件广播
type Hub struct {
	//64位对齐
	dropped   uint64
	Upgrader  websocket.Upgrader
	QueueSize int
	logger    types.Logger

	clients map[*client]struct{}
	sync.RWMutex
}

// NewHub creates a hub accepting any origin.
func NewHub(logger types.Logger) *Hub {
	return &Hub{
		Upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		QueueSize: DefaultQueueSize,
		logger:    types.NewLogger(logger),
		clients:   make(map[*client]struct{}),
	}
}

// Record broadcasts event. It never blocks.
func (h *Hub) Record(event types.DebugEvent) {
	h.RLock()
	defer h.RUnlock()
	for c := range h.clients {
		if c.instanceId != "" && c.instanceId != event.InstanceId {
			continue
		}
		select {
		case c.queue <- event:
		default:
			atomic.AddUint64(&h.dropped, 1)
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.RLock()
	defer h.RUnlock()
	return len(h.clients)
}

// Dropped returns how many events were dropped for slow clients.
func (h *Hub) Dropped() uint64 {
	return atomic.LoadUint64(&h.dropped)
}

// ServeHTTP upgrades the request. The query parameter instanceId filters events.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnf("websocket upgrade error: %v", err)
		return
	}
	size := h.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	c := &client{
		conn:       conn,
		instanceId: r.URL.Query().Get("instanceId"),
		queue:      make(chan types.DebugEvent, size),
		done:       make(chan struct{}),
	}
	h.Lock()
	h.clients[c] = struct{}{}
	h.Unlock()

	go h.writeLoop(c)
	//读取直到连接关闭，客户端消息被忽略
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(c)
}

func (h *Hub) writeLoop(c *client) {
	defer h.remove(c)
	for {
		select {
		case <-c.done:
			return
		case event := <-c.queue:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(event); err != nil {
				h.logger.Debugf("websocket write error: %v", err)
				return
			}
		}
	}
}

func (h *Hub) remove(c *client) {
	h.Lock()
	delete(h.clients, c)
	h.Unlock()
	c.close()
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.Lock()
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.Unlock()
	for c := range clients {
		c.close()
	}
}
