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

package websocket

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulego/flowgraph/api/types"
)

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.Nil(t, err)
	return conn
}

func waitClients(h *Hub, n int) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.Clients() == n {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestHub(t *testing.T) {
	hub := NewHub(types.NopLogger())
	server := httptest.NewServer(hub)
	defer server.Close()

	all := dial(t, server, "")
	defer all.Close()
	filtered := dial(t, server, "?instanceId=door_1")
	defer filtered.Close()
	require.True(t, waitClients(hub, 2))

	hub.Record(types.DebugEvent{InstanceId: "chest_1", NodeId: "d1", FlowType: types.Out, Pin: "Completed"})
	hub.Record(types.DebugEvent{InstanceId: "door_1", NodeId: "l1", FlowType: types.In, Pin: "In"})

	var event types.DebugEvent
	_ = all.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.Nil(t, all.ReadJSON(&event))
	assert.Equal(t, "chest_1", event.InstanceId)
	assert.Equal(t, "Completed", event.Pin)
	require.Nil(t, all.ReadJSON(&event))
	assert.Equal(t, "door_1", event.InstanceId)

	_ = filtered.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.Nil(t, filtered.ReadJSON(&event))
	assert.Equal(t, "door_1", event.InstanceId)
	assert.Equal(t, "l1", event.NodeId)

	_ = filtered.Close()
	assert.True(t, waitClients(hub, 1))

	hub.Close()
	assert.Equal(t, 0, hub.Clients())
}

func TestHubDropsWhenFull(t *testing.T) {
	hub := NewHub(types.NopLogger())
	c := &client{queue: make(chan types.DebugEvent, 1), done: make(chan struct{})}
	hub.clients[c] = struct{}{}
	hub.Record(types.DebugEvent{NodeId: "a"})
	hub.Record(types.DebugEvent{NodeId: "b"})
	assert.Equal(t, uint64(1), hub.Dropped())
	assert.Equal(t, "a", (<-c.queue).NodeId)
}
