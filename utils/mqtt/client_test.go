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

package mqtt

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientOptions(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		opts, err := ClientOptions(Config{Server: "tcp://127.0.0.1:1883"})
		require.Nil(t, err)
		assert.True(t, strings.HasPrefix(opts.ClientID, "flowgraph/"))
		assert.Equal(t, time.Second*60, opts.MaxReconnectInterval)
		require.Len(t, opts.Servers, 1)
		assert.Equal(t, "127.0.0.1:1883", opts.Servers[0].Host)
		assert.Nil(t, opts.TLSConfig)
	})

	t.Run("custom", func(t *testing.T) {
		opts, err := ClientOptions(Config{
			Server:               "tcp://127.0.0.1:1883",
			ClientID:             "server-1",
			MaxReconnectInterval: time.Second,
			CleanSession:         true,
		})
		require.Nil(t, err)
		assert.Equal(t, "server-1", opts.ClientID)
		assert.Equal(t, time.Second, opts.MaxReconnectInterval)
		assert.True(t, opts.CleanSession)
	})

	t.Run("missingCertificate", func(t *testing.T) {
		_, err := ClientOptions(Config{Server: "tcp://127.0.0.1:1883", CAFile: "/not/found/ca.pem"})
		assert.NotNil(t, err)
	})
}

func TestNewClientCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*300)
	defer cancel()
	start := time.Now()
	_, err := NewClient(ctx, Config{Server: "tcp://127.0.0.1:1"})
	assert.NotNil(t, err)
	assert.True(t, time.Since(start) < time.Second*10)
}
