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

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulego/flowgraph/api/types"
	"github.com/rulego/flowgraph/engine"
	"github.com/rulego/flowgraph/test"
)

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	loader := engine.NewDirectoryLoader(dir, nil, 0, types.NopLogger())
	require.Nil(t, loader.Put(test.Asset("ok", test.Nodes(test.Node("start", "start", nil)))))

	var out bytes.Buffer
	cmd := newCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"validate", "--assets-dir", dir, "--log-level", "error"})
	require.Nil(t, cmd.Execute())
	assert.Contains(t, out.String(), "are valid")

	require.Nil(t, loader.Put(test.Asset("broken", test.Nodes(test.Node("x", "noSuchNode", nil)))))
	out.Reset()
	cmd = newCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"validate", "--assets-dir", dir, "--log-level", "error"})
	assert.NotNil(t, cmd.Execute())
	assert.Contains(t, out.String(), "broken:")
	assert.Contains(t, out.String(), "asset has no start node")
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "FLOWGRAPH_ASSETS_DIR", envName("assets-dir"))
}
