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

package action_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulego/flowgraph/api/types"
	"github.com/rulego/flowgraph/components/action"
	"github.com/rulego/flowgraph/engine"
	"github.com/rulego/flowgraph/test"
	"github.com/rulego/flowgraph/world"
)

// recordLogger 按级别记录日志
type recordLogger struct {
	lines []string
}

func (l *recordLogger) add(level string, format string, v ...interface{}) {
	l.lines = append(l.lines, level+" "+fmt.Sprintf(format, v...))
}

func (l *recordLogger) Printf(format string, v ...interface{}) { l.add("info", format, v...) }
func (l *recordLogger) Debugf(format string, v ...interface{}) { l.add("debug", format, v...) }
func (l *recordLogger) Infof(format string, v ...interface{})  { l.add("info", format, v...) }
func (l *recordLogger) Warnf(format string, v ...interface{})  { l.add("warn", format, v...) }
func (l *recordLogger) Errorf(format string, v ...interface{}) { l.add("error", format, v...) }

func TestLogNode(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		node, err := test.CreateAndInitNode("log", types.Configuration{}, action.Registry)
		require.Nil(t, err)
		logNode := node.(*action.LogNode)
		assert.Equal(t, "Log!", logNode.Config.Message)
		assert.Equal(t, action.VerbosityWarning, logNode.Config.Verbosity)
	})

	t.Run("UnknownVerbosity", func(t *testing.T) {
		_, err := test.CreateAndInitNode("log", types.Configuration{"verbosity": "loud"}, action.Registry)
		assert.NotNil(t, err)
	})

	t.Run("Levels", func(t *testing.T) {
		cases := map[string]string{
			action.VerbosityError:       "error",
			action.VerbosityWarning:     "warn",
			action.VerbosityDisplay:     "info",
			action.VerbosityLog:         "info",
			action.VerbosityVerbose:     "debug",
			action.VerbosityVeryVerbose: "debug",
		}
		for verbosity, level := range cases {
			logger := &recordLogger{}
			config := types.NewConfig(types.WithLogger(logger), types.WithProperties(map[string]interface{}{"player": "Ann"}))
			node := (&action.LogNode{}).New()
			require.Nil(t, node.Init(config, types.Configuration{"message": "hello ${global.player}", "verbosity": verbosity}))
			ctx := test.NewNodeContext(config, node)
			ctx.Execute(types.DefaultInputPin)
			//可重复进入
			ctx.Execute(types.DefaultInputPin)
			assert.Equal(t, []string{level + " hello Ann", level + " hello Ann"}, logger.lines, verbosity)
			assert.Equal(t, 2, ctx.Count(types.DefaultOutputPin))
		}
	})
}

func TestLogNodeInFlow(t *testing.T) {
	def := test.Asset("quest",
		test.Nodes(
			test.Node("start", "start", nil),
			test.Node("sv", "setVar", types.Configuration{"vars": map[string]string{"gold": "40 + 2"}}),
			test.Node("l1", "log", types.Configuration{"message": "gold: ${vars.gold}", "verbosity": "display"}),
			test.Node("l2", "log", types.Configuration{"message": "plain", "verbosity": "error", "omitAsset": true}),
		),
		test.Connect("start", "Out", "sv", "In"),
		test.Connect("sv", "Out", "l1", "In"),
		test.Connect("l1", "Out", "l2", "In"),
	)
	def.Asset.Name = "Quest"
	logger := &recordLogger{}
	subsystem := engine.NewSubsystem(engine.NewMemoryLoader(def),
		types.WithTimers(world.NewTimerManager()),
		types.WithLogger(logger),
	)
	require.Nil(t, subsystem.Validate(def))
	_, err := subsystem.StartRootFlow("player", "quest", "")
	require.Nil(t, err)
	assert.Equal(t, []string{"info [Quest]: gold: 42", "error plain"}, logger.lines)
}
