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

package types

import "time"

// DebugEvent is passed to Config.OnDebug when a node receives an input or fires an output.
type DebugEvent struct {
	InstanceId string `json:"instanceId"`
	AssetId    string `json:"assetId"`
	// FlowType is In or Out.
	FlowType string `json:"flowType"`
	NodeId   string `json:"nodeId"`
	NodeType string `json:"nodeType"`
	Pin      string `json:"pin"`
	// Err is set for errors logged by the node.
	Err string `json:"err,omitempty"`
}

// Parser 资产定义解析器
type Parser interface {
	DecodeFlowAsset(data []byte) (*FlowAssetDef, error)
	EncodeFlowAsset(def *FlowAssetDef) ([]byte, error)
}

// Config defines the configuration of the flow subsystem.
type Config struct {
	// OnDebug is called for every node input and output of nodes with debugMode, and for
	// every node error.
	OnDebug func(event DebugEvent)
	// Logger is the logging interface, defaulting to `DefaultLogger()`.
	Logger Logger
	// Timers schedules node callbacks. Defaults to a world.TimerManager driven by the host.
	Timers TimerService
	// ComponentsRegistry is the node type registry, defaulting to `engine.Registry`.
	ComponentsRegistry ComponentRegistry
	// Parser decodes asset definitions, defaulting to `engine.JsonParser`.
	Parser Parser
	// Properties are global key-value properties readable from expressions as `global`.
	Properties map[string]interface{}
	// ScriptMaxExecutionTime limits one script call. 0 disables the limit.
	ScriptMaxExecutionTime time.Duration
}

// NewConfig creates a new Config and applies the options.
func NewConfig(opts ...Option) Config {
	c := &Config{
		Properties:             make(map[string]interface{}),
		ScriptMaxExecutionTime: time.Millisecond * 2000,
	}
	for _, opt := range opts {
		_ = opt(c)
	}
	if c.Logger == nil {
		c.Logger = DefaultLogger()
	}
	return *c
}

// Option is a function type that modifies the Config.
type Option func(*Config) error

// WithOnDebug is an option that sets the on debug callback of the Config.
func WithOnDebug(onDebug func(event DebugEvent)) Option {
	return func(c *Config) error {
		c.OnDebug = onDebug
		return nil
	}
}

// WithLogger is an option that sets the logger of the Config.
func WithLogger(logger Logger) Option {
	return func(c *Config) error {
		c.Logger = logger
		return nil
	}
}

// WithTimers is an option that sets the timer service of the Config.
func WithTimers(timers TimerService) Option {
	return func(c *Config) error {
		c.Timers = timers
		return nil
	}
}

// WithComponentsRegistry is an option that sets the components' registry of the Config.
func WithComponentsRegistry(componentsRegistry ComponentRegistry) Option {
	return func(c *Config) error {
		c.ComponentsRegistry = componentsRegistry
		return nil
	}
}

// WithParser is an option that sets the parser of the Config.
func WithParser(parser Parser) Option {
	return func(c *Config) error {
		c.Parser = parser
		return nil
	}
}

// WithProperties is an option that sets global properties.
func WithProperties(properties map[string]interface{}) Option {
	return func(c *Config) error {
		for k, v := range properties {
			c.Properties[k] = v
		}
		return nil
	}
}

// WithScriptMaxExecutionTime is an option that sets the js script max execution time of the Config.
func WithScriptMaxExecutionTime(scriptMaxExecutionTime time.Duration) Option {
	return func(c *Config) error {
		c.ScriptMaxExecutionTime = scriptMaxExecutionTime
		return nil
	}
}
