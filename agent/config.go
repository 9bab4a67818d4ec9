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

package agent

import (
	"time"

	"github.com/rulego/flowgraph/endpoint/rest"
	"github.com/rulego/flowgraph/engine"
	"github.com/rulego/flowgraph/savegame"
	"github.com/rulego/flowgraph/utils/mqtt"
)

// Config 服务配置
type Config struct {
	//debug, info, warn, error
	LogLevel string `json:"logLevel" mapstructure:"logLevel"`
	//资产目录，每个资产一个 <assetId>.json 文件
	AssetsDir string `json:"assetsDir" mapstructure:"assetsDir"`
	//资产缓存时间，0 表示永久缓存
	AssetCacheTTL time.Duration `json:"assetCacheTTL" mapstructure:"assetCacheTTL"`
	//世界循环 tick 间隔
	TickInterval time.Duration `json:"tickInterval" mapstructure:"tickInterval"`
	QueueSize    int           `json:"queueSize" mapstructure:"queueSize"`
	//js 脚本最长执行时间
	ScriptMaxExecutionTime time.Duration `json:"scriptMaxExecutionTime" mapstructure:"scriptMaxExecutionTime"`
	//全局属性，表达式中通过 global 访问
	Properties map[string]interface{} `json:"properties" mapstructure:"properties"`

	Rest        rest.Config       `json:"rest" mapstructure:"rest"`
	SaveStore   savegame.Config   `json:"saveStore" mapstructure:"saveStore"`
	Autosave    AutosaveConfig    `json:"autosave" mapstructure:"autosave"`
	Replication ReplicationConfig `json:"replication" mapstructure:"replication"`
	//启动时加载的存档
	LoadSlot string `json:"loadSlot" mapstructure:"loadSlot"`
	//启动时创建的角色
	Actors []ActorConfig `json:"actors" mapstructure:"actors"`
}

// AutosaveConfig 定时存档
type AutosaveConfig struct {
	//cron 表达式，支持秒，如 "0 */5 * * * *" 或 "@every 5m"。为空不开启
	Cron string `json:"cron" mapstructure:"cron"`
	Slot string `json:"slot" mapstructure:"slot"`
}

// ReplicationConfig 多服复制
type ReplicationConfig struct {
	Enabled     bool        `json:"enabled" mapstructure:"enabled"`
	TopicPrefix string      `json:"topicPrefix" mapstructure:"topicPrefix"`
	Mqtt        mqtt.Config `json:"mqtt" mapstructure:"mqtt"`
}

// ActorConfig 角色配置
type ActorConfig struct {
	Id string `json:"id" mapstructure:"id"`
	//角色类，第一个为具体类
	Classes []string `json:"classes" mapstructure:"classes"`
	//组件类
	ComponentClasses []string                `json:"componentClasses" mapstructure:"componentClasses"`
	Tags             []string                `json:"tags" mapstructure:"tags"`
	RootFlow         engine.RootFlowSettings `json:"rootFlow" mapstructure:"rootFlow"`
}

// DefaultConfig returns the configuration used for unset fields.
func DefaultConfig() Config {
	return Config{
		LogLevel:               "info",
		AssetsDir:              "./assets",
		TickInterval:           50 * time.Millisecond,
		ScriptMaxExecutionTime: 2 * time.Second,
		Rest:                   rest.Config{Server: ":9090"},
		SaveStore:              savegame.Config{Type: savegame.TypeMemory},
		Autosave:               AutosaveConfig{Slot: "autosave"},
		Replication:            ReplicationConfig{TopicPrefix: "flowgraph"},
	}
}
