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

package action

//日志节点，示例：
//{
//        "id": "l1",
//        "type": "log",
//        "configuration": {
//          "message": "gold: ${vars.gold}",
//          "verbosity": "warning"
//        }
//  }
import (
	"fmt"
	"strings"

	"github.com/rulego/flowgraph/api/types"
	"github.com/rulego/flowgraph/components/base"
	"github.com/rulego/flowgraph/utils/maps"
	"github.com/rulego/flowgraph/utils/str"
)

// 日志级别
const (
	VerbosityError       = "error"
	VerbosityWarning     = "warning"
	VerbosityDisplay     = "display"
	VerbosityLog         = "log"
	VerbosityVerbose     = "verbose"
	VerbosityVeryVerbose = "veryVerbose"
)

// 注册节点
func init() {
	Registry.Add(&LogNode{})
}

// LogNodeConfiguration 节点配置
type LogNodeConfiguration struct {
	//日志内容，支持${vars.xx}、${global.xx}变量
	Message string
	//日志级别，默认warning
	Verbosity string
	//true: 只输出消息，不带资产名前缀
	OmitAsset bool
}

// LogNode 使用`types.Config.Logger`记录日志，格式 "[资产名]: 消息"，然后触发输出
type LogNode struct {
	//节点配置
	Config LogNodeConfiguration
}

// Type 组件类型
func (x *LogNode) Type() string {
	return "log"
}

func (x *LogNode) New() types.Node {
	return &LogNode{Config: LogNodeConfiguration{
		Message:   "Log!",
		Verbosity: VerbosityWarning,
	}}
}

func (x *LogNode) Category() string {
	return "utils"
}

// Init 初始化
func (x *LogNode) Init(config types.Config, configuration types.Configuration) error {
	if err := maps.Map2Struct(configuration, &x.Config); err != nil {
		return err
	}
	switch x.Config.Verbosity {
	case VerbosityError, VerbosityWarning, VerbosityDisplay, VerbosityLog, VerbosityVerbose, VerbosityVeryVerbose:
		return nil
	case "":
		x.Config.Verbosity = VerbosityWarning
		return nil
	default:
		return fmt.Errorf("unknown verbosity %s", x.Config.Verbosity)
	}
}

func (x *LogNode) Reentrant() bool {
	return true
}

// Format 格式化日志内容
func (x *LogNode) Format(ctx types.NodeContext, pinName string) string {
	message := str.ExecuteTemplate(x.Config.Message, base.NodeUtils.GetEnv(ctx, pinName))
	if x.Config.OmitAsset || ctx.Instance() == nil {
		return message
	}
	return fmt.Sprintf("[%s]: %s", ctx.Instance().AssetName(), message)
}

func (x *LogNode) ExecuteInput(ctx types.NodeContext, pinName string) {
	message := x.Format(ctx, pinName)
	logger := ctx.Logger()
	switch strings.TrimSpace(x.Config.Verbosity) {
	case VerbosityError:
		logger.Errorf("%s", message)
	case VerbosityWarning:
		logger.Warnf("%s", message)
	case VerbosityDisplay, VerbosityLog:
		logger.Infof("%s", message)
	default:
		logger.Debugf("%s", message)
	}
	ctx.TriggerFirstOutput(true)
}

func (x *LogNode) Cleanup(ctx types.NodeContext) {
}

// Destroy 销毁
func (x *LogNode) Destroy() {
}
