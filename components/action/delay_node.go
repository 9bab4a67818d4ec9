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

//延迟节点配置示例：
//{
//        "id": "d1",
//        "type": "delay",
//        "name": "延迟节点",
//        "configuration": {
//          "periodInSeconds": 1.5,
//          "periodInSecondsPattern": "${vars.wait}"
//        }
//  }
import (
	"strconv"
	"time"

	"github.com/rulego/flowgraph/api/types"
	"github.com/rulego/flowgraph/components/base"
	"github.com/rulego/flowgraph/utils/maps"
	"github.com/rulego/flowgraph/utils/str"
)

const (
	SkipPin      = "Skip"
	CompletedPin = "Completed"
	SkippedPin   = "Skipped"
)

// 注册节点
func init() {
	Registry.Add(&DelayNode{})
}

// DelayNodeConfiguration 节点配置
type DelayNodeConfiguration struct {
	//延迟时间，单位秒
	PeriodInSeconds float64
	//通过 ${vars.key} 从实例变量中获取延迟时间，如果该值有值，优先取该值。
	PeriodInSecondsPattern string
}

// DelayPayload is persisted while the timer is pending.
type DelayPayload struct {
	RemainingTime float64 `mapstructure:"remainingTime"`
}

// DelayNode 等待一段时间后触发Completed，Skip立即触发Skipped
// A delay that is effectively zero fires on the next tick, never inline.
type DelayNode struct {
	//节点配置
	Config DelayNodeConfiguration
	ctx    types.NodeContext
	handle types.TimerHandle
}

// Type 组件类型
func (x *DelayNode) Type() string {
	return "delay"
}

func (x *DelayNode) New() types.Node {
	return &DelayNode{Config: DelayNodeConfiguration{PeriodInSeconds: 1}}
}

func (x *DelayNode) Category() string {
	return "utils"
}

// Init 初始化
func (x *DelayNode) Init(config types.Config, configuration types.Configuration) error {
	return maps.Map2Struct(configuration, &x.Config)
}

func (x *DelayNode) InputPins() []types.Pin {
	return types.NewPins(types.DefaultInputPin, SkipPin)
}

func (x *DelayNode) OutputPins() []types.Pin {
	return types.NewPins(CompletedPin, SkippedPin)
}

func (x *DelayNode) ExecuteInput(ctx types.NodeContext, pinName string) {
	x.ctx = ctx
	switch pinName {
	case types.DefaultInputPin:
		if x.handle != 0 {
			ctx.LogError("Timer already active")
			return
		}
		period := x.Config.PeriodInSeconds
		//从变量中获取延迟时间
		if x.Config.PeriodInSecondsPattern != "" {
			env := base.NodeUtils.GetEnv(ctx, pinName)
			v, err := strconv.ParseFloat(str.ExecuteTemplate(x.Config.PeriodInSecondsPattern, env), 64)
			if err != nil {
				ctx.LogError("period %s: %v", x.Config.PeriodInSecondsPattern, err)
				ctx.Finish()
				return
			}
			period = v
		}
		x.schedule(ctx, period)
	case SkipPin:
		ctx.TriggerOutput(SkippedPin, true)
	}
}

func (x *DelayNode) schedule(ctx types.NodeContext, seconds float64) {
	if seconds < 0 {
		seconds = 0
	}
	if x.handle != 0 {
		ctx.Timers().Cancel(x.handle)
	}
	x.handle = ctx.Timers().ScheduleAfter(time.Duration(seconds*float64(time.Second)), func() {
		x.handle = 0
		ctx.TriggerOutput(CompletedPin, true)
	})
}

// Cleanup 取消定时器，可重复调用
func (x *DelayNode) Cleanup(ctx types.NodeContext) {
	if x.handle != 0 {
		ctx.Timers().Cancel(x.handle)
		x.handle = 0
	}
}

func (x *DelayNode) OnSave(ctx types.NodeContext) (interface{}, error) {
	if x.handle == 0 {
		return nil, nil
	}
	left, _ := ctx.Timers().RemainingTime(x.handle)
	return DelayPayload{RemainingTime: left.Seconds()}, nil
}

func (x *DelayNode) OnLoad(ctx types.NodeContext, payload types.Payload) error {
	x.ctx = ctx
	var p DelayPayload
	if err := payload.Decode(&p); err != nil {
		return err
	}
	x.schedule(ctx, p.RemainingTime)
	return nil
}

// Status 剩余时间
func (x *DelayNode) Status() string {
	if x.ctx == nil || x.handle == 0 {
		return ""
	}
	if left, ok := x.ctx.Timers().RemainingTime(x.handle); ok {
		return strconv.FormatFloat(left.Seconds(), 'f', 2, 64)
	}
	return ""
}

// Destroy 销毁
func (x *DelayNode) Destroy() {
}
