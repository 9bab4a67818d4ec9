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

package route

//多定时器节点，示例：
//{
//        "id": "t1",
//        "type": "timerMulti",
//        "name": "多定时器",
//        "configuration": {
//          "events": [1.5, 3, 10]
//        }
//  }
import (
	"fmt"
	"strings"
	"time"

	"github.com/rulego/flowgraph/api/types"
	"github.com/rulego/flowgraph/utils/maps"
)

const (
	SkipPin      = "Skip"
	RestartPin   = "Restart"
	CompletedPin = "Completed"
	SkippedPin   = "Skipped"
)

// nextTickThreshold 小于该值的延迟在下一帧触发，单位秒
const nextTickThreshold = 1e-4

// 注册节点
func init() {
	Registry.Add(&MultiTimerNode{})
}

// MultiTimerConfiguration 节点配置
type MultiTimerConfiguration struct {
	//事件延迟，单位秒
	Events []float64
}

// MultiTimerPayload is persisted while timers are pending. Remaining is indexed like
// Events, -1 marks an event that already fired.
type MultiTimerPayload struct {
	Remaining []float64 `mapstructure:"remaining"`
}

// EventPin returns the output pin fired by the event at index.
func EventPin(index int) string {
	return fmt.Sprintf("Event_%d", index)
}

// MultiTimerNode 多定时器节点
// MultiTimerNode schedules one timer per configured event. Each timer fires its
// Event_N output, Completed fires once all of them did.
type MultiTimerNode struct {
	//节点配置
	Config MultiTimerConfiguration
	ctx    types.NodeContext
	//事件下标 -> 定时器
	handles map[int]types.TimerHandle
	//无事件时的完成定时器
	completion types.TimerHandle
}

// Type 组件类型
func (x *MultiTimerNode) Type() string {
	return "timerMulti"
}

func (x *MultiTimerNode) New() types.Node {
	return &MultiTimerNode{}
}

func (x *MultiTimerNode) Category() string {
	return "route"
}

// Init 初始化
func (x *MultiTimerNode) Init(config types.Config, configuration types.Configuration) error {
	if err := maps.Map2Struct(configuration, &x.Config); err != nil {
		return err
	}
	for i, d := range x.Config.Events {
		if d < 0 {
			return fmt.Errorf("event %d has negative delay %v", i, d)
		}
	}
	return nil
}

func (x *MultiTimerNode) InputPins() []types.Pin {
	return types.NewPins(types.DefaultInputPin, SkipPin, RestartPin)
}

func (x *MultiTimerNode) OutputPins() []types.Pin {
	return types.NewPins(CompletedPin, SkippedPin)
}

// ContextPins adds one output per event labelled with its delay.
func (x *MultiTimerNode) ContextPins(assets types.AssetProvider) ([]types.Pin, []types.Pin) {
	outputs := make([]types.Pin, 0, len(x.Config.Events))
	for i, d := range x.Config.Events {
		outputs = append(outputs, types.Pin{Name: EventPin(i), DisplayName: fmt.Sprintf("%.2fs", d)})
	}
	return nil, outputs
}

func (x *MultiTimerNode) ExecuteInput(ctx types.NodeContext, pinName string) {
	x.ctx = ctx
	switch pinName {
	case types.DefaultInputPin:
		if len(x.handles) > 0 || x.completion != 0 {
			ctx.LogError("Timer already active")
			return
		}
		x.setTimers(ctx)
	case SkipPin:
		ctx.TriggerOutput(SkippedPin, true)
	case RestartPin:
		x.Cleanup(ctx)
		x.setTimers(ctx)
	}
}

func (x *MultiTimerNode) setTimers(ctx types.NodeContext) {
	for i, d := range x.Config.Events {
		x.schedule(ctx, i, d)
	}
	if len(x.handles) == 0 {
		x.completion = ctx.Timers().ScheduleNextTick(func() { x.triggerCompleted(ctx) })
	}
}

func (x *MultiTimerNode) schedule(ctx types.NodeContext, index int, seconds float64) {
	if x.handles == nil {
		x.handles = make(map[int]types.TimerHandle)
	}
	if h, ok := x.handles[index]; ok {
		ctx.Timers().Cancel(h)
	}
	fn := func() { x.onCompletion(ctx, index) }
	if seconds > nextTickThreshold {
		x.handles[index] = ctx.Timers().ScheduleAfter(time.Duration(seconds*float64(time.Second)), fn)
	} else {
		x.handles[index] = ctx.Timers().ScheduleNextTick(fn)
	}
}

func (x *MultiTimerNode) onCompletion(ctx types.NodeContext, index int) {
	if _, ok := x.handles[index]; !ok {
		return
	}
	delete(x.handles, index)
	ctx.TriggerOutput(EventPin(index), false)
	if len(x.handles) == 0 && ctx.State() == types.Active {
		x.triggerCompleted(ctx)
	}
}

func (x *MultiTimerNode) triggerCompleted(ctx types.NodeContext) {
	x.completion = 0
	ctx.TriggerOutput(CompletedPin, true)
}

// Cleanup 取消所有定时器，可重复调用
func (x *MultiTimerNode) Cleanup(ctx types.NodeContext) {
	timers := ctx.Timers()
	for i, h := range x.handles {
		timers.Cancel(h)
		delete(x.handles, i)
	}
	if x.completion != 0 {
		timers.Cancel(x.completion)
		x.completion = 0
	}
}

func (x *MultiTimerNode) OnSave(ctx types.NodeContext) (interface{}, error) {
	payload := MultiTimerPayload{Remaining: make([]float64, len(x.Config.Events))}
	for i := range payload.Remaining {
		payload.Remaining[i] = -1
		if h, ok := x.handles[i]; ok {
			if left, ok := ctx.Timers().RemainingTime(h); ok {
				payload.Remaining[i] = left.Seconds()
			} else {
				payload.Remaining[i] = 0
			}
		}
	}
	return payload, nil
}

// OnLoad 替换当前定时器，剩余时间截断为不小于0，接近0的在下一帧触发
func (x *MultiTimerNode) OnLoad(ctx types.NodeContext, payload types.Payload) error {
	x.ctx = ctx
	var p MultiTimerPayload
	if err := payload.Decode(&p); err != nil {
		return err
	}
	x.Cleanup(ctx)
	for i, left := range p.Remaining {
		if left < 0 || i >= len(x.Config.Events) {
			continue
		}
		x.schedule(ctx, i, left)
	}
	if len(x.handles) == 0 {
		x.completion = ctx.Timers().ScheduleNextTick(func() { x.triggerCompleted(ctx) })
	}
	return nil
}

// Status 各定时器剩余时间
func (x *MultiTimerNode) Status() string {
	if x.ctx == nil {
		return ""
	}
	var statuses []string
	for i := range x.Config.Events {
		if h, ok := x.handles[i]; ok {
			if left, ok := x.ctx.Timers().RemainingTime(h); ok {
				statuses = append(statuses, fmt.Sprintf("%.2f", left.Seconds()))
			}
		}
	}
	return strings.Join(statuses, "\n")
}

// Destroy 销毁
func (x *MultiTimerNode) Destroy() {
}
