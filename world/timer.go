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

package world

import (
	"sort"
	"time"

	"github.com/rulego/flowgraph/api/types"
)

var _ types.TimerService = (*TimerManager)(nil)

type timer struct {
	handle   types.TimerHandle
	due      time.Duration
	nextTick bool
	fn       func()
}

// TimerManager 确定性定时器
// TimerManager is a virtual clock advanced by Tick. It is not safe for concurrent use;
// drive it from a Loop or from a single test goroutine.
type TimerManager struct {
	now      time.Duration
	lastId   types.TimerHandle
	timers   map[types.TimerHandle]*timer
	nextTick []types.TimerHandle
}

// NewTimerManager creates a timer manager at time zero.
func NewTimerManager() *TimerManager {
	return &TimerManager{timers: make(map[types.TimerHandle]*timer)}
}

// Now returns the virtual time elapsed since creation.
func (m *TimerManager) Now() time.Duration {
	return m.now
}

// Pending returns the number of scheduled callbacks that have not fired or been cancelled.
func (m *TimerManager) Pending() int {
	return len(m.timers)
}

// ScheduleAfter runs fn once d has elapsed.
func (m *TimerManager) ScheduleAfter(d time.Duration, fn func()) types.TimerHandle {
	if d <= 0 {
		return m.ScheduleNextTick(fn)
	}
	m.lastId++
	m.timers[m.lastId] = &timer{handle: m.lastId, due: m.now + d, fn: fn}
	return m.lastId
}

// ScheduleNextTick runs fn at the start of the next Tick.
func (m *TimerManager) ScheduleNextTick(fn func()) types.TimerHandle {
	m.lastId++
	m.timers[m.lastId] = &timer{handle: m.lastId, due: m.now, nextTick: true, fn: fn}
	m.nextTick = append(m.nextTick, m.lastId)
	return m.lastId
}

// Cancel removes a pending callback. Unknown handles are ignored.
func (m *TimerManager) Cancel(handle types.TimerHandle) {
	delete(m.timers, handle)
}

// RemainingTime returns how long until the callback fires. Next tick callbacks report 0.
func (m *TimerManager) RemainingTime(handle types.TimerHandle) (time.Duration, bool) {
	t, ok := m.timers[handle]
	if !ok {
		return 0, false
	}
	if t.nextTick || t.due <= m.now {
		return 0, true
	}
	return t.due - m.now, true
}

// Tick fires callbacks queued for the next tick, then advances the clock by delta and
// fires due timers ordered by due time, then by scheduling order. Callbacks scheduled
// while ticking never fire in the same tick.
func (m *TimerManager) Tick(delta time.Duration) {
	limit := m.lastId
	queued := m.nextTick
	m.nextTick = nil
	next := 0
	defer func() {
		//回调panic时，剩余的下一帧回调留到下一次Tick
		if next < len(queued) {
			m.nextTick = append(append([]types.TimerHandle(nil), queued[next:]...), m.nextTick...)
		}
	}()
	for next < len(queued) {
		h := queued[next]
		next++
		m.fire(h)
	}

	if delta > 0 {
		m.now += delta
	}
	var due []*timer
	for _, t := range m.timers {
		if !t.nextTick && t.handle <= limit && t.due <= m.now {
			due = append(due, t)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].due != due[j].due {
			return due[i].due < due[j].due
		}
		return due[i].handle < due[j].handle
	})
	for _, t := range due {
		m.fire(t.handle)
	}
}

// Advance ticks repeatedly with step until total has elapsed.
func (m *TimerManager) Advance(total time.Duration, step time.Duration) {
	if step <= 0 {
		step = total
	}
	for elapsed := time.Duration(0); elapsed < total; elapsed += step {
		d := step
		if total-elapsed < step {
			d = total - elapsed
		}
		m.Tick(d)
	}
}

func (m *TimerManager) fire(handle types.TimerHandle) {
	t, ok := m.timers[handle]
	if !ok {
		return
	}
	delete(m.timers, handle)
	t.fn()
}

// Seconds converts fractional seconds to a duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
