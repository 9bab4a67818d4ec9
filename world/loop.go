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

// Package world provides the single threaded world loop the flow runtime executes on:
// a deterministic timer manager, a mutation queue for other goroutines and a minimal
// actor model.
//
// Every registry mutation and every node callback runs on the loop goroutine. Other
// goroutines (HTTP handlers, MQTT callbacks, cron jobs) hand work to the loop with
// Post or Do.
package world

import (
	"context"
	"errors"
	"time"

	"github.com/rulego/flowgraph/api/types"
	"github.com/rulego/flowgraph/utils/runtime"
)

// ErrLoopStopped is returned by Do when the loop is no longer running.
var ErrLoopStopped = errors.New("world loop stopped")

// DefaultQueueSize 默认队列长度
const DefaultQueueSize = 1024

// Loop 世界主循环
type Loop struct {
	timers *TimerManager
	queue  chan func()
	done   chan struct{}
	logger types.Logger
}

// NewLoop creates a loop owning timers.
func NewLoop(timers *TimerManager, queueSize int, logger types.Logger) *Loop {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Loop{
		timers: timers,
		queue:  make(chan func(), queueSize),
		done:   make(chan struct{}),
		logger: types.NewLogger(logger),
	}
}

// Timers returns the loop's timer manager.
func (l *Loop) Timers() *TimerManager {
	return l.timers
}

// Post queues fn to run on the loop. It returns false if the loop stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case <-l.done:
		return false
	case l.queue <- fn:
		return true
	}
}

// Do runs fn on the loop and waits for its result.
func (l *Loop) Do(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	task := func() {
		defer func() {
			if r := recover(); r != nil {
				pe := runtime.Recovered(r)
				l.logger.Errorf("world loop task %v\n%s", pe, pe.Stack)
				result <- pe
			}
		}()
		result <- fn()
	}
	select {
	case <-l.done:
		return ErrLoopStopped
	default:
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopStopped
	case l.queue <- task:
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopStopped
	case err := <-result:
		return err
	}
}

// RunOnce drains the queue and ticks timers by delta.
func (l *Loop) RunOnce(delta time.Duration) {
	l.drain()
	l.run(func() { l.timers.Tick(delta) })
}

// Run drives the loop until ctx is done, ticking every interval.
func (l *Loop) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer close(l.done)
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			l.drain()
			return
		case fn := <-l.queue:
			l.run(fn)
		case now := <-ticker.C:
			l.RunOnce(now.Sub(last))
			last = now
		}
	}
}

func (l *Loop) drain() {
	for {
		select {
		case fn := <-l.queue:
			l.run(fn)
		default:
			return
		}
	}
}

// run executes fn and logs a panic instead of stopping the loop.
func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			pe := runtime.Recovered(r)
			l.logger.Errorf("world loop task %v\n%s", pe, pe.Stack)
		}
	}()
	fn()
}
