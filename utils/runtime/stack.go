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

// Package runtime formats goroutine stacks for panic reports of the world loop and
// the rest endpoint.
package runtime

import (
	"fmt"
	"runtime"
	"strings"
)

// maxDepth 最多记录的栈帧数
const maxDepth = 32

// Stack returns "function file:line" for the callers of Stack, one per line,
// skipping skip additional frames.
func Stack(skip int) string {
	pc := make([]uintptr, maxDepth)
	n := runtime.Callers(skip+2, pc)
	frames := runtime.CallersFrames(pc[:n])
	var build strings.Builder
	for {
		frame, more := frames.Next()
		build.WriteString(fmt.Sprintf(" %s %s:%d\n", frame.Function, frame.File, frame.Line))
		if !more {
			break
		}
	}
	return build.String()
}

// PanicError describes a recovered panic with the stack where it happened.
type PanicError struct {
	Value interface{}
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Recovered wraps a value returned by recover. It must be called from the deferred
// function so the panicking frames are still on the stack.
func Recovered(value interface{}) *PanicError {
	return &PanicError{Value: value, Stack: Stack(2)}
}
