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

package runtime

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStack(t *testing.T) {
	stack := Stack(0)
	assert.True(t, strings.Contains(stack, "TestStack"))
	assert.True(t, strings.Contains(stack, "stack_test.go:"))
	assert.False(t, strings.Contains(stack, "runtime.Stack "))
}

func explode() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = Recovered(r)
		}
	}()
	var m map[string]int
	m["boom"] = 1
	return nil
}

func TestRecovered(t *testing.T) {
	err := explode()
	var pe *PanicError
	require.True(t, errors.As(err, &pe))
	assert.True(t, strings.HasPrefix(pe.Error(), "panic: assignment to entry in nil map"))
	assert.True(t, strings.Contains(pe.Stack, "explode"))
}
