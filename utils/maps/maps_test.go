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

package maps

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type TimerConfig struct {
	Events       []float64
	SuccessLimit int
	Timeout      time.Duration
	Tags         []string
}

func TestMap2Struct(t *testing.T) {
	m := map[string]interface{}{
		"events":       []interface{}{1.5, float64(2)},
		"successLimit": float64(3),
		"Timeout":      "5s",
		"tags":         []interface{}{"A", "B"},
	}
	var cfg TimerConfig
	assert.Nil(t, Map2Struct(m, &cfg))
	assert.Equal(t, []float64{1.5, 2}, cfg.Events)
	assert.Equal(t, 3, cfg.SuccessLimit)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, []string{"A", "B"}, cfg.Tags)

	t.Run("invalidDuration", func(t *testing.T) {
		var c TimerConfig
		assert.NotNil(t, Map2Struct(map[string]interface{}{"Timeout": "5invalid"}, &c))
	})
	t.Run("nonPointer", func(t *testing.T) {
		var c TimerConfig
		assert.NotNil(t, Map2Struct(m, c))
	})
	t.Run("nilInput", func(t *testing.T) {
		var c TimerConfig
		assert.Nil(t, Map2Struct(nil, &c))
		assert.Equal(t, 0, c.SuccessLimit)
	})
	t.Run("notMap", func(t *testing.T) {
		var c TimerConfig
		assert.NotNil(t, Map2Struct("not a map", &c))
	})
}

type payload struct {
	Remaining    []float64 `mapstructure:"remaining"`
	SuccessCount int       `mapstructure:"successCount"`
}

func TestStruct2Map(t *testing.T) {
	m, err := Struct2Map(payload{Remaining: []float64{0.5, -1}, SuccessCount: 2})
	assert.Nil(t, err)
	assert.Equal(t, []float64{0.5, -1}, m["remaining"])
	assert.Equal(t, 2, m["successCount"])

	var back payload
	assert.Nil(t, Map2Struct(m, &back))
	assert.Equal(t, payload{Remaining: []float64{0.5, -1}, SuccessCount: 2}, back)

	empty, err := Struct2Map(nil)
	assert.Nil(t, err)
	assert.Len(t, empty, 0)
}

func TestGet(t *testing.T) {
	dict := map[string]interface{}{
		"vars": map[string]interface{}{
			"gold": 10,
			"npc":  map[string]string{"name": "Guard"},
		},
		"asset": "quest",
	}
	assert.Equal(t, "quest", Get(dict, "asset"))
	assert.Equal(t, 10, Get(dict, "vars.gold"))
	assert.Equal(t, "Guard", Get(dict, "vars.npc.name"))
	assert.Nil(t, Get(dict, "vars.silver"))
	assert.Nil(t, Get(dict, "asset.name"))
	assert.Nil(t, Get(dict, "missing.key"))
}
