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

// Package maps converts between configuration maps and structs.
package maps

import (
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Map2Struct Decode takes an input structure and uses reflection to translate it to
// the output structure. output must be a pointer to a map or struct.
// Strings such as "5s" are accepted for time.Duration fields and numbers decoded
// from JSON are accepted for integer fields.
func Map2Struct(input interface{}, output interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           output,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// Struct2Map 结构体转map，字段名使用 mapstructure 标签
func Struct2Map(input interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{})
	if input == nil {
		return out, nil
	}
	if err := mapstructure.Decode(input, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get 获取多级字段值，例如 Get(dict, "vars.gold")，不存在返回nil
func Get(input map[string]interface{}, fieldName string) interface{} {
	var current interface{} = input
	for _, key := range strings.Split(fieldName, ".") {
		switch m := current.(type) {
		case map[string]interface{}:
			current = m[key]
		case map[string]string:
			current = m[key]
		default:
			v := reflect.ValueOf(current)
			if v.Kind() != reflect.Map || v.Type().Key().Kind() != reflect.String {
				return nil
			}
			item := v.MapIndex(reflect.ValueOf(key).Convert(v.Type().Key()))
			if !item.IsValid() {
				return nil
			}
			current = item.Interface()
		}
		if current == nil {
			return nil
		}
	}
	return current
}
