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

// Package js runs observer scripts with the goja JavaScript engine.
//
// A script is compiled once and evaluated in pooled VMs. Every VM gets the global
// properties as `global` and the variables passed at creation. Calls are bounded by
// Config.ScriptMaxExecutionTime.
package js

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/rulego/flowgraph/api/types"
)

const (
	//GlobalKey global properties key,call them through the global.xx method
	GlobalKey = "global"
)

// GojaJsEngine goja js engine
type GojaJsEngine struct {
	vmPool   sync.Pool
	config   types.Config
	jsScript *goja.Program
	//脚本定义的全局函数名
	functions map[string]bool
}

// NewGojaJsEngine Create a new instance of the JavaScript engine
func NewGojaJsEngine(config types.Config, jsScript string, fromVars map[string]interface{}) (*GojaJsEngine, error) {
	program, err := goja.Compile("", jsScript, true)
	if err != nil {
		return nil, err
	}
	jsEngine := &GojaJsEngine{
		config:   config,
		jsScript: program,
	}
	//先创建一个vm，检查脚本能够执行并记录函数名
	vm, err := jsEngine.NewVm(fromVars)
	if err != nil {
		return nil, err
	}
	jsEngine.functions = make(map[string]bool)
	for _, k := range vm.GlobalObject().Keys() {
		if _, ok := goja.AssertFunction(vm.Get(k)); ok {
			jsEngine.functions[k] = true
		}
	}
	jsEngine.vmPool = sync.Pool{
		New: func() interface{} {
			vm, err := jsEngine.NewVm(fromVars)
			if err != nil {
				config.Logger.Errorf("js vm error: %s", err.Error())
			}
			return vm
		},
	}
	jsEngine.vmPool.Put(vm)
	return jsEngine, nil
}

// NewVm new a js VM
func (g *GojaJsEngine) NewVm(fromVars map[string]interface{}) (*goja.Runtime, error) {
	vm := goja.New()
	for k, v := range fromVars {
		if err := vm.Set(k, v); err != nil {
			return nil, fmt.Errorf("set fromVar %s error: %w", k, err)
		}
	}
	if len(g.config.Properties) != 0 {
		if err := vm.Set(GlobalKey, g.config.Properties); err != nil {
			return nil, fmt.Errorf("set global properties error: %w", err)
		}
	}
	timer := g.startTimeout(vm)
	_, err := vm.RunProgram(g.jsScript)
	g.stopTimeout(vm, timer)
	if err != nil {
		return nil, err
	}
	return vm, nil
}

// HasFunction reports whether the script defines a global function with this name.
func (g *GojaJsEngine) HasFunction(functionName string) bool {
	return g.functions[functionName]
}

// Execute Execute JavaScript function
func (g *GojaJsEngine) Execute(functionName string, argumentList ...interface{}) (out interface{}, err error) {
	defer func() {
		if caught := recover(); caught != nil {
			err = fmt.Errorf("%s", caught)
		}
	}()

	vm := g.vmPool.Get().(*goja.Runtime)
	defer g.vmPool.Put(vm)

	timer := g.startTimeout(vm)
	defer g.stopTimeout(vm, timer)

	f, ok := goja.AssertFunction(vm.Get(functionName))
	if !ok {
		return nil, errors.New(functionName + " is not a function")
	}
	params := make([]goja.Value, len(argumentList))
	for i, v := range argumentList {
		params[i] = vm.ToValue(v)
	}
	res, err := f(goja.Undefined(), params...)
	if err != nil {
		return nil, err
	}
	return res.Export(), nil
}

func (g *GojaJsEngine) Stop() {
}

// startTimeout returns nil if timeout is not configured
func (g *GojaJsEngine) startTimeout(vm *goja.Runtime) *time.Timer {
	if g.config.ScriptMaxExecutionTime <= 0 {
		return nil
	}
	return time.AfterFunc(g.config.ScriptMaxExecutionTime, func() {
		vm.Interrupt("execution timeout")
	})
}

// stopTimeout 停止计时并清除中断标记，vm可以继续复用
func (g *GojaJsEngine) stopTimeout(vm *goja.Runtime, timer *time.Timer) {
	if timer != nil {
		timer.Stop()
		vm.ClearInterrupt()
	}
}
