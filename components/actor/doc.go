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

// Package actor provides nodes that observe and notify world actors selected by identity
// tags.
//
// Observer nodes share ComponentObserver: Start scans the components already registered
// for a match and then follows the subsystem's registry events until the success limit
// is reached or Stop is triggered. Each node decides through its ObserverHooks which
// actors it keeps track of and when an observed event counts as a success.
//
// 注册到 actor.Registry 的组件:
//   - onActorRegistered
//   - onActorUnregistered
//   - onNotifyFromActor
//   - observeScript
//   - notifyActor
package actor
