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

package types

import "errors"

var (
	ErrAssetNotFound      = errors.New("flow asset not found")
	ErrInstanceNotFound   = errors.New("flow instance not found")
	ErrInstanceExists     = errors.New("flow instance already exists")
	ErrComponentNotFound  = errors.New("flow component not found")
	ErrComponentExists    = errors.New("flow component already registered")
	ErrNodeTypeNotFound   = errors.New("component not found")
	ErrNodeTypeExists     = errors.New("component already exists")
	ErrSaveNotFound       = errors.New("save game not found")
	ErrMissingIdentity    = errors.New("missing identity tags")
	ErrAssetNotInstanced  = errors.New("asset cannot be instanced")
	ErrSingleInstanceOnly = errors.New("asset allows a single instance")
	ErrSynchronousCycle   = errors.New("connection cycle without a latent node")
)
