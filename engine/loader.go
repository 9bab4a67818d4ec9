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

package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/rulego/flowgraph/api/types"
	"github.com/rulego/flowgraph/components/route"
)

// AssetLoader 流程资产加载器
type AssetLoader interface {
	types.AssetProvider
	// Put stores a definition, replacing one with the same id. Running instances keep
	// the definition they were created from.
	Put(def *types.FlowAssetDef) error
	Delete(assetId string) error
	// List returns asset ids in ascending order.
	List() ([]string, error)
}

// PrepareAsset runs authoring time passes on a definition before it is stored.
func PrepareAsset(def *types.FlowAssetDef) {
	route.UpdateReroutes(def)
}

// MemoryLoader keeps definitions in memory.
type MemoryLoader struct {
	defs map[string]*types.FlowAssetDef
	sync.RWMutex
}

// NewMemoryLoader creates a loader holding defs.
func NewMemoryLoader(defs ...*types.FlowAssetDef) *MemoryLoader {
	l := &MemoryLoader{defs: make(map[string]*types.FlowAssetDef)}
	for _, def := range defs {
		_ = l.Put(def)
	}
	return l
}

func (l *MemoryLoader) AssetDef(assetId string) (*types.FlowAssetDef, bool) {
	l.RLock()
	defer l.RUnlock()
	def, ok := l.defs[assetId]
	return def, ok
}

func (l *MemoryLoader) Put(def *types.FlowAssetDef) error {
	if def == nil || def.Asset.Id == "" {
		return fmt.Errorf("flow asset id is empty")
	}
	PrepareAsset(def)
	l.Lock()
	defer l.Unlock()
	l.defs[def.Asset.Id] = def
	return nil
}

func (l *MemoryLoader) Delete(assetId string) error {
	l.Lock()
	defer l.Unlock()
	if _, ok := l.defs[assetId]; !ok {
		return fmt.Errorf("%w: %s", types.ErrAssetNotFound, assetId)
	}
	delete(l.defs, assetId)
	return nil
}

func (l *MemoryLoader) List() ([]string, error) {
	l.RLock()
	defer l.RUnlock()
	ids := make([]string, 0, len(l.defs))
	for id := range l.defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

const assetFileExt = ".json"

// DirectoryLoader reads definitions from <dir>/<assetId>.json and caches decoded
// templates for ttl.
type DirectoryLoader struct {
	dir    string
	parser types.Parser
	cache  *cache.Cache
	logger types.Logger
}

// NewDirectoryLoader creates a loader over dir. A ttl <= 0 caches forever.
func NewDirectoryLoader(dir string, parser types.Parser, ttl time.Duration, logger types.Logger) *DirectoryLoader {
	if parser == nil {
		parser = &JsonParser{}
	}
	expiration := ttl
	cleanup := ttl * 2
	if ttl <= 0 {
		expiration = cache.NoExpiration
		cleanup = 0
	}
	return &DirectoryLoader{
		dir:    dir,
		parser: parser,
		cache:  cache.New(expiration, cleanup),
		logger: types.NewLogger(logger),
	}
}

func (l *DirectoryLoader) path(assetId string) string {
	return filepath.Join(l.dir, assetId+assetFileExt)
}

func (l *DirectoryLoader) AssetDef(assetId string) (*types.FlowAssetDef, bool) {
	if v, ok := l.cache.Get(assetId); ok {
		return v.(*types.FlowAssetDef), true
	}
	data, err := os.ReadFile(l.path(assetId))
	if err != nil {
		if !os.IsNotExist(err) {
			l.logger.Warnf("read flow asset %s: %v", assetId, err)
		}
		return nil, false
	}
	def, err := l.parser.DecodeFlowAsset(data)
	if err != nil {
		l.logger.Errorf("decode flow asset %s: %v", assetId, err)
		return nil, false
	}
	PrepareAsset(def)
	l.cache.SetDefault(assetId, def)
	return def, true
}

func (l *DirectoryLoader) Put(def *types.FlowAssetDef) error {
	if def == nil || def.Asset.Id == "" {
		return fmt.Errorf("flow asset id is empty")
	}
	PrepareAsset(def)
	data, err := l.parser.EncodeFlowAsset(def)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(l.path(def.Asset.Id), data, 0o644); err != nil {
		return err
	}
	l.cache.SetDefault(def.Asset.Id, def)
	return nil
}

func (l *DirectoryLoader) Delete(assetId string) error {
	l.cache.Delete(assetId)
	if err := os.Remove(l.path(assetId)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", types.ErrAssetNotFound, assetId)
		}
		return err
	}
	return nil
}

func (l *DirectoryLoader) List() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), assetFileExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), assetFileExt))
	}
	sort.Strings(ids)
	return ids, nil
}
