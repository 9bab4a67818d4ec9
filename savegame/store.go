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

// Package savegame persists save games produced by engine.Subsystem.SaveGame.
//
// Stores keep one record per flow instance under a slot name, in the order the
// subsystem produced them (root flows first, each followed by its sub flows):
//
//   - MemoryStore keeps copies in process memory.
//   - RedisStore keeps one hash per slot.
//   - SQLStore keeps one row per instance record in mysql or postgres.
package savegame

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rulego/flowgraph/api/types"
)

const (
	TypeMemory   = "memory"
	TypeRedis    = "redis"
	TypeMysql    = "mysql"
	TypePostgres = "postgres"
)

// Config 存档存储配置
type Config struct {
	//memory, redis, mysql, postgres
	Type string `json:"type" mapstructure:"type"`
	//redis 地址
	Addrs []string `json:"addrs" mapstructure:"addrs"`
	//redis key 前缀
	Namespace string `json:"namespace" mapstructure:"namespace"`
	//sql 连接配置，参考sql.Open参数
	Dsn string `json:"dsn" mapstructure:"dsn"`
	//sql 连接池大小
	PoolSize int `json:"poolSize" mapstructure:"poolSize"`
	//sql 表名
	Table string `json:"table" mapstructure:"table"`
	//连接重试的最长时间
	ConnectTimeout time.Duration `json:"connectTimeout" mapstructure:"connectTimeout"`
}

// NewStore opens the store selected by config.Type. An empty type selects memory.
func NewStore(ctx context.Context, config Config, logger types.Logger) (types.SaveStore, error) {
	switch strings.ToLower(config.Type) {
	case "", TypeMemory:
		return NewMemoryStore(), nil
	case TypeRedis:
		return NewRedisStore(ctx, config, logger)
	case TypeMysql, TypePostgres:
		return NewSQLStore(ctx, strings.ToLower(config.Type), config, logger)
	default:
		return nil, fmt.Errorf("unknown save store type %s", config.Type)
	}
}

// header is everything of a save game except the instance records.
type header struct {
	Slot      string    `json:"slot"`
	SavedAt   time.Time `json:"savedAt"`
	Instances []string  `json:"instances"`
}

func newHeader(game *types.SaveGame) header {
	h := header{Slot: game.Slot, SavedAt: game.SavedAt, Instances: make([]string, 0, len(game.Instances))}
	for _, r := range game.Instances {
		h.Instances = append(h.Instances, r.InstanceName)
	}
	return h
}

func encodeRecord(record types.InstanceRecord) ([]byte, error) {
	return json.Marshal(record)
}

func decodeRecord(data []byte) (types.InstanceRecord, error) {
	var record types.InstanceRecord
	err := json.Unmarshal(data, &record)
	return record, err
}

func checkSlot(slot string) error {
	if slot == "" {
		return fmt.Errorf("save slot is empty")
	}
	return nil
}
