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

package savegame

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/rulego/flowgraph/api/types"
)

const defaultTable = "flowgraph_save"

var _ types.SaveStore = (*SQLStore)(nil)

// SQLStore 存档保存在 mysql 或 postgres 表中，每个实例记录一行
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	table   string
	logger  types.Logger
}

// dialect 不同数据库的占位符
type dialect struct {
	driver string
}

// placeholder returns the n-th (1-based) bind parameter.
func (d dialect) placeholder(n int) string {
	if d.driver == TypePostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (d dialect) placeholders(from, count int) string {
	var ps []string
	for i := 0; i < count; i++ {
		ps = append(ps, d.placeholder(from+i))
	}
	return strings.Join(ps, ", ")
}

func (d dialect) sqlDriver() string {
	if d.driver == TypeMysql {
		return "mysql"
	}
	return "postgres"
}

// NewSQLStore opens config.Dsn with driver mysql or postgres and creates the table if needed.
func NewSQLStore(ctx context.Context, driver string, config Config, logger types.Logger) (*SQLStore, error) {
	if driver != TypeMysql && driver != TypePostgres {
		return nil, fmt.Errorf("unsupported sql driver %s", driver)
	}
	d := dialect{driver: driver}
	db, err := sql.Open(d.sqlDriver(), config.Dsn)
	if err != nil {
		return nil, err
	}
	if config.PoolSize > 0 {
		db.SetMaxOpenConns(config.PoolSize)
	}
	if err := connect(ctx, config.ConnectTimeout, func() error {
		return db.PingContext(ctx)
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	s := NewSQLStoreWithDB(db, driver, config.Table, logger)
	if err := s.createTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStoreWithDB uses an open database. The table must exist or be created by the caller.
func NewSQLStoreWithDB(db *sql.DB, driver, table string, logger types.Logger) *SQLStore {
	if table == "" {
		table = defaultTable
	}
	return &SQLStore{db: db, dialect: dialect{driver: driver}, table: table, logger: types.NewLogger(logger)}
}

func (s *SQLStore) createTable(ctx context.Context) error {
	recordType := "TEXT"
	if s.dialect.driver == TypeMysql {
		recordType = "LONGTEXT"
	}
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	slot VARCHAR(255) NOT NULL,
	seq INTEGER NOT NULL,
	instance_name VARCHAR(255) NOT NULL,
	saved_at BIGINT NOT NULL,
	record %s NOT NULL,
	PRIMARY KEY (slot, seq)
)`, s.table, recordType)
	_, err := s.db.ExecContext(ctx, query)
	return err
}

func (s *SQLStore) insertQuery() string {
	return fmt.Sprintf("INSERT INTO %s (slot, seq, instance_name, saved_at, record) VALUES (%s)",
		s.table, s.dialect.placeholders(1, 5))
}

func (s *SQLStore) Save(ctx context.Context, game *types.SaveGame) error {
	if err := checkSlot(game.Slot); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE slot = %s", s.table, s.dialect.placeholder(1)), game.Slot); err != nil {
		return err
	}
	savedAt := game.SavedAt.UnixNano()
	// 空存档也保留一行，seq=-1，用于 List
	if _, err := tx.ExecContext(ctx, s.insertQuery(), game.Slot, -1, "", savedAt, ""); err != nil {
		return err
	}
	for i, record := range game.Instances {
		data, err := encodeRecord(record)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.insertQuery(), game.Slot, i, record.InstanceName, savedAt, string(data)); err != nil {
			s.logger.Errorf("error in saving game slot=%s instance=%s: %v", game.Slot, record.InstanceName, err)
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLStore) Load(ctx context.Context, slot string) (*types.SaveGame, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT seq, saved_at, record FROM %s WHERE slot = %s ORDER BY seq", s.table, s.dialect.placeholder(1)), slot)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var game *types.SaveGame
	for rows.Next() {
		var seq int
		var savedAt int64
		var data string
		if err := rows.Scan(&seq, &savedAt, &data); err != nil {
			return nil, err
		}
		if game == nil {
			game = &types.SaveGame{Slot: slot, SavedAt: time.Unix(0, savedAt)}
		}
		if seq < 0 {
			continue
		}
		record, err := decodeRecord([]byte(data))
		if err != nil {
			return nil, err
		}
		game.Instances = append(game.Instances, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if game == nil {
		return nil, fmt.Errorf("%w: %s", types.ErrSaveNotFound, slot)
	}
	return game, nil
}

func (s *SQLStore) Delete(ctx context.Context, slot string) error {
	result, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE slot = %s", s.table, s.dialect.placeholder(1)), slot)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", types.ErrSaveNotFound, slot)
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT slot FROM %s WHERE seq = -1 ORDER BY slot", s.table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var slots []string
	for rows.Next() {
		var slot string
		if err := rows.Scan(&slot); err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
