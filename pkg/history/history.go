// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package history keeps a ledger of finished exports, imports and
// cluster lookups in a SQL database (SQLite by default, MySQL or
// PostgreSQL when configured).
package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultLimit caps List when the filter does not.
const DefaultLimit = 20

// Config selects the ledger database.
type Config struct {
	// Driver is sqlite, mysql or postgres. Empty disables the ledger.
	Driver string `yaml:"driver"`
	// Path is the SQLite file.
	Path string `yaml:"path"`
	// DSN is the MySQL or PostgreSQL connection string.
	DSN string `yaml:"dsn"`
}

// Enabled reports whether a driver is configured.
func (c Config) Enabled() bool {
	return c.Driver != ""
}

// Record is one ledger row.
type Record struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	Kind           string    `gorm:"size:32;index" json:"kind"`
	Envs           string    `gorm:"size:512" json:"envs,omitempty"`
	AppID          string    `gorm:"size:128" json:"appId,omitempty"`
	Env            string    `gorm:"size:64" json:"env,omitempty"`
	Cluster        string    `gorm:"size:128" json:"cluster,omitempty"`
	ConflictAction string    `gorm:"size:16" json:"conflictAction,omitempty"`
	Filename       string    `gorm:"size:255" json:"filename,omitempty"`
	Status         string    `gorm:"size:16;index" json:"status"`
	Message        string    `gorm:"type:text" json:"message,omitempty"`
	CreatedAt      time.Time `gorm:"index" json:"createdAt"`
}

// TableName pins the table name.
func (Record) TableName() string {
	return "transfer_history"
}

// BeforeCreate assigns an ID to new records.
func (r *Record) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// Filter narrows List.
type Filter struct {
	Kind   string
	Status string
	Limit  int
}

// Store reads and writes records.
type Store struct {
	db *gorm.DB
}

// Open connects to the configured database and migrates the schema.
func Open(cfg Config) (*Store, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(cfg.Driver) {
	case "sqlite", "sqlite3":
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite path must be configured")
		}
		if cfg.Path != ":memory:" {
			if err := ensureDir(filepath.Dir(cfg.Path)); err != nil {
				return nil, err
			}
		}
		dialector = sqlite.Open(cfg.Path)
	case "mysql":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("mysql dsn must be configured")
		}
		dialector = mysql.Open(cfg.DSN)
	case "postgres", "postgresql":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres dsn must be configured")
		}
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if cfg.Path == ":memory:" {
		// every pooled connection would get its own empty database
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}
	return NewStore(db)
}

// NewStore wraps an open database and migrates the schema.
func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	return &Store{db: db}, nil
}

// Add inserts r, filling ID and CreatedAt when unset.
func (s *Store) Add(ctx context.Context, r *Record) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("add history record: %w", err)
	}
	return nil
}

// List returns the newest records first.
func (s *Store) List(ctx context.Context, f Filter) ([]Record, error) {
	q := s.db.WithContext(ctx).Model(&Record{})
	if f.Kind != "" {
		q = q.Where("kind = ?", f.Kind)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	var out []Record
	if err := q.Order("created_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return out, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func ensureDir(dir string) error {
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
