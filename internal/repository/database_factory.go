package repository

import (
	"fmt"
	"strings"
)

// DatabaseType selects a storage backend.
type DatabaseType string

const (
	DatabaseTypeBadger DatabaseType = "badger"
	DatabaseTypeBolt   DatabaseType = "bolt"
)

// NewRepository creates a repository backed by the requested database.
//
// - badger: LSM-tree store, fast writes, directory-based
// - bolt: single-file B+ tree store, compact, good for small datasets
func NewRepository(dbPath string, dbType DatabaseType) (Repository, error) {
	switch dbType {
	case DatabaseTypeBolt:
		if !strings.HasSuffix(dbPath, ".bolt") {
			dbPath = dbPath + ".bolt"
		}
		return NewBoltRepository(dbPath)

	case DatabaseTypeBadger:
		return NewBadgerRepository(dbPath)

	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
}
