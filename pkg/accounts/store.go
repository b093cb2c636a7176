package accounts

import (
	"log/slog"
	"sync"
)

// Store holds the active Table and supports atomic replacement on reload.
// Readers always observe a complete, validated table; a failed reload
// leaves the previous table in place.
type Store struct {
	mu     sync.RWMutex
	table  *Table
	logger *slog.Logger
}

// NewStore creates a Store seeded with the given table.
func NewStore(table *Table, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{table: table, logger: logger}
}

// Table returns the currently active table.
func (s *Store) Table() *Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table
}

// ReloadFrom parses the accounts file at path and swaps it in on success.
// On failure the previous table stays active and the error is returned
// for the caller to log.
func (s *Store) ReloadFrom(path string) error {
	table, err := LoadFile(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.table = table
	s.mu.Unlock()

	s.logger.Info("accounts reloaded",
		"path", path,
		"cn_accounts", len(table.cn),
	)
	return nil
}
