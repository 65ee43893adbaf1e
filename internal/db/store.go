package db

import "log/slog"

// Store holds all query methods on top of the shared pool.
type Store struct {
	db     *DB
	logger *slog.Logger
}

func NewStore(dbConn *DB, logger *slog.Logger) *Store {
	return &Store{
		db:     dbConn,
		logger: logger,
	}
}
