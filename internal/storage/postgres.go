package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Avicted/aicall/internal/callrecord"
)

type PostgresStore struct {
	db          *sql.DB
	callRecords *callRecordRepo
}

func NewPostgresStore(ctx context.Context, dbURL string) (*PostgresStore, error) {
	if dbURL == "" {
		return nil, fmt.Errorf("db url is required")
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return &PostgresStore{db: db, callRecords: &callRecordRepo{db: db}}, nil
}

func (s *PostgresStore) Close(ctx context.Context) error {
	_ = ctx
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	migrator := NewMigrator(s.db, migrationsFS)
	pending, err := migrator.Pending(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		log.Printf("migrations up to date")
		return nil
	}
	log.Printf("migrations pending: %s", strings.Join(pending, ","))
	return migrator.Up(ctx)
}

func (s *PostgresStore) CallRecords() callrecord.Repository {
	return s.callRecords
}
