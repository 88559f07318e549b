package storage

import (
	"context"
	"errors"

	"github.com/Avicted/aicall/internal/callrecord"
)

var ErrNotFound = errors.New("not found")

type Store interface {
	Close(ctx context.Context) error
	Migrate(ctx context.Context) error
	CallRecords() callrecord.Repository
}

// NopStore is used when no database is configured. Its repository drops
// records.
type NopStore struct{}

func NewNopStore() *NopStore {
	return &NopStore{}
}

func (s *NopStore) Close(ctx context.Context) error {
	_ = ctx
	return nil
}

func (s *NopStore) Migrate(ctx context.Context) error {
	_ = ctx
	return nil
}

func (s *NopStore) CallRecords() callrecord.Repository {
	return nopCallRecords{}
}

type nopCallRecords struct{}

func (nopCallRecords) Save(context.Context, callrecord.Record) error { return nil }

func (nopCallRecords) ListRecent(context.Context, int) ([]callrecord.Record, error) {
	return nil, nil
}

func (nopCallRecords) ListByUser(context.Context, string, int) ([]callrecord.Record, error) {
	return nil, nil
}
