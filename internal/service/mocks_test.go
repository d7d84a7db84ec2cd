package service

import (
	"context"

	"github.com/atinyakov/HomeKeeper/internal/models"
)

type mockAuthorRepo struct {
	AuthorExistsFunc   func(ctx context.Context, login string) (bool, error)
	RegisterAuthorFunc func(ctx context.Context, login string) error
}

func (m *mockAuthorRepo) AuthorExists(ctx context.Context, login string) (bool, error) {
	return m.AuthorExistsFunc(ctx, login)
}

func (m *mockAuthorRepo) RegisterAuthor(ctx context.Context, login string) error {
	return m.RegisterAuthorFunc(ctx, login)
}

type mockRecordRepo struct {
	AppendFunc func(ctx context.Context, rec models.Record) (bool, error)
	QueryFunc  func(ctx context.Context, filter models.Filter) ([]models.Record, error)
}

func (m *mockRecordRepo) Append(ctx context.Context, rec models.Record) (bool, error) {
	return m.AppendFunc(ctx, rec)
}

func (m *mockRecordRepo) Query(ctx context.Context, filter models.Filter) ([]models.Record, error) {
	return m.QueryFunc(ctx, filter)
}
