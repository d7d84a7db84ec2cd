package prefs

import (
	"context"
	"errors"

	"github.com/atinyakov/HomeKeeper/internal/models"
)

type failingCapability struct{}

func (failingCapability) Encrypt([]byte) (string, error) { return "", errors.New("boom") }
func (failingCapability) Decrypt(string) ([]byte, error) { return nil, errors.New("boom") }

// mockLog is a remote.Log with function fields.
type mockLog struct {
	QueryFunc   func(ctx context.Context, filter models.Filter) ([]models.Record, error)
	PublishFunc func(ctx context.Context, rec models.Record) error
}

func (m *mockLog) Query(ctx context.Context, filter models.Filter) ([]models.Record, error) {
	if m.QueryFunc == nil {
		return nil, nil
	}
	return m.QueryFunc(ctx, filter)
}

func (m *mockLog) Publish(ctx context.Context, rec models.Record) error {
	if m.PublishFunc == nil {
		return nil
	}
	return m.PublishFunc(ctx, rec)
}
