// Package remote talks to the append-only, author-addressed log that
// preference snapshots are published to. Several transports implement Log;
// Pool fans a single call out over a set of endpoints.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/atinyakov/HomeKeeper/internal/models"
)

var (
	// ErrUnsupportedScheme is returned by Open for unknown endpoint schemes.
	ErrUnsupportedScheme = errors.New("unsupported endpoint scheme")
	// ErrNoEndpoints is returned by Dial when no endpoint could be opened.
	ErrNoEndpoints = errors.New("no usable endpoints")
	// ErrRejected is returned when a relay refuses a published record.
	ErrRejected = errors.New("record rejected")
)

// Log is the query/publish capability of a remote log.
type Log interface {
	// Query returns matching records, newest first.
	Query(ctx context.Context, filter models.Filter) ([]models.Record, error)
	// Publish appends rec to the log.
	Publish(ctx context.Context, rec models.Record) error
}

// Options configures how Open reaches an endpoint.
type Options struct {
	// HTTPClient is used for https:// endpoints, normally an mTLS client from
	// LoadClientCertificate. Defaults to http.DefaultClient.
	HTTPClient *http.Client
	// WSDialer is used for ws:// and wss:// endpoints.
	WSDialer *websocket.Dialer
	// Logger receives per-endpoint diagnostics.
	Logger *zap.Logger
}

// Open returns the Log implementation matching endpoint's scheme:
// http(s) → HTTPLog, ws(s) → RelayLog, couchdb(s) → CouchLog.
func Open(ctx context.Context, endpoint string, opts Options) (Log, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		client := opts.HTTPClient
		if client == nil {
			client = http.DefaultClient
		}
		return NewHTTPLog(client, strings.TrimRight(endpoint, "/")), nil
	case "ws", "wss":
		return NewRelayLog(endpoint, opts.WSDialer), nil
	case "couchdb", "couchdbs":
		return OpenCouch(ctx, endpoint)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}
