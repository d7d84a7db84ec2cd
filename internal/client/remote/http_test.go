package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/atinyakov/HomeKeeper/internal/models"
)

// roundTripperFunc lets a test stand in for the server behind an http.Client.
type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(fn roundTripperFunc) *http.Client {
	return &http.Client{Transport: fn, Timeout: time.Second}
}

func TestHTTPLog_QueryNetworkError(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("network down")
	})
	_, err := NewHTTPLog(client, "http://example.com").Query(context.Background(), models.Filter{})
	if err == nil || !strings.Contains(err.Error(), "query failed") {
		t.Errorf("expected network failure, got %v", err)
	}
}

func TestHTTPLog_QueryServerError(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: 500,
			Body:       io.NopCloser(strings.NewReader("internal error\n")),
		}, nil
	})
	_, err := NewHTTPLog(client, "http://example.com").Query(context.Background(), models.Filter{})
	if err == nil || !strings.Contains(err.Error(), "server error: internal error") {
		t.Errorf("expected server error, got %v", err)
	}
}

func TestHTTPLog_QueryInvalidJSON(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader("not-json")),
		}, nil
	})
	_, err := NewHTTPLog(client, "http://example.com").Query(context.Background(), models.Filter{})
	if err == nil || !strings.Contains(err.Error(), "invalid response") {
		t.Errorf("expected JSON decode error, got %v", err)
	}
}

func TestHTTPLog_QuerySuccess(t *testing.T) {
	want := []models.Record{
		{ID: "r1", Author: "alice", Namespace: models.Namespace, Content: "{}", CreatedAt: 42},
	}
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodGet {
			t.Errorf("unexpected method: %s", req.Method)
		}
		if req.URL.Path != "/api/records" {
			t.Errorf("unexpected path: %s", req.URL.Path)
		}
		q := req.URL.Query()
		if q.Get("author") != "alice" || q.Get("namespace") != models.Namespace || q.Get("limit") != "1" || q.Get("since") != "5" {
			t.Errorf("unexpected query: %s", req.URL.RawQuery)
		}
		body, _ := json.Marshal(want)
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewReader(body)),
		}, nil
	})

	got, err := NewHTTPLog(client, "http://example.com").Query(context.Background(), models.Filter{
		Authors:    []string{"alice"},
		Namespaces: []string{models.Namespace},
		Since:      5,
		Limit:      1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "r1" || got[0].CreatedAt != 42 {
		t.Errorf("records = %+v; want %+v", got, want)
	}
}

func TestHTTPLog_Publish(t *testing.T) {
	rec := models.Record{ID: "r1", Author: "alice", Namespace: models.Namespace, Content: "{}", CreatedAt: 42}
	var received models.Record
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodPost || req.URL.String() != "http://example.com/api/records" {
			t.Errorf("unexpected request: %s %s", req.Method, req.URL)
		}
		if ct := req.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(req.Body).Decode(&received); err != nil {
			t.Fatalf("decode request failed: %v", err)
		}
		return &http.Response{StatusCode: http.StatusCreated, Body: io.NopCloser(strings.NewReader(""))}, nil
	})

	if err := NewHTTPLog(client, "http://example.com").Publish(context.Background(), rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if received.ID != rec.ID || received.Content != rec.Content {
		t.Errorf("received = %+v; want %+v", received, rec)
	}
}

func TestHTTPLog_PublishRejected(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusForbidden, Body: io.NopCloser(strings.NewReader("author mismatch\n"))}, nil
	})
	err := NewHTTPLog(client, "http://example.com").Publish(context.Background(), models.Record{ID: "x"})
	if err == nil || !strings.Contains(err.Error(), "server error: author mismatch") {
		t.Errorf("expected server error, got %v", err)
	}
}
