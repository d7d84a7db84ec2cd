package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/atinyakov/HomeKeeper/internal/models"
)

const apiRecords = "/api/records"

// HTTPLog talks to the records API of the HomeKeeper log server.
type HTTPLog struct {
	client  *http.Client
	baseURL string
}

// NewHTTPLog returns a Log for the server at baseURL.
func NewHTTPLog(client *http.Client, baseURL string) *HTTPLog {
	return &HTTPLog{client: client, baseURL: baseURL}
}

// Query implements Log via GET /api/records.
func (h *HTTPLog) Query(ctx context.Context, filter models.Filter) ([]models.Record, error) {
	q := url.Values{}
	for _, a := range filter.Authors {
		q.Add("author", a)
	}
	for _, ns := range filter.Namespaces {
		q.Add("namespace", ns)
	}
	if filter.Since > 0 {
		q.Set("since", strconv.FormatInt(filter.Since, 10))
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+apiRecords+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, serverError(resp)
	}

	var records []models.Record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("invalid response: %w", err)
	}
	return records, nil
}

// Publish implements Log via POST /api/records.
func (h *HTTPLog) Publish(ctx context.Context, rec models.Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+apiRecords, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return serverError(resp)
	}
	return nil
}

func serverError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("server error: %s", bytes.TrimSpace(data))
}
