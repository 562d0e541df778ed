// Package upload delivers redacted rows to the cloud store.
//
// The uploader speaks the store's REST upsert dialect: each request is a
// POST of a JSON row array to /rest/v1/{table} with a Prefer header
// instructing merge-on-conflict over the table's declared conflict
// columns. Upsert makes delivery at-least-once with idempotent effect,
// so a retried batch is always safe.
//
// Tenant isolation is enforced here: every row is stamped with the
// configured tenant and project ids before it is serialized, overwriting
// anything local data may claim. The uploader never advances cursors;
// that is the orchestrator's job.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sourcepulse/cloudsync/internal/schema"
)

// DefaultBatchSize bounds how many rows travel in one request.
const DefaultBatchSize = 500

// Config holds uploader configuration.
type Config struct {
	// BaseURL is the cloud store endpoint, e.g. https://acme.cloud.example.
	BaseURL string

	// TenantID and ProjectID are stamped onto every uploaded row.
	TenantID  string
	ProjectID string

	// BatchSize caps rows per request. Zero means DefaultBatchSize.
	BatchSize int

	// RequestTimeout bounds a single HTTP request. Zero means 30s.
	RequestTimeout time.Duration
}

// Uploader issues authenticated upsert requests against the cloud store.
type Uploader struct {
	cfg    Config
	client *http.Client
	logger *log.Logger
}

// New creates an Uploader.
//
// If logger is nil, a default logger writing to stderr is used.
func New(cfg Config, logger *log.Logger) *Uploader {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[upload] ", log.LstdFlags)
	}
	return &Uploader{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.RequestTimeout},
		logger: logger,
	}
}

// BatchSize returns the effective rows-per-request cap.
func (u *Uploader) BatchSize() int {
	return u.cfg.BatchSize
}

// Upload pushes rows to cloudTable, upserting by conflictColumns.
//
// Rows must already be redacted. Each row is stamped with the configured
// tenant_id/project_id, then the set is chunked into fixed-size batches
// and delivered sequentially. The first failing batch aborts the rest:
// one failed batch invalidates only its own rows, and under upsert the
// caller can simply re-run the whole table later.
//
// A missing or blank token fails before any network call.
func (u *Uploader) Upload(ctx context.Context, cloudTable string, conflictColumns []string, rows []schema.Row, token string) error {
	if strings.TrimSpace(token) == "" {
		return ErrMissingToken
	}
	if len(rows) == 0 {
		return nil
	}

	tagged := make([]schema.Row, len(rows))
	for i, row := range rows {
		r := row.Clone()
		// Identity comes from configuration, never from local data.
		r["tenant_id"] = u.cfg.TenantID
		r["project_id"] = u.cfg.ProjectID
		tagged[i] = r
	}

	for start := 0; start < len(tagged); start += u.cfg.BatchSize {
		end := start + u.cfg.BatchSize
		if end > len(tagged) {
			end = len(tagged)
		}
		if err := u.uploadBatch(ctx, cloudTable, conflictColumns, tagged[start:end], token); err != nil {
			return err
		}
	}

	u.logger.Printf("Uploaded %d rows to %s in %d batch(es)",
		len(tagged), cloudTable, (len(tagged)+u.cfg.BatchSize-1)/u.cfg.BatchSize)
	return nil
}

// uploadBatch delivers one chunk and classifies any failure.
func (u *Uploader) uploadBatch(ctx context.Context, cloudTable string, conflictColumns []string, batch []schema.Row, token string) error {
	body, err := json.Marshal(batch)
	if err != nil {
		return &RequestError{Table: cloudTable, Err: fmt.Errorf("failed to encode batch: %w", err)}
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s", strings.TrimRight(u.cfg.BaseURL, "/"), cloudTable)
	if len(conflictColumns) > 0 {
		endpoint += "?on_conflict=" + url.QueryEscape(strings.Join(conflictColumns, ","))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return &RequestError{Table: cloudTable, Err: fmt.Errorf("failed to build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Prefer", "resolution=merge-duplicates,return=minimal")
	req.Header.Set("X-Client-Request-Id", uuid.NewString())

	resp, err := u.client.Do(req)
	if err != nil {
		// Transport failure: retryable by classification.
		return &RequestError{Table: cloudTable, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	// Read a bounded slice of the body for the error message.
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &RequestError{
		Table:  cloudTable,
		Status: resp.StatusCode,
		Err:    fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(msg))),
	}
}
