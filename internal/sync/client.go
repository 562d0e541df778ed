// Package sync orchestrates incremental replication of local analysis
// tables into the multi-tenant cloud store.
//
// A push runs each catalog table through an independent pipeline:
//
//	read rows since cursor → redact → upload in batches
//
// Tables are isolated units: one table's failure never affects another,
// and a failed table is simply re-read from its old cursor on the next
// push. Per-source cursors advance only from tables whose entire row set
// was confirmed uploaded, so partial progress (including a timeout with
// batches still in flight) can never corrupt a cursor.
package sync

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	stdsync "sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sourcepulse/cloudsync/internal/catalog"
	"github.com/sourcepulse/cloudsync/internal/redact"
	"github.com/sourcepulse/cloudsync/internal/schema"
	"github.com/sourcepulse/cloudsync/internal/upload"
)

// DefaultConcurrency is how many table pipelines run at once unless the
// client is configured otherwise.
const DefaultConcurrency = 4

// RowReader supplies local rows to a push.
//
// Implementations read from the three local databases; internal/reader
// provides the SQLite one. The returned sequence is finite and read
// exactly once per table per push.
type RowReader interface {
	// ReadRows returns all rows of localTable with id > sinceCursor,
	// in ascending id order.
	ReadRows(ctx context.Context, localTable string, source catalog.Source, sinceCursor int64) ([]schema.Row, error)

	// MaxCursor returns the highest local row id present in the source
	// database across its replicated tables.
	MaxCursor(ctx context.Context, source catalog.Source) (int64, error)
}

// BatchUploader delivers redacted rows to the cloud store.
// internal/upload provides the HTTP implementation.
type BatchUploader interface {
	Upload(ctx context.Context, cloudTable string, conflictColumns []string, rows []schema.Row, token string) error
}

// Progress is called after each table's pipeline completes, successful
// or not. rows is the table's uploaded row count (zero on failure).
// Purely observational: it has no effect on outcomes.
type Progress func(table string, rows int, err error)

// Options configures a single Push call.
type Options struct {
	// FullSync forces every table to read from cursor 0 for this push
	// only, re-uploading full history. It never regresses a cursor.
	FullSync bool

	// OnProgress, if set, fires after each table completes.
	OnProgress Progress
}

// Result is the outcome of one Push call.
type Result struct {
	// Success is true iff Errors is empty. Zero changed rows anywhere is
	// still a success.
	Success bool

	// TotalRows is the sum of rows uploaded by tables that completed.
	TotalRows int

	// Errors collects per-table failures (and the push-level auth
	// failure), each tagged retryable or not.
	Errors []TableError

	// State is the updated sync state to persist. LastSyncAt and
	// LastSyncRowCount are set even when some tables failed, so "a sync
	// attempt happened" stays legible.
	State State

	// TableCounts maps each successfully uploaded table to its row
	// count.
	TableCounts map[string]int
}

// ClientConfig configures a sync client.
type ClientConfig struct {
	// Uploader delivers batches. Required.
	Uploader BatchUploader

	// Tokens supplies the bearer token, fetched once per push. Required.
	Tokens TokenProvider

	// Engine applies redaction rules. Nil means the reference rule set.
	Engine *redact.Engine

	// ProjectRoot is the absolute project root that path redaction
	// strips from outgoing paths.
	ProjectRoot string

	// Tables overrides the replication catalog, mainly for tests.
	// Nil means the full static catalog.
	Tables []catalog.Definition

	// Concurrency caps how many table pipelines run at once.
	// Zero means DefaultConcurrency.
	Concurrency int

	// Logger for push activity. Nil means a stderr default.
	Logger *log.Logger
}

// Client orchestrates pushes. It holds only immutable configuration and
// is safe for concurrent use; all mutable state lives in the Push call.
type Client struct {
	uploader    BatchUploader
	tokens      TokenProvider
	engine      *redact.Engine
	projectRoot string
	tables      []catalog.Definition
	concurrency int
	logger      *log.Logger
}

// NewClient creates a sync client.
//
// The replication catalog and redaction rule set are validated here,
// once, so configuration drift surfaces at startup rather than per row.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Uploader == nil {
		return nil, fmt.Errorf("uploader is required")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token provider is required")
	}
	if err := catalog.Validate(); err != nil {
		return nil, fmt.Errorf("invalid table catalog: %w", err)
	}

	engine := cfg.Engine
	if engine == nil {
		var err error
		engine, err = redact.Default()
		if err != nil {
			return nil, fmt.Errorf("invalid redaction rules: %w", err)
		}
	}

	tables := cfg.Tables
	if tables == nil {
		tables = catalog.Tables()
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}

	return &Client{
		uploader:    cfg.Uploader,
		tokens:      cfg.Tokens,
		engine:      engine,
		projectRoot: cfg.ProjectRoot,
		tables:      tables,
		concurrency: concurrency,
		logger:      logger,
	}, nil
}

// tableOutcome is the result of one table's pipeline.
type tableOutcome struct {
	def   catalog.Definition
	rows  int
	maxID int64
	err   error
}

// Push replicates every catalog table and returns the aggregate result.
//
// Ordinary operational failures never surface as a Go error; they are
// collected into Result.Errors so the caller decides retry policy. The
// previous state is read once and never mutated: the updated copy in
// Result.State is the caller's to persist.
func (c *Client) Push(ctx context.Context, reader RowReader, prev State, opts Options) *Result {
	res := &Result{
		State:       prev,
		TableCounts: make(map[string]int),
	}
	pushID := uuid.NewString()[:8]
	start := time.Now()

	defer func() {
		now := time.Now().UTC()
		res.State.LastSyncAt = &now
		res.State.LastSyncRowCount = res.TotalRows
		res.Success = len(res.Errors) == 0
		c.logger.Printf("push %s: done in %v (rows=%d, tables=%d, errors=%d, fullSync=%v)",
			pushID, time.Since(start).Round(time.Millisecond),
			res.TotalRows, len(res.TableCounts), len(res.Errors), opts.FullSync)
	}()

	// The token gates the whole push: no identity, no network calls.
	token, err := c.tokens.Token(ctx)
	if err != nil || strings.TrimSpace(token) == "" {
		if err == nil {
			err = ErrNoToken
		}
		res.Errors = append(res.Errors, TableError{
			Retryable: false,
			Err:       fmt.Errorf("failed to obtain bearer token: %w", err),
		})
		return res
	}

	outcomes := make([]tableOutcome, len(c.tables))
	var mu stdsync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(c.concurrency)
	for i, def := range c.tables {
		i, def := i, def
		g.Go(func() error {
			out := c.syncTable(ctx, reader, def, prev, opts.FullSync, token)
			mu.Lock()
			outcomes[i] = out
			if opts.OnProgress != nil {
				opts.OnProgress(def.LocalTable, out.rows, out.err)
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	// Aggregate in catalog order so errors and counts are deterministic.
	maxBySource := make(map[catalog.Source]int64)
	for _, out := range outcomes {
		if out.err != nil {
			res.Errors = append(res.Errors, TableError{
				Table:     out.def.LocalTable,
				Retryable: upload.IsRetryable(out.err),
				Err:       out.err,
			})
			continue
		}
		res.TotalRows += out.rows
		res.TableCounts[out.def.LocalTable] = out.rows
		if out.maxID > maxBySource[out.def.Source] {
			maxBySource[out.def.Source] = out.maxID
		}
	}

	// Cursors advance only from fully-confirmed tables, and never move
	// backwards — not even on a full sync.
	for _, source := range []catalog.Source{catalog.SourcePrimary, catalog.SourceCausal, catalog.SourceSemantic} {
		if cand := maxBySource[source]; cand > res.State.Cursor(source) {
			res.State.setCursor(source, cand)
		}
	}

	return res
}

// syncTable runs one table's pipeline: read → redact → upload.
func (c *Client) syncTable(ctx context.Context, reader RowReader, def catalog.Definition, prev State, fullSync bool, token string) tableOutcome {
	out := tableOutcome{def: def}

	since := prev.Cursor(def.Source)
	if fullSync {
		since = 0
	}

	rows, err := reader.ReadRows(ctx, def.LocalTable, def.Source, since)
	if err != nil {
		out.err = fmt.Errorf("failed to read rows: %w", err)
		return out
	}
	if len(rows) == 0 {
		return out
	}

	redacted := c.engine.RedactBatch(def.LocalTable, rows, c.projectRoot)

	if err := c.uploader.Upload(ctx, def.CloudTable, def.ConflictColumns, redacted, token); err != nil {
		out.err = err
		return out
	}

	out.rows = len(rows)
	for _, row := range rows {
		if id := row.ID(); id > out.maxID {
			out.maxID = id
		}
	}
	c.logger.Printf("table %s: uploaded %d rows (cursor candidate %d)", def.LocalTable, out.rows, out.maxID)
	return out
}
