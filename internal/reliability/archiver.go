// Package reliability archives closed/cancelled signal rows that have
// already been deleted from the active store, so they are not lost
// once persist.Backend's TTL/rotation (if any) catches up with them.
// Adapted from the teacher's tiered backup service: instead of
// VACUUM-ing whole SQLite files to local disk, it appends individual
// rows to a remote newline-delimited JSON object, grounded on the
// teacher's own aws-sdk-go-v2 S3 dependency.
package reliability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/quanttrader/internal/domain"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// S3Client is the subset of *s3.Client the archiver needs, narrowed so
// tests can substitute a fake.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// ArchivedRow is one closed or cancelled signal, timestamped at the
// moment it left the active store.
type ArchivedRow struct {
	Row      domain.SignalRow `json:"row"`
	Outcome  domain.Outcome   `json:"outcome"`
	ClosedAt int64            `json:"closedAt"`
	Backtest bool             `json:"backtest"`
}

// Archiver batches ArchivedRows in memory and flushes them as a single
// newline-delimited JSON object per flush, keyed by UTC day only (not
// by strategy) so repeated flushes within a day append to the same
// bucket key.
type Archiver struct {
	client S3Client
	bucket string
	prefix string
	log    zerolog.Logger

	mu      sync.Mutex
	pending []ArchivedRow
}

// New builds an archiver. bucket must be non-empty; callers should
// consult cfg.ArchivalEnabled() before constructing one.
func New(client S3Client, bucket, prefix string, log zerolog.Logger) *Archiver {
	return &Archiver{
		client: client,
		bucket: bucket,
		prefix: prefix,
		log:    log.With().Str("component", "reliability.archiver").Logger(),
	}
}

// Record queues a closed/cancelled row for the next Flush. Safe to call
// from the strategy client's OnClose callback.
func (a *Archiver) Record(row domain.SignalRow, outcome domain.Outcome, closedAt int64, backtest bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = append(a.pending, ArchivedRow{Row: row, Outcome: outcome, ClosedAt: closedAt, Backtest: backtest})
}

// Flush uploads every pending row as newline-delimited JSON to a
// single object keyed by UTC date, then clears the pending buffer.
// A failed upload leaves the buffer intact so the next Flush retries it.
func (a *Archiver) Flush(ctx context.Context) error {
	a.mu.Lock()
	rows := a.pending
	a.mu.Unlock()

	if len(rows) == 0 {
		return nil
	}

	key := a.objectKey(time.UnixMilli(rows[0].ClosedAt))

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("reliability: encode archived row: %w", err)
		}
	}

	existing, err := a.fetchExisting(ctx, key)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		combined := append(existing, buf.Bytes()...)
		buf = *bytes.NewBuffer(combined)
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(buf.Bytes()),
	})
	if err != nil {
		return fmt.Errorf("reliability: put object %s: %w", key, err)
	}

	a.mu.Lock()
	a.pending = a.pending[len(rows):]
	a.mu.Unlock()

	a.log.Info().Str("key", key).Int("rows", len(rows)).Msg("archived closed signals")
	return nil
}

func (a *Archiver) fetchExisting(ctx context.Context, key string) ([]byte, error) {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		// Treat any failure (including NoSuchKey) as "nothing archived yet
		// today"; a transient fetch error only costs one duplicate append.
		return nil, nil
	}
	defer out.Body.Close()
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(out.Body); err != nil {
		return nil, fmt.Errorf("reliability: read existing object %s: %w", key, err)
	}
	return buf.Bytes(), nil
}

func (a *Archiver) objectKey(day time.Time) string {
	date := day.UTC().Format("2006-01-02")
	if a.prefix == "" {
		return fmt.Sprintf("signals/%s.ndjson", date)
	}
	return fmt.Sprintf("%s/signals/%s.ndjson", a.prefix, date)
}

// Pending reports the number of rows queued but not yet flushed, for
// health reporting.
func (a *Archiver) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// Run flushes on a fixed interval until ctx is cancelled, logging (but
// not returning) flush errors so a single failed upload cannot take
// down the caller's goroutine.
func (a *Archiver) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.Flush(ctx); err != nil {
				a.log.Error().Err(err).Msg("archive flush failed")
			}
		}
	}
}
