package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cinedex/cinedex-backend/internal/ingest"
	"github.com/cinedex/cinedex-backend/pkg/kv"
)

// ErrRunNotFound is returned when no completion is recorded for a run id.
var ErrRunNotFound = errors.New("import run not found")

// Ledger key prefixes
const (
	KeyImportRun     = "cdx:imports:run"
	KeyRecentImports = "cdx:imports:recent"
)

// MaxRecentImports bounds the recent-runs list.
const MaxRecentImports = 50

// LedgerMetrics receives ledger lookup outcomes.
type LedgerMetrics interface {
	RecordLedgerHit(ctx context.Context)
	RecordLedgerMiss(ctx context.Context)
}

// ImportLedger records completed import runs in a key-value store so they can
// be looked up after the request that ran them has returned.
type ImportLedger struct {
	kv      kv.Store
	ttl     time.Duration
	logger  *zap.SugaredLogger
	metrics LedgerMetrics
}

func NewImportLedger(store kv.Store, ttl time.Duration, logger *zap.SugaredLogger, metrics LedgerMetrics) *ImportLedger {
	return &ImportLedger{
		kv:      store,
		ttl:     ttl,
		logger:  logger,
		metrics: metrics,
	}
}

func runKey(runID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", KeyImportRun, runID)
}

// Record stores c and pushes its run id onto the recent-runs list.
func (l *ImportLedger) Record(ctx context.Context, c ingest.Completion) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("ledger marshal error: %w", err)
	}

	if err := l.kv.Set(ctx, runKey(c.RunID), data, l.ttl); err != nil {
		return fmt.Errorf("ledger set error: %w", err)
	}

	if _, err := l.kv.LPush(ctx, KeyRecentImports, []byte(c.RunID.String())); err != nil {
		return fmt.Errorf("ledger push error: %w", err)
	}
	if err := l.kv.LTrim(ctx, KeyRecentImports, 0, MaxRecentImports-1); err != nil {
		return fmt.Errorf("ledger trim error: %w", err)
	}
	if l.ttl > 0 {
		if _, err := l.kv.Expire(ctx, KeyRecentImports, l.ttl); err != nil {
			return fmt.Errorf("ledger expire error: %w", err)
		}
	}
	return nil
}

// Listener returns an ingest.Listener that records each completion.
func (l *ImportLedger) Listener() ingest.Listener {
	return func(ctx context.Context, c ingest.Completion) error {
		if err := l.Record(ctx, c); err != nil {
			return err
		}
		l.logger.Infow("Data has been successfully uploaded to the database",
			"run_id", c.RunID,
			"count", c.Count,
		)
		return nil
	}
}

// Get returns the recorded completion of runID.
func (l *ImportLedger) Get(ctx context.Context, runID uuid.UUID) (ingest.Completion, error) {
	data, err := l.kv.Get(ctx, runKey(runID))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			if l.metrics != nil {
				l.metrics.RecordLedgerMiss(ctx)
			}
			return ingest.Completion{}, ErrRunNotFound
		}
		l.logger.Errorw("Ledger get error", "run_id", runID, "error", err)
		return ingest.Completion{}, fmt.Errorf("ledger get error: %w", err)
	}
	if l.metrics != nil {
		l.metrics.RecordLedgerHit(ctx)
	}

	var c ingest.Completion
	if err := json.Unmarshal(data, &c); err != nil {
		return ingest.Completion{}, fmt.Errorf("ledger unmarshal error: %w", err)
	}
	return c, nil
}

// Recent returns up to limit completions, newest first. Runs whose record has
// expired are skipped.
func (l *ImportLedger) Recent(ctx context.Context, limit int) ([]ingest.Completion, error) {
	completions := []ingest.Completion{}
	if limit <= 0 {
		return completions, nil
	}

	ids, err := l.kv.LRange(ctx, KeyRecentImports, 0, int64(limit-1))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return completions, nil
		}
		return nil, fmt.Errorf("ledger range error: %w", err)
	}

	for _, raw := range ids {
		runID, err := uuid.ParseBytes(raw)
		if err != nil {
			l.logger.Warnw("Skipping malformed run id in ledger", "value", string(raw))
			continue
		}
		c, err := l.Get(ctx, runID)
		if errors.Is(err, ErrRunNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		completions = append(completions, c)
	}
	return completions, nil
}

func (l *ImportLedger) Ping(ctx context.Context) error {
	return l.kv.Ping(ctx)
}
