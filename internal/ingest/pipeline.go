package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cinedex/cinedex-backend/internal/db/entities"
)

// Creator persists a single movie.
type Creator interface {
	Create(ctx context.Context, movie entities.Movie) (entities.Movie, error)
}

// Recorder receives the outcome of every run.
type Recorder interface {
	RecordImport(ctx context.Context, outcome string, persisted int)
}

// Run outcomes reported to a Recorder.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Completion describes a successfully finished run.
type Completion struct {
	RunID      uuid.UUID `json:"runId"`
	Count      int       `json:"count"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Listener is notified synchronously once every entry of a run has been
// persisted. A returned error fails the run.
type Listener func(ctx context.Context, c Completion) error

// Summary is returned by a successful run.
type Summary struct {
	RunID uuid.UUID `json:"runId"`
	Count int       `json:"count"`
}

// Pipeline loads movie documents into the repository one entry at a time.
type Pipeline struct {
	repo     Creator
	logger   *zap.SugaredLogger
	recorder Recorder
	now      func() time.Time
	newID    func() uuid.UUID
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithLogger sets a custom logger.
// Default is a no-op logger.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(p *Pipeline) error {
		if logger != nil {
			p.logger = logger
		}
		return nil
	}
}

// WithRecorder reports run outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) error {
		p.recorder = r
		return nil
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) error {
		if now != nil {
			p.now = now
		}
		return nil
	}
}

// WithIDGenerator overrides how run ids are generated.
func WithIDGenerator(newID func() uuid.UUID) Option {
	return func(p *Pipeline) error {
		if newID != nil {
			p.newID = newID
		}
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(repo Creator, opts ...Option) (*Pipeline, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}

	p := &Pipeline{
		repo:   repo,
		logger: zap.NewNop().Sugar(),
		now:    time.Now,
		newID:  uuid.New,
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Run parses payload and creates every entry in document order. Entries are
// not created atomically: on failure the ones already created stay persisted
// and the returned IngestionError says how many. listener may be nil.
func (p *Pipeline) Run(ctx context.Context, payload []byte, listener Listener) (Summary, error) {
	runID := p.newID()
	startedAt := p.now()

	movies, err := Parse(payload)
	if err != nil {
		p.logger.Warnw("Rejected import document", "run_id", runID, "error", err)
		p.record(ctx, OutcomeRejected, 0)
		return Summary{}, err
	}

	for i, movie := range movies {
		if err := ctx.Err(); err != nil {
			return Summary{}, p.fail(ctx, runID, StageCreate, i, err)
		}
		if _, err := p.repo.Create(ctx, movie); err != nil {
			return Summary{}, p.fail(ctx, runID, StageCreate, i, err)
		}
	}

	completion := Completion{
		RunID:      runID,
		Count:      len(movies),
		StartedAt:  startedAt,
		FinishedAt: p.now(),
	}

	if listener != nil {
		if err := listener(ctx, completion); err != nil {
			return Summary{}, p.fail(ctx, runID, StageNotify, len(movies), err)
		}
	}

	p.logger.Infow("Import completed",
		"run_id", runID,
		"count", completion.Count,
		"duration", completion.FinishedAt.Sub(startedAt),
	)
	p.record(ctx, OutcomeSuccess, completion.Count)

	return Summary{RunID: runID, Count: completion.Count}, nil
}

func (p *Pipeline) fail(ctx context.Context, runID uuid.UUID, stage string, persisted int, err error) error {
	p.logger.Errorw("Import failed",
		"run_id", runID,
		"stage", stage,
		"persisted", persisted,
		"error", err,
	)
	p.record(ctx, OutcomeFailed, persisted)
	return &IngestionError{RunID: runID, Stage: stage, Persisted: persisted, Err: err}
}

func (p *Pipeline) record(ctx context.Context, outcome string, persisted int) {
	if p.recorder != nil {
		p.recorder.RecordImport(ctx, outcome, persisted)
	}
}
