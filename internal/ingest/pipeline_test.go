package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cinedex/cinedex-backend/internal/db"
	"github.com/cinedex/cinedex-backend/internal/db/entities"
	"github.com/cinedex/cinedex-backend/internal/repository"
)

// MockCreator implements Creator for testing
type MockCreator struct {
	mock.Mock
}

func (m *MockCreator) Create(ctx context.Context, movie entities.Movie) (entities.Movie, error) {
	args := m.Called(ctx, movie)
	return args.Get(0).(entities.Movie), args.Error(1)
}

// MockRecorder implements Recorder for testing
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) RecordImport(ctx context.Context, outcome string, persisted int) {
	m.Called(ctx, outcome, persisted)
}

// failingCreator wraps a real repository and fails the n-th create (1-based).
type failingCreator struct {
	next   Creator
	failAt int
	calls  int
}

func (f *failingCreator) Create(ctx context.Context, movie entities.Movie) (entities.Movie, error) {
	f.calls++
	if f.calls == f.failAt {
		return entities.Movie{}, errors.New("store rejected write")
	}
	return f.next.Create(ctx, movie)
}

func newTestRepository(t *testing.T) *repository.MovieRepository {
	t.Helper()
	store, err := db.OpenMemory(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return repository.NewMovieRepository(store, zap.NewNop().Sugar())
}

func buildDocument(n int) []byte {
	var sb strings.Builder
	sb.WriteString("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n<MovieData>\n")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&sb, "  <Movie><Title>Movie %d</Title><Director>Director %d</Director><ReleaseYear>%d</ReleaseYear><Genre>Drama</Genre><Rating>7.5</Rating></Movie>\n",
			i, i, 1990+i)
	}
	sb.WriteString("</MovieData>\n")
	return []byte(sb.String())
}

func TestNewPipelineRequiresRepository(t *testing.T) {
	_, err := NewPipeline(nil)
	assert.ErrorIs(t, err, ErrRepositoryRequired)
}

func TestRunPersistsInDocumentOrder(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	fixedID := uuid.MustParse("7d444840-9dc0-11d1-b245-5ffdce74fad2")
	fixedNow := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	p, err := NewPipeline(repo,
		WithIDGenerator(func() uuid.UUID { return fixedID }),
		WithClock(func() time.Time { return fixedNow }),
	)
	require.NoError(t, err)

	var notified []Completion
	summary, err := p.Run(ctx, buildDocument(3), func(_ context.Context, c Completion) error {
		notified = append(notified, c)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Count)
	assert.Equal(t, fixedID, summary.RunID)

	require.Len(t, notified, 1)
	assert.Equal(t, Completion{RunID: fixedID, Count: 3, StartedAt: fixedNow, FinishedAt: fixedNow}, notified[0])

	all, err := repo.All().List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Movie 1", all[0].Title)
	assert.Equal(t, "Movie 2", all[1].Title)
	assert.Equal(t, "Movie 3", all[2].Title)
	assert.Equal(t, 1991, all[0].ReleaseYear)
	assert.Equal(t, "7.5", all[0].Rating.String())
}

func TestRunEmptyPayload(t *testing.T) {
	for name, payload := range map[string][]byte{
		"nil":        nil,
		"empty":      {},
		"whitespace": []byte("  \n\t "),
	} {
		t.Run(name, func(t *testing.T) {
			creator := new(MockCreator)
			recorder := new(MockRecorder)
			recorder.On("RecordImport", mock.Anything, OutcomeRejected, 0).Return()

			p, err := NewPipeline(creator, WithRecorder(recorder))
			require.NoError(t, err)

			called := false
			_, err = p.Run(context.Background(), payload, func(context.Context, Completion) error {
				called = true
				return nil
			})
			assert.ErrorIs(t, err, ErrEmptyPayload)
			assert.False(t, called)
			creator.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			recorder.AssertExpectations(t)
		})
	}
}

func TestRunMalformedDocument(t *testing.T) {
	tests := map[string]string{
		"not xml":    "this is not xml",
		"unclosed":   "<MovieData><Movie><Title>Broken</Title>",
		"wrong root": "<Films><Movie><Title>X</Title></Movie></Films>",
		"bad year":   "<MovieData><Movie><Title>X</Title><ReleaseYear>nineteen</ReleaseYear></Movie></MovieData>",
		"bad rating": "<MovieData><Movie><Title>X</Title><Rating>great</Rating></Movie></MovieData>",
	}

	for name, payload := range tests {
		t.Run(name, func(t *testing.T) {
			creator := new(MockCreator)
			p, err := NewPipeline(creator)
			require.NoError(t, err)

			_, err = p.Run(context.Background(), []byte(payload), nil)

			var malformed *MalformedDocumentError
			require.True(t, errors.As(err, &malformed), "got %v", err)
			assert.NotEmpty(t, malformed.Error())
			creator.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestRunZeroEntriesSucceeds(t *testing.T) {
	creator := new(MockCreator)
	p, err := NewPipeline(creator)
	require.NoError(t, err)

	notified := false
	summary, err := p.Run(context.Background(), []byte("<MovieData></MovieData>"), func(context.Context, Completion) error {
		notified = true
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Count)
	assert.True(t, notified)
}

func TestRunLenientEntries(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	p, err := NewPipeline(repo)
	require.NoError(t, err)

	payload := `<MovieData>
  <Movie><Title>A</Title><Director>D</Director><ReleaseYear>2001</ReleaseYear><Genre>Drama</Genre><Rating>8.1</Rating></Movie>
  <Movie><Title>B</Title><Unknown>ignored</Unknown><ReleaseYear> </ReleaseYear></Movie>
  <Movie><Title>C</Title><Director>D</Director><ReleaseYear> 2003 </ReleaseYear><Genre>Drama</Genre><Rating> 7.0 </Rating></Movie>
</MovieData>`

	summary, err := p.Run(ctx, []byte(payload), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Count)

	all, err := repo.All().List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "A", all[0].Title)
	assert.Equal(t, "B", all[1].Title)
	assert.Equal(t, 0, all[1].ReleaseYear)
	assert.Equal(t, "", all[1].Director)
	assert.True(t, all[1].Rating.IsZero())
	assert.Equal(t, "C", all[2].Title)
	assert.Equal(t, 2003, all[2].ReleaseYear)
}

func TestRunPartialFailureIsNotRolledBack(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	const n = 10
	creator := &failingCreator{next: repo, failAt: n / 2}

	recorder := new(MockRecorder)
	recorder.On("RecordImport", mock.Anything, OutcomeFailed, n/2-1).Return()

	p, err := NewPipeline(creator, WithRecorder(recorder))
	require.NoError(t, err)

	notified := false
	_, err = p.Run(ctx, buildDocument(n), func(context.Context, Completion) error {
		notified = true
		return nil
	})

	var ingestErr *IngestionError
	require.True(t, errors.As(err, &ingestErr), "got %v", err)
	assert.Equal(t, StageCreate, ingestErr.Stage)
	assert.Equal(t, n/2-1, ingestErr.Persisted)
	assert.False(t, notified)
	assert.Equal(t, n/2, creator.calls)

	all, err := repo.All().List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, n/2-1)
	recorder.AssertExpectations(t)
}

func TestRunListenerErrorPropagates(t *testing.T) {
	ctx := context.Background()
	creator := new(MockCreator)
	creator.On("Create", mock.Anything, mock.Anything).Return(entities.Movie{ID: 1}, nil)

	p, err := NewPipeline(creator)
	require.NoError(t, err)

	listenerErr := errors.New("listener exploded")
	_, err = p.Run(ctx, buildDocument(2), func(context.Context, Completion) error {
		return listenerErr
	})

	var ingestErr *IngestionError
	require.True(t, errors.As(err, &ingestErr))
	assert.Equal(t, StageNotify, ingestErr.Stage)
	assert.Equal(t, 2, ingestErr.Persisted)
	assert.ErrorIs(t, err, listenerErr)
	creator.AssertNumberOfCalls(t, "Create", 2)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	creator := new(MockCreator)
	p, err := NewPipeline(creator)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = p.Run(ctx, buildDocument(2), nil)

	var ingestErr *IngestionError
	require.True(t, errors.As(err, &ingestErr))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, ingestErr.Persisted)
	creator.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
