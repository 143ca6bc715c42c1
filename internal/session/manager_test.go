package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirekit/tailor/internal/documents"
	"github.com/hirekit/tailor/internal/engine"
	"github.com/hirekit/tailor/internal/fetch"
	"github.com/hirekit/tailor/internal/history"
	"github.com/hirekit/tailor/internal/types"
)

const testPosting = `Senior Backend Engineer
Acme Corp is hiring.

Requirements:
- 5+ years of Go
- PostgreSQL experience
`

type fakeFetcher struct {
	calls int32
	fn    func(ctx context.Context, url string) (string, error)
}

func (f *fakeFetcher) FetchPosting(ctx context.Context, url string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.fn != nil {
		return f.fn(ctx, url)
	}
	return testPosting, nil
}

type fakeParser struct {
	fn func(ctx context.Context, ref uuid.UUID) (*types.StructuredResume, error)
}

func (f *fakeParser) ParseResume(ctx context.Context, ref uuid.UUID) (*types.StructuredResume, error) {
	if f.fn != nil {
		return f.fn(ctx, ref)
	}
	return sampleResume(), nil
}

type fakeEngine struct {
	calls int32
	fn    func(ctx context.Context, req *types.JobRequirements, resume *types.StructuredResume) (*types.TailoringResult, error)
}

func (f *fakeEngine) Optimize(ctx context.Context, req *types.JobRequirements, resume *types.StructuredResume) (*types.TailoringResult, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.fn != nil {
		return f.fn(ctx, req, resume)
	}
	return sampleResult(), nil
}

func sampleResume() *types.StructuredResume {
	return &types.StructuredResume{
		Name:     "Jordan Smith",
		Headline: "Backend Engineer",
		Sections: []types.ResumeSection{
			{Heading: "Experience", Items: []types.ResumeItem{
				{Text: "Built payment APIs in Go", Change: types.ChangeUnchanged},
			}},
		},
	}
}

func sampleResult() *types.TailoringResult {
	return &types.TailoringResult{
		OriginalScore:  65,
		OptimizedScore: 94,
		OptimizedResume: &types.StructuredResume{
			Name:     "Jordan Smith",
			Headline: "Senior Backend Engineer",
			Sections: []types.ResumeSection{
				{Heading: "Experience", Items: []types.ResumeItem{
					{Text: "Built high-throughput payment APIs in Go", Change: types.ChangeReplaced, Original: "Built payment APIs in Go"},
					{Text: "Operated PostgreSQL clusters", Change: types.ChangeInserted},
				}},
			},
		},
		MatchedRequirements: []string{"5+ years of Go", "PostgreSQL experience"},
	}
}

// hangingExtractor blocks until its context expires, like a stuck LLM call.
type hangingExtractor struct {
	calls int32
}

func (e *hangingExtractor) ExtractRequirements(ctx context.Context, _ string) (*types.JobRequirements, error) {
	atomic.AddInt32(&e.calls, 1)
	<-ctx.Done()
	return nil, ctx.Err()
}

type fixedExtractor struct {
	req *types.JobRequirements
}

func (e *fixedExtractor) ExtractRequirements(_ context.Context, _ string) (*types.JobRequirements, error) {
	return e.req, nil
}

type managerFixture struct {
	manager *Manager
	docs    *documents.MemoryStore
	store   *history.MemoryStore
	docRef  uuid.UUID
	fetcher *fakeFetcher
	parser  *fakeParser
	engine  *fakeEngine
}

func newFixture(t *testing.T) *managerFixture {
	t.Helper()

	docs := documents.NewMemoryStore()
	docRef := uuid.New()
	require.NoError(t, docs.Put(context.Background(), documents.Document{
		ID:         docRef,
		UserID:     "user-1",
		FileName:   "resume.txt",
		MediaType:  documents.MediaTypeText,
		Content:    []byte("Jordan Smith\nBackend Engineer\nExperience\nBuilt payment APIs in Go"),
		UploadedAt: time.Now(),
	}))

	f := &managerFixture{
		docs:    docs,
		store:   history.NewMemoryStore(),
		docRef:  docRef,
		fetcher: &fakeFetcher{},
		parser:  &fakeParser{},
		engine:  &fakeEngine{},
	}
	f.manager = NewManager(Options{
		Fetcher:   f.fetcher,
		Parser:    f.parser,
		Engine:    f.engine,
		Documents: docs,
		History:   f.store,
		Config: Config{
			FetchRetry:      fetch.RetryConfig{MaxAttempts: 3, BaseWait: time.Millisecond, Factor: 2.0},
			ExtractTimeout:  time.Second,
			ParseTimeout:    time.Second,
			OptimizeTimeout: time.Second,
		},
	})
	return f
}

func (f *managerFixture) submit(t *testing.T) uuid.UUID {
	t.Helper()
	id, err := f.manager.Submit(context.Background(), "user-1", "https://jobs.example.com/123", f.docRef)
	require.NoError(t, err)
	return id
}

func waitForTerminal(t *testing.T, m *Manager, id uuid.UUID) Status {
	t.Helper()
	var status Status
	require.Eventually(t, func() bool {
		var err error
		status, err = m.GetStatus(id)
		return err == nil && status.State.Terminal()
	}, 5*time.Second, 5*time.Millisecond)
	return status
}

func TestSubmitSuccess(t *testing.T) {
	f := newFixture(t)
	id := f.submit(t)

	status := waitForTerminal(t, f.manager, id)
	assert.Equal(t, StateSucceeded, status.State)
	assert.Equal(t, 100, status.ProgressPercent)
	assert.Equal(t, 1, status.AttemptCount)
	assert.Nil(t, status.Error)

	result, err := f.manager.GetResult(id)
	require.NoError(t, err)
	assert.Equal(t, 65, result.OriginalScore)
	assert.Equal(t, 94, result.OptimizedScore)
	require.NotNil(t, result.OptimizedResume)
}

func TestSuccessWritesHistoryOnce(t *testing.T) {
	f := newFixture(t)
	id := f.submit(t)
	waitForTerminal(t, f.manager, id)

	var entries []types.HistoryEntry
	require.Eventually(t, func() bool {
		var err error
		entries, err = f.store.List(context.Background(), "user-1")
		return err == nil && len(entries) > 0
	}, 2*time.Second, 5*time.Millisecond)

	require.Len(t, entries, 1)
	assert.Equal(t, id, entries[0].ID)
	assert.Equal(t, 94, entries[0].ATSScore)
	assert.Equal(t, "Senior Backend Engineer", entries[0].JobTitle)
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		jobURL string
		docRef uuid.UUID
	}{
		{"bad scheme", "ftp://jobs.example.com/1", f.docRef},
		{"not a url", "://", f.docRef},
		{"no host", "https://", f.docRef},
		{"nil document", "https://jobs.example.com/1", uuid.Nil},
		{"unknown document", "https://jobs.example.com/1", uuid.New()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.manager.Submit(context.Background(), "user-1", tt.jobURL, tt.docRef)
			require.Error(t, err)

			var sessErr *Error
			require.ErrorAs(t, err, &sessErr)
			assert.Equal(t, KindValidation, sessErr.Kind)
		})
	}
}

func TestProgressEventsAreMonotonic(t *testing.T) {
	f := newFixture(t)

	started := make(chan struct{})
	f.fetcher.fn = func(ctx context.Context, url string) (string, error) {
		<-started
		return testPosting, nil
	}

	id := f.submit(t)
	events, cancel, err := f.manager.Subscribe(id)
	require.NoError(t, err)
	defer cancel()
	close(started)

	last := 0
	for ev := range events {
		assert.GreaterOrEqual(t, ev.ProgressPercent, last)
		last = ev.ProgressPercent
		if ev.State.Terminal() {
			break
		}
	}
	assert.Equal(t, 100, last)
}

func TestFetchFailureAfterRetries(t *testing.T) {
	f := newFixture(t)
	f.fetcher.fn = func(ctx context.Context, url string) (string, error) {
		return "", &fetch.Error{URL: url, StatusCode: 500, Message: "HTTP status 500"}
	}

	id := f.submit(t)
	status := waitForTerminal(t, f.manager, id)

	assert.Equal(t, StateFailed, status.State)
	require.NotNil(t, status.Error)
	assert.Equal(t, KindFetch, status.Error.Kind)
	assert.True(t, status.Error.Retryable)
	assert.EqualValues(t, 3, atomic.LoadInt32(&f.fetcher.calls))
}

func TestFetchTimeoutMapsToTimeoutKind(t *testing.T) {
	f := newFixture(t)
	f.fetcher.fn = func(ctx context.Context, url string) (string, error) {
		return "", &fetch.Error{URL: url, Message: "attempt timed out", Cause: context.DeadlineExceeded}
	}

	id := f.submit(t)
	status := waitForTerminal(t, f.manager, id)

	assert.Equal(t, StateFailed, status.State)
	require.NotNil(t, status.Error)
	assert.Equal(t, KindTimeout, status.Error.Kind)
}

func TestParseFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	f.parser.fn = func(ctx context.Context, ref uuid.UUID) (*types.StructuredResume, error) {
		return nil, errors.New("garbled document")
	}

	id := f.submit(t)
	status := waitForTerminal(t, f.manager, id)

	assert.Equal(t, StateFailed, status.State)
	require.NotNil(t, status.Error)
	assert.Equal(t, KindParse, status.Error.Kind)
	assert.False(t, status.Error.Retryable)
}

func TestOptimizeTimeout(t *testing.T) {
	f := newFixture(t)
	f.engine.fn = func(ctx context.Context, req *types.JobRequirements, resume *types.StructuredResume) (*types.TailoringResult, error) {
		<-ctx.Done()
		return nil, &engine.Error{Kind: engine.KindTimeout, Message: "optimization timed out", Cause: ctx.Err()}
	}

	f.manager.cfg.OptimizeTimeout = 20 * time.Millisecond

	id := f.submit(t)
	status := waitForTerminal(t, f.manager, id)

	assert.Equal(t, StateFailed, status.State)
	require.NotNil(t, status.Error)
	assert.Equal(t, KindTimeout, status.Error.Kind)
	// One attempt only; the engine is never auto-retried.
	assert.EqualValues(t, 1, atomic.LoadInt32(&f.engine.calls))
}

func TestContractViolationScores(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *types.TailoringResult)
	}{
		{"score above range", func(r *types.TailoringResult) { r.OptimizedScore = 101 }},
		{"score below range", func(r *types.TailoringResult) { r.OriginalScore = -1 }},
		{"missing resume", func(r *types.TailoringResult) { r.OptimizedResume = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.engine.fn = func(ctx context.Context, req *types.JobRequirements, resume *types.StructuredResume) (*types.TailoringResult, error) {
				result := sampleResult()
				tt.mutate(result)
				return result, nil
			}

			id := f.submit(t)
			status := waitForTerminal(t, f.manager, id)

			assert.Equal(t, StateFailed, status.State)
			require.NotNil(t, status.Error)
			assert.Equal(t, KindContractViolation, status.Error.Kind)

			_, err := f.manager.GetResult(id)
			var noResult *ErrNoResult
			assert.ErrorAs(t, err, &noResult)
		})
	}
}

func TestHangingExtractorFallsBackToHeuristic(t *testing.T) {
	f := newFixture(t)
	extractor := &hangingExtractor{}
	f.manager.extractor = extractor
	f.manager.cfg.ExtractTimeout = 20 * time.Millisecond

	id := f.submit(t)
	status := waitForTerminal(t, f.manager, id)

	// The stuck extraction is cut off by its budget and the heuristic
	// requirements carry the session to completion.
	assert.Equal(t, StateSucceeded, status.State)
	assert.EqualValues(t, 1, atomic.LoadInt32(&extractor.calls))

	req, err := f.manager.GetRequirements(id)
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, "Senior Backend Engineer", req.RoleTitle)
	assert.NotEmpty(t, req.Requirements)
}

func TestExtractorResultIsUsed(t *testing.T) {
	f := newFixture(t)
	f.manager.extractor = &fixedExtractor{req: &types.JobRequirements{
		RoleTitle:    "Staff Engineer",
		Company:      "Initech",
		Requirements: []string{"Go", "Kubernetes"},
	}}

	id := f.submit(t)
	status := waitForTerminal(t, f.manager, id)
	require.Equal(t, StateSucceeded, status.State)

	req, err := f.manager.GetRequirements(id)
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, "Staff Engineer", req.RoleTitle)
	assert.Equal(t, "Initech", req.Company)
}

func TestEventsCarryAttemptAndError(t *testing.T) {
	f := newFixture(t)

	started := make(chan struct{})
	f.fetcher.fn = func(ctx context.Context, url string) (string, error) {
		<-started
		return testPosting, nil
	}
	f.engine.fn = func(ctx context.Context, req *types.JobRequirements, resume *types.StructuredResume) (*types.TailoringResult, error) {
		return nil, &engine.Error{Kind: engine.KindUnavailable, Message: "model down"}
	}

	id := f.submit(t)
	events, cancel, err := f.manager.Subscribe(id)
	require.NoError(t, err)
	defer cancel()
	close(started)

	var last Event
	for ev := range events {
		assert.Equal(t, 1, ev.AttemptCount)
		last = ev
		if ev.State.Terminal() {
			break
		}
	}
	assert.Equal(t, StateFailed, last.State)
	require.NotNil(t, last.Error)
	assert.Equal(t, KindUnavailable, last.Error.Kind)
}

func TestCancelSuppressesLateResult(t *testing.T) {
	f := newFixture(t)

	engineEntered := make(chan struct{})
	release := make(chan struct{})
	f.engine.fn = func(ctx context.Context, req *types.JobRequirements, resume *types.StructuredResume) (*types.TailoringResult, error) {
		close(engineEntered)
		<-release
		// A valid result arriving after cancellation must be discarded.
		return sampleResult(), nil
	}

	id := f.submit(t)
	<-engineEntered

	require.NoError(t, f.manager.Cancel(id))

	status, err := f.manager.GetStatus(id)
	require.NoError(t, err)
	assert.Equal(t, StateCancelled, status.State)
	assert.Equal(t, 100, status.ProgressPercent)

	close(release)

	// The state must never leave Cancelled, and no history is written.
	time.Sleep(50 * time.Millisecond)
	status, err = f.manager.GetStatus(id)
	require.NoError(t, err)
	assert.Equal(t, StateCancelled, status.State)

	_, err = f.manager.GetResult(id)
	assert.Error(t, err)

	entries, err := f.store.List(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCancelTerminalIsNoOp(t *testing.T) {
	f := newFixture(t)
	id := f.submit(t)
	waitForTerminal(t, f.manager, id)

	require.NoError(t, f.manager.Cancel(id))

	status, err := f.manager.GetStatus(id)
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, status.State)

	_, err = f.manager.GetResult(id)
	assert.NoError(t, err)
}

func TestRetryAfterFailure(t *testing.T) {
	f := newFixture(t)

	f.engine.fn = func(ctx context.Context, req *types.JobRequirements, resume *types.StructuredResume) (*types.TailoringResult, error) {
		if atomic.LoadInt32(&f.engine.calls) == 1 {
			return nil, &engine.Error{Kind: engine.KindUnavailable, Message: "model call failed"}
		}
		return sampleResult(), nil
	}

	id := f.submit(t)
	status := waitForTerminal(t, f.manager, id)
	require.Equal(t, StateFailed, status.State)
	require.NotNil(t, status.Error)
	assert.Equal(t, KindUnavailable, status.Error.Kind)

	require.NoError(t, f.manager.Retry(id))

	status = waitForTerminal(t, f.manager, id)
	assert.Equal(t, StateSucceeded, status.State)
	assert.Equal(t, 2, status.AttemptCount)
	assert.Nil(t, status.Error)

	result, err := f.manager.GetResult(id)
	require.NoError(t, err)
	assert.Equal(t, 94, result.OptimizedScore)
}

func TestRetryOnlyFromFailed(t *testing.T) {
	f := newFixture(t)
	id := f.submit(t)
	waitForTerminal(t, f.manager, id)

	err := f.manager.Retry(id)
	var invalidState *ErrInvalidState
	require.ErrorAs(t, err, &invalidState)
	assert.Equal(t, StateSucceeded, invalidState.State)
}

func TestRetryUnknownSession(t *testing.T) {
	f := newFixture(t)

	err := f.manager.Retry(uuid.New())
	var notFound *ErrSessionNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestGetResultBeforeTerminal(t *testing.T) {
	f := newFixture(t)

	engineEntered := make(chan struct{})
	release := make(chan struct{})
	f.engine.fn = func(ctx context.Context, req *types.JobRequirements, resume *types.StructuredResume) (*types.TailoringResult, error) {
		close(engineEntered)
		<-release
		return sampleResult(), nil
	}

	id := f.submit(t)
	<-engineEntered

	_, err := f.manager.GetResult(id)
	var noResult *ErrNoResult
	assert.ErrorAs(t, err, &noResult)

	close(release)
	waitForTerminal(t, f.manager, id)
}

func TestSessionsAreIndependent(t *testing.T) {
	f := newFixture(t)

	engineEntered := make(chan struct{}, 2)
	release := make(chan struct{})
	f.engine.fn = func(ctx context.Context, req *types.JobRequirements, resume *types.StructuredResume) (*types.TailoringResult, error) {
		engineEntered <- struct{}{}
		select {
		case <-release:
			return sampleResult(), nil
		case <-ctx.Done():
			return nil, &engine.Error{Kind: engine.KindUnavailable, Message: "aborted", Cause: ctx.Err()}
		}
	}

	first := f.submit(t)
	second := f.submit(t)
	<-engineEntered
	<-engineEntered

	require.NoError(t, f.manager.Cancel(first))
	close(release)

	status := waitForTerminal(t, f.manager, second)
	assert.Equal(t, StateSucceeded, status.State)

	firstStatus, err := f.manager.GetStatus(first)
	require.NoError(t, err)
	assert.Equal(t, StateCancelled, firstStatus.State)
}
