package session

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hirekit/tailor/internal/documents"
	"github.com/hirekit/tailor/internal/engine"
	"github.com/hirekit/tailor/internal/fetch"
	"github.com/hirekit/tailor/internal/history"
	"github.com/hirekit/tailor/internal/ingestion"
	"github.com/hirekit/tailor/internal/types"
)

// PostingFetcher retrieves a job posting's text. A single attempt; the
// manager drives the retry budget.
type PostingFetcher interface {
	FetchPosting(ctx context.Context, url string) (string, error)
}

// ResumeParser resolves a document ref into structured resume content.
type ResumeParser interface {
	ParseResume(ctx context.Context, ref uuid.UUID) (*types.StructuredResume, error)
}

// Config carries the per-phase budgets.
type Config struct {
	FetchRetry      fetch.RetryConfig
	ExtractTimeout  time.Duration
	ParseTimeout    time.Duration
	OptimizeTimeout time.Duration
}

// DefaultConfig returns the production budgets: fetch retried up to 3
// attempts, requirement extraction bounded at 10s, parse at 15s, optimize
// at 60s and never auto-retried.
func DefaultConfig() Config {
	return Config{
		FetchRetry:      fetch.DefaultRetryConfig,
		ExtractTimeout:  10 * time.Second,
		ParseTimeout:    15 * time.Second,
		OptimizeTimeout: 60 * time.Second,
	}
}

// Status is the poll-safe snapshot returned by GetStatus.
type Status struct {
	SessionID       uuid.UUID `json:"session_id"`
	State           State     `json:"state"`
	ProgressPercent int       `json:"progress_percent"`
	StatusMessage   string    `json:"status_message"`
	AttemptCount    int       `json:"attempt_count"`
	Error           *Error    `json:"error,omitempty"`
}

// session is one tailoring attempt's mutable record. All mutation happens
// under mu; the attempt goroutine is the only writer of pipeline transitions,
// and Cancel/Retry serialize against it through the same lock.
type session struct {
	mu           sync.Mutex
	submission   types.Submission
	state        State
	progress     int
	message      string
	attempts     int
	requirements *types.JobRequirements
	result       *types.TailoringResult
	err          *Error
	cancel       context.CancelFunc
	historyDone  bool
}

// Manager owns all tailoring sessions. Sessions are independent per
// sessionId; there is no cross-session exclusivity per user.
type Manager struct {
	fetcher   PostingFetcher
	parser    ResumeParser
	engine    engine.Engine
	extractor ingestion.Extractor
	docs      documents.Store
	store     history.Store
	log       *zap.Logger
	cfg       Config

	mu       sync.RWMutex
	sessions map[uuid.UUID]*session
	bus      *eventBus
}

// Options wires the manager's collaborators. Extractor is optional.
type Options struct {
	Fetcher   PostingFetcher
	Parser    ResumeParser
	Engine    engine.Engine
	Extractor ingestion.Extractor
	Documents documents.Store
	History   history.Store
	Logger    *zap.Logger
	Config    Config
}

// NewManager constructs a Manager.
func NewManager(opts Options) *Manager {
	cfg := opts.Config
	if cfg.ExtractTimeout <= 0 {
		cfg.ExtractTimeout = DefaultConfig().ExtractTimeout
	}
	if cfg.ParseTimeout <= 0 {
		cfg.ParseTimeout = DefaultConfig().ParseTimeout
	}
	if cfg.OptimizeTimeout <= 0 {
		cfg.OptimizeTimeout = DefaultConfig().OptimizeTimeout
	}
	if cfg.FetchRetry.MaxAttempts <= 0 {
		cfg.FetchRetry = DefaultConfig().FetchRetry
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		fetcher:   opts.Fetcher,
		parser:    opts.Parser,
		engine:    opts.Engine,
		extractor: opts.Extractor,
		docs:      opts.Documents,
		store:     opts.History,
		log:       logger,
		cfg:       cfg,
		sessions:  make(map[uuid.UUID]*session),
		bus:       newEventBus(),
	}
}

// Submit validates the inputs and starts a new tailoring session. On
// validation failure no session is created.
func (m *Manager) Submit(ctx context.Context, userID, jobURL string, documentRef uuid.UUID) (uuid.UUID, error) {
	if err := validateJobURL(jobURL); err != nil {
		return uuid.Nil, err
	}
	if documentRef == uuid.Nil {
		return uuid.Nil, newError(KindValidation, "resume document is required", false, nil)
	}
	doc, err := m.docs.Get(ctx, documentRef)
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			return uuid.Nil, newError(KindValidation, "resume document not found", false, err)
		}
		return uuid.Nil, newError(KindValidation, "resume document could not be read", false, err)
	}
	if err := documents.ValidateMediaType(doc.MediaType); err != nil {
		return uuid.Nil, newError(KindValidation, err.Error(), false, err)
	}

	s := &session{
		submission: types.Submission{
			SessionID:   uuid.New(),
			UserID:      userID,
			JobURL:      jobURL,
			DocumentRef: documentRef,
			SubmittedAt: time.Now().UTC(),
		},
		state:    StateValidating,
		progress: progressFor(StateValidating),
		message:  statusMessageFor(StateValidating),
		attempts: 1,
	}

	m.mu.Lock()
	m.sessions[s.submission.SessionID] = s
	m.mu.Unlock()

	s.mu.Lock()
	ev := s.eventLocked()
	s.mu.Unlock()
	m.bus.publish(ev)
	m.startAttempt(s)

	m.log.Info("session submitted",
		zap.String("session_id", s.submission.SessionID.String()),
		zap.String("job_url", jobURL))
	return s.submission.SessionID, nil
}

// GetStatus returns the session's current snapshot. Safe to poll.
func (m *Manager) GetStatus(id uuid.UUID) (Status, error) {
	s, err := m.get(id)
	if err != nil {
		return Status{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		SessionID:       id,
		State:           s.state,
		ProgressPercent: s.progress,
		StatusMessage:   s.message,
		AttemptCount:    s.attempts,
		Error:           s.err,
	}, nil
}

// GetResult returns the tailoring result of a succeeded session.
func (m *Manager) GetResult(id uuid.UUID) (*types.TailoringResult, error) {
	s, err := m.get(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateSucceeded {
		return nil, &ErrNoResult{State: s.state}
	}
	return s.result, nil
}

// GetRequirements returns the normalized job requirements once the posting
// has been ingested; nil before that point.
func (m *Manager) GetRequirements(id uuid.UUID) (*types.JobRequirements, error) {
	s, err := m.get(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requirements, nil
}

// Cancel moves the session to Cancelled immediately and requests abort of any
// in-flight call. A result arriving after cancellation is discarded. No-op on
// terminal sessions.
func (m *Manager) Cancel(id uuid.UUID) error {
	s, err := m.get(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return nil
	}
	s.state = StateCancelled
	s.progress = progressFor(StateCancelled)
	s.message = statusMessageFor(StateCancelled)
	s.result = nil
	s.err = nil
	cancel := s.cancel
	ev := s.eventLocked()
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.bus.publish(ev)
	m.log.Info("session cancelled", zap.String("session_id", id.String()))
	return nil
}

// Retry re-runs a failed session with the original submission. Permitted only
// from Failed.
func (m *Manager) Retry(id uuid.UUID) error {
	s, err := m.get(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.state != StateFailed {
		state := s.state
		s.mu.Unlock()
		return &ErrInvalidState{State: state}
	}
	s.attempts++
	s.err = nil
	s.result = nil
	s.historyDone = false
	s.state = StateValidating
	s.progress = progressFor(StateValidating)
	s.message = statusMessageFor(StateValidating)
	attempt := s.attempts
	ev := s.eventLocked()
	s.mu.Unlock()

	m.bus.publish(ev)
	m.startAttempt(s)

	m.log.Info("session retried",
		zap.String("session_id", id.String()),
		zap.Int("attempt", attempt))
	return nil
}

// Subscribe streams transition events for a session. The cancel function
// must be called when the consumer disconnects.
func (m *Manager) Subscribe(id uuid.UUID) (<-chan Event, func(), error) {
	if _, err := m.get(id); err != nil {
		return nil, nil, err
	}
	ch, cancel := m.bus.subscribe(id)
	return ch, cancel, nil
}

// ListHistory returns the user's completed sessions, most recent first.
func (m *Manager) ListHistory(ctx context.Context, userID string) ([]types.HistoryEntry, error) {
	return m.store.List(ctx, userID)
}

// GetHistoryEntry returns one completed session's history projection.
func (m *Manager) GetHistoryEntry(ctx context.Context, id uuid.UUID) (types.HistoryEntry, error) {
	return m.store.Get(ctx, id)
}

func (m *Manager) get(id uuid.UUID) (*session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, &ErrSessionNotFound{ID: id.String()}
	}
	return s, nil
}

// startAttempt launches the single attempt goroutine for the session.
func (m *Manager) startAttempt(s *session) {
	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	go m.runAttempt(ctx, s)
}

// runAttempt drives one attempt through the pipeline. Every transition is
// re-checked against cancellation; a cancelled session absorbs no further
// transitions, results, or history writes.
func (m *Manager) runAttempt(ctx context.Context, s *session) {
	id := s.submission.SessionID

	// Fetching
	if !m.transition(s, StateFetching) {
		return
	}
	postingText, err := fetch.Retry(ctx, m.cfg.FetchRetry, func() (string, error) {
		return m.fetcher.FetchPosting(ctx, s.submission.JobURL)
	})
	if err != nil {
		m.fail(s, classifyFetchError(err))
		return
	}
	// Extraction shares the fetching phase but carries its own budget; on
	// deadline the heuristic fallback inside NormalizePosting takes over.
	extractCtx, cancelExtract := context.WithTimeout(ctx, m.cfg.ExtractTimeout)
	requirements := ingestion.NormalizePosting(extractCtx, postingText, m.extractor)
	cancelExtract()
	s.mu.Lock()
	s.requirements = requirements
	s.mu.Unlock()

	// Parsing
	if !m.transition(s, StateParsing) {
		return
	}
	parseCtx, cancelParse := context.WithTimeout(ctx, m.cfg.ParseTimeout)
	resume, err := m.parser.ParseResume(parseCtx, s.submission.DocumentRef)
	cancelParse()
	if err != nil {
		m.fail(s, classifyParseError(err))
		return
	}

	// Optimizing: a single call, never auto-retried.
	if !m.transition(s, StateOptimizing) {
		return
	}
	optCtx, cancelOpt := context.WithTimeout(ctx, m.cfg.OptimizeTimeout)
	result, err := m.engine.Optimize(optCtx, requirements, resume)
	cancelOpt()
	if err != nil {
		m.fail(s, classifyEngineError(err))
		return
	}

	// Scoring: range-check before accepting the result.
	if !m.transition(s, StateScoring) {
		return
	}
	if err := result.Validate(); err != nil {
		m.fail(s, newError(KindContractViolation, "engine returned an invalid result: "+err.Error(), false, err))
		return
	}

	if !m.succeed(s, result) {
		return
	}
	m.writeHistory(s, requirements, result)
	m.log.Info("session succeeded",
		zap.String("session_id", id.String()),
		zap.Int("original_score", result.OriginalScore),
		zap.Int("optimized_score", result.OptimizedScore))
}

// transition advances the session unless it was cancelled (or otherwise
// finished) in the meantime. Returns false when the attempt must stop.
func (m *Manager) transition(s *session, next State) bool {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return false
	}
	s.state = next
	s.progress = progressFor(next)
	s.message = statusMessageFor(next)
	ev := s.eventLocked()
	s.mu.Unlock()

	m.bus.publish(ev)
	return true
}

// fail records the error and moves to Failed. Suppressed after cancellation.
func (m *Manager) fail(s *session, serr *Error) {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	s.state = StateFailed
	s.progress = progressFor(StateFailed)
	s.message = statusMessageFor(StateFailed)
	s.err = serr
	s.result = nil
	ev := s.eventLocked()
	s.mu.Unlock()

	m.bus.publish(ev)
	m.log.Warn("session failed",
		zap.String("session_id", s.submission.SessionID.String()),
		zap.String("kind", string(serr.Kind)),
		zap.Error(serr))
}

// succeed applies the result. Returns false when a cancellation won the race;
// the late result is discarded.
func (m *Manager) succeed(s *session, result *types.TailoringResult) bool {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return false
	}
	s.state = StateSucceeded
	s.progress = progressFor(StateSucceeded)
	s.message = statusMessageFor(StateSucceeded)
	s.result = result
	s.err = nil
	ev := s.eventLocked()
	s.mu.Unlock()

	m.bus.publish(ev)
	return true
}

// writeHistory appends the history projection exactly once per session. A
// store failure is a logged warning: the result itself is still valid.
func (m *Manager) writeHistory(s *session, req *types.JobRequirements, result *types.TailoringResult) {
	s.mu.Lock()
	if s.state != StateSucceeded || s.historyDone {
		s.mu.Unlock()
		return
	}
	s.historyDone = true
	entry := types.HistoryEntry{
		ID:          s.submission.SessionID,
		UserID:      s.submission.UserID,
		JobTitle:    req.RoleTitle,
		Company:     req.Company,
		CompletedAt: time.Now().UTC(),
		ATSScore:    result.OptimizedScore,
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.store.Append(ctx, entry); err != nil {
		m.log.Warn("history write failed",
			zap.String("session_id", entry.ID.String()),
			zap.Error(newError(KindStore, "failed to persist history entry", false, err)))
	}
}

func (s *session) eventLocked() Event {
	return Event{
		SessionID:       s.submission.SessionID,
		State:           s.state,
		ProgressPercent: s.progress,
		StatusMessage:   s.message,
		AttemptCount:    s.attempts,
		Error:           s.err,
	}
}

// validateJobURL enforces the submission URL shape: http or https with a
// non-empty host.
func validateJobURL(jobURL string) error {
	parsed, err := url.Parse(jobURL)
	if err != nil {
		return newError(KindValidation, "job URL is not a valid URL", false, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return newError(KindValidation, "job URL must use http or https", false, nil)
	}
	if parsed.Host == "" {
		return newError(KindValidation, "job URL must include a host", false, nil)
	}
	return nil
}

// classifyFetchError distinguishes a timed-out fetch from other failures.
func classifyFetchError(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(KindTimeout, "fetching the job posting took too long", true, err)
	}
	if errors.Is(err, context.Canceled) {
		return newError(KindFetch, "job posting fetch aborted", true, err)
	}
	return newError(KindFetch, "could not retrieve the job posting", true, err)
}

// classifyParseError treats malformed documents as fatal.
func classifyParseError(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(KindTimeout, "reading the resume took too long", true, err)
	}
	return newError(KindParse, "resume document could not be parsed", false, err)
}

// classifyEngineError maps the engine taxonomy onto session error kinds.
func classifyEngineError(err error) *Error {
	var engErr *engine.Error
	if errors.As(err, &engErr) {
		switch engErr.Kind {
		case engine.KindTimeout:
			return newError(KindTimeout, "optimization took too long", true, err)
		case engine.KindInvalidInput:
			return newError(KindInvalidInput, "the engine rejected the submission", false, err)
		default:
			return newError(KindUnavailable, "the optimization engine is unavailable", true, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(KindTimeout, "optimization took too long", true, err)
	}
	return newError(KindUnavailable, "the optimization engine is unavailable", true, err)
}
