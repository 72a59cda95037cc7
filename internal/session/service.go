// Package session implements the remediation conversation lifecycle: one
// sandbox, one planner dialogue, and a propose/approve/apply/verify loop
// per session.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mukhil0212/Sentinel-RAG/internal/logging"
	"github.com/mukhil0212/Sentinel-RAG/internal/patch"
	"github.com/mukhil0212/Sentinel-RAG/internal/planner"
	"github.com/mukhil0212/Sentinel-RAG/internal/sandbox"
	"github.com/mukhil0212/Sentinel-RAG/internal/scan"
	"github.com/mukhil0212/Sentinel-RAG/internal/store"
	"github.com/mukhil0212/Sentinel-RAG/internal/stream"
)

const instrumentationName = "github.com/mukhil0212/Sentinel-RAG/internal/session"

// eventBuffer sizes the per-turn event channel. A slow consumer backs up
// the planner rather than dropping events.
const eventBuffer = 64

// Service manages remediation sessions.
type Service interface {
	// Create allocates a session with a fresh sandbox.
	Create(ctx context.Context) (*Session, error)

	// CreateFrom allocates a session seeded with a copy of seedDir.
	CreateFrom(ctx context.Context, seedDir string) (*Session, error)

	// Get retrieves a session by ID.
	Get(id string) (*Session, error)

	// Destroy removes a session and its sandbox.
	Destroy(ctx context.Context, id string) error

	// SendMessage runs one planner turn. Events arrive on the returned
	// channel in order and end with exactly one done event, after which
	// the channel closes.
	SendMessage(ctx context.Context, id, text string) (<-chan stream.Event, error)

	// Approve resolves the pending proposal: approved applies and
	// verifies, rejected discards and re-prompts the planner.
	Approve(ctx context.Context, id string, approved bool, reason string) (*Decision, error)

	// Close destroys all sessions.
	Close() error
}

// service implements the Service interface.
type service struct {
	sandboxes *sandbox.Manager
	pipeline  *scan.Pipeline
	planner   planner.Planner
	store     store.Store
	logger    *logging.Logger

	tracer          trace.Tracer
	meter           metric.Meter
	turnCounter     metric.Int64Counter
	approvalCounter metric.Int64Counter

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewService creates a session service.
func NewService(sandboxes *sandbox.Manager, pipeline *scan.Pipeline, pl planner.Planner, st store.Store, logger *logging.Logger) (Service, error) {
	if sandboxes == nil {
		return nil, errors.New("sandbox manager is required")
	}
	if pipeline == nil {
		return nil, errors.New("scan pipeline is required")
	}
	if pl == nil {
		return nil, errors.New("planner is required")
	}
	if st == nil {
		st = store.Noop{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	s := &service{
		sandboxes: sandboxes,
		pipeline:  pipeline,
		planner:   pl,
		store:     st,
		logger:    logger,
		tracer:    otel.Tracer(instrumentationName),
		meter:     otel.Meter(instrumentationName),
		sessions:  make(map[string]*Session),
	}

	s.initMetrics()

	return s, nil
}

// initMetrics initializes OpenTelemetry metrics.
func (s *service) initMetrics() {
	ctx := context.Background()
	var err error

	s.turnCounter, err = s.meter.Int64Counter(
		"sentinel.session.turns_total",
		metric.WithDescription("Total number of planner turns"),
		metric.WithUnit("{turn}"),
	)
	if err != nil {
		s.logger.Warn(ctx, "failed to create turn counter", zap.Error(err))
	}

	s.approvalCounter, err = s.meter.Int64Counter(
		"sentinel.session.approvals_total",
		metric.WithDescription("Total number of approval decisions"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		s.logger.Warn(ctx, "failed to create approval counter", zap.Error(err))
	}
}

// gateApprover denies every operation. Planner-initiated applies during a
// turn hit this gate; Engine.Authorize lifts it per fingerprint once the
// user approves.
type gateApprover struct{}

func (gateApprover) Approve(context.Context, *patch.Operation) (bool, string, error) {
	return false, "patch operations require user approval", nil
}

func (s *service) Create(ctx context.Context) (*Session, error) {
	return s.create(ctx, "")
}

func (s *service) CreateFrom(ctx context.Context, seedDir string) (*Session, error) {
	if seedDir == "" {
		return nil, errors.New("seed directory is required")
	}
	return s.create(ctx, seedDir)
}

func (s *service) create(ctx context.Context, seedDir string) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "session.create")
	defer span.End()

	var sb *sandbox.Sandbox
	var err error
	if seedDir == "" {
		sb, err = s.sandboxes.Create(ctx)
	} else {
		sb, err = s.sandboxes.CreateFrom(ctx, seedDir)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to allocate sandbox: %w", err)
	}

	engine, err := patch.NewEngine(sb, gateApprover{}, s.logger.Underlying())
	if err != nil {
		s.sandboxes.Destroy(sb)
		return nil, err
	}

	sess := &Session{
		ID:      uuid.NewString(),
		Sandbox: sb,
		State:   StateIdle,
		engine:  engine,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	if err := s.store.CreateSession(sess.ID, sb.ID); err != nil {
		s.logger.Warn(ctx, "failed to persist session",
			zap.String("session_id", sess.ID), zap.Error(err))
	}

	span.SetAttributes(attribute.String("session_id", sess.ID))
	s.logger.Info(ctx, "session created",
		zap.String("session_id", sess.ID), zap.String("sandbox_id", sb.ID))
	return sess, nil
}

func (s *service) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return sess, nil
}

func (s *service) Destroy(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	s.sandboxes.Destroy(sess.Sandbox)
	s.logger.Info(ctx, "session destroyed", zap.String("session_id", id))
	return nil
}

func (s *service) SendMessage(ctx context.Context, id, text string) (<-chan stream.Event, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	ctx = logging.WithSessionID(ctx, id)
	events := make(chan stream.Event, eventBuffer)

	// The session mutex is held for the whole turn: one outstanding turn
	// per session, released when the turn goroutine finishes.
	sess.mu.Lock()

	go func() {
		defer close(events)
		defer sess.mu.Unlock()

		ctx, span := s.tracer.Start(ctx, "session.turn",
			trace.WithAttributes(attribute.String("session_id", id)))
		defer span.End()

		if err := s.store.AddMessage(id, "user", text); err != nil {
			s.logger.Warn(ctx, "failed to persist message", zap.Error(err))
		}

		res, err := s.runTurn(ctx, sess, text, func(raw any) {
			if ev, ok := stream.Normalize(raw); ok && !ev.Terminal() {
				events <- ev
			}
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.logger.Error(ctx, "planner turn failed", zap.Error(err))
			events <- stream.Done("The planner failed to complete this turn: "+err.Error(), sess.ContinuationToken, "")
			return
		}

		events <- stream.Done(res.FinalText, sess.ContinuationToken, sess.PendingDiff)

		if err := s.store.AddMessage(id, "assistant", res.FinalText); err != nil {
			s.logger.Warn(ctx, "failed to persist message", zap.Error(err))
		}
	}()

	return events, nil
}

// runTurn executes one planner turn and updates the session's continuation
// token, pending diff, and state. Callers hold sess.mu.
func (s *service) runTurn(ctx context.Context, sess *Session, text string, emit func(raw any)) (*planner.TurnResult, error) {
	res, err := s.planner.Turn(ctx, &planner.TurnRequest{
		SandboxRoot:       sess.Sandbox.Root,
		ContinuationToken: sess.ContinuationToken,
		Message:           text,
		Tools:             s.toolsFor(sess),
		Emit:              emit,
	})

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	if s.turnCounter != nil {
		s.turnCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
	if err != nil {
		return nil, err
	}

	sess.ContinuationToken = res.ContinuationToken

	if diff, ok := ExtractDiff(res.FinalText); ok {
		sess.PendingDiff = diff
		sess.State = StateProposed
		s.logger.Info(ctx, "patch proposed", zap.Int("diff_bytes", len(diff)))
	} else {
		sess.PendingDiff = ""
		sess.State = StateIdle
	}

	if err := s.store.UpdateSessionState(sess.ID, string(sess.State)); err != nil {
		s.logger.Warn(ctx, "failed to persist session state", zap.Error(err))
	}

	return res, nil
}

func (s *service) Approve(ctx context.Context, id string, approved bool, reason string) (*Decision, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	ctx = logging.WithSessionID(ctx, id)
	ctx, span := s.tracer.Start(ctx, "session.approve",
		trace.WithAttributes(
			attribute.String("session_id", id),
			attribute.Bool("approved", approved)))
	defer span.End()

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.PendingDiff == "" {
		return nil, fmt.Errorf("%w: session %s", ErrNoPendingPatch, id)
	}

	if s.approvalCounter != nil {
		s.approvalCounter.Add(ctx, 1, metric.WithAttributes(attribute.Bool("approved", approved)))
	}

	if !approved {
		return s.reject(ctx, sess, reason)
	}
	return s.applyAndVerify(ctx, sess, span)
}

// applyAndVerify applies the pending proposal and rescans to check whether
// the previously flagged findings are gone. Callers hold sess.mu.
func (s *service) applyAndVerify(ctx context.Context, sess *Session, span trace.Span) (*Decision, error) {
	ops, err := patch.Split(sess.PendingDiff)
	if err != nil {
		return nil, err
	}

	sess.State = StateApplying
	for _, op := range ops {
		sess.engine.Authorize(op.Fingerprint())
	}

	results, err := sess.engine.ApplyAll(ctx, ops)
	if err != nil {
		// The proposal stays pending so the caller can see what failed
		// and either retry after regeneration or reject it.
		sess.State = StateProposed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	sess.State = StateVerifying
	decision := &Decision{Approved: true, Applied: results}

	report, err := s.pipeline.Run(ctx, sess.Sandbox.Root, scan.Options{})
	if err != nil {
		s.logger.Warn(ctx, "verification rescan failed", zap.Error(err))
	} else {
		decision.Verified = true
		for _, fid := range sess.flagged {
			if report.Contains(fid) {
				decision.RemainingIDs = append(decision.RemainingIDs, fid)
			} else {
				decision.ResolvedIDs = append(decision.ResolvedIDs, fid)
			}
		}
		sess.flagged = report.IDs()
	}

	sess.PendingDiff = ""
	sess.State = StateIdle
	if err := s.store.UpdateSessionState(sess.ID, string(sess.State)); err != nil {
		s.logger.Warn(ctx, "failed to persist session state", zap.Error(err))
	}

	s.logger.Info(ctx, "proposal applied",
		zap.Int("operations", len(results)),
		zap.Int("resolved", len(decision.ResolvedIDs)),
		zap.Int("remaining", len(decision.RemainingIDs)))
	return decision, nil
}

// reject discards the pending proposal and re-prompts the planner with the
// rejection reason. Callers hold sess.mu.
func (s *service) reject(ctx context.Context, sess *Session, reason string) (*Decision, error) {
	sess.PendingDiff = ""
	sess.State = StateRejected

	prompt := "The proposed patch was rejected."
	if reason != "" {
		prompt += " Reason: " + reason
	}
	prompt += " Please revise the proposal."

	if err := s.store.AddMessage(sess.ID, "user", prompt); err != nil {
		s.logger.Warn(ctx, "failed to persist message", zap.Error(err))
	}

	res, err := s.runTurn(ctx, sess, prompt, nil)
	if err != nil {
		sess.State = StateIdle
		return nil, fmt.Errorf("re-prompt after rejection: %w", err)
	}

	if err := s.store.AddMessage(sess.ID, "assistant", res.FinalText); err != nil {
		s.logger.Warn(ctx, "failed to persist message", zap.Error(err))
	}

	s.logger.Info(ctx, "proposal rejected", zap.String("reason", reason))
	return &Decision{
		Approved:     false,
		FinalText:    res.FinalText,
		ProposedDiff: sess.PendingDiff,
	}, nil
}

func (s *service) Close() error {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		s.sandboxes.Destroy(sess.Sandbox)
	}
	return nil
}
