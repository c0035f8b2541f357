// Package workflow drives a membership request through PENDING, UNDER_REVIEW and a terminal
// APPROVED or REJECTED status. Every mutating operation passes the authorization gate, runs
// under the request's lock, consults the transition table once, and appends history in the
// same transaction. Notifications, audit events and telemetry follow the commit and never
// undo it.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"community-cms/backend/internal/audit"
	memberdomain "community-cms/backend/internal/member/domain"
	"community-cms/backend/internal/membershiprequest/domain"
	"community-cms/backend/internal/membershiprequest/repository"
	"community-cms/backend/internal/notification"
	"community-cms/backend/internal/permission"
	"community-cms/backend/internal/platform/rbac"
	settingsdomain "community-cms/backend/internal/settings/domain"
	"community-cms/backend/internal/telemetry"
	userdomain "community-cms/backend/internal/user/domain"
)

// Authorizer is the authorization gate.
type Authorizer interface {
	Authorize(ctx context.Context, userID string, req rbac.Requirement) rbac.Decision
}

// Roster lists the users currently eligible to vote on MULTI_BOARD requests.
type Roster interface {
	ListBoardEligibleIDs(ctx context.Context) ([]string, error)
}

// ThresholdSource reads the approval threshold at decision time.
type ThresholdSource interface {
	ApprovalThreshold(ctx context.Context) (settingsdomain.ApprovalThreshold, error)
}

// Metrics records workflow counters.
type Metrics interface {
	RecordTransition(ctx context.Context, approvalSystem, from, to string)
	RecordVote(ctx context.Context, decision string, changed bool)
}

// Config holds policy knobs of the engine.
type Config struct {
	// AllowVoteChanges lets a board member replace their vote while the request is undecided.
	AllowVoteChanges bool
	// MemberNumberPrefix is prepended to generated member numbers.
	MemberNumberPrefix string
	// DefaultApprovalSystem applies to submissions that do not name one.
	DefaultApprovalSystem domain.ApprovalSystem
}

// Deps are the engine's collaborators. Store, Gate, Roster and Thresholds are required.
type Deps struct {
	Store      repository.Store
	Gate       Authorizer
	Roster     Roster
	Thresholds ThresholdSource
	Notifier   notification.Dispatcher
	Audit      audit.AuditLogger
	Events     telemetry.EventEmitter
	Metrics    Metrics
	Logger     *slog.Logger
	Now        func() time.Time
	NewID      func() string
}

// Engine is the membership request state machine.
type Engine struct {
	store      repository.Store
	gate       Authorizer
	roster     Roster
	thresholds ThresholdSource
	notifier   notification.Dispatcher
	audit      audit.AuditLogger
	events     telemetry.EventEmitter
	metrics    Metrics
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
	cfg        Config
}

// NewEngine returns an Engine. Optional collaborators default to no-ops.
func NewEngine(deps Deps, cfg Config) *Engine {
	e := &Engine{
		store:      deps.Store,
		gate:       deps.Gate,
		roster:     deps.Roster,
		thresholds: deps.Thresholds,
		notifier:   deps.Notifier,
		audit:      deps.Audit,
		events:     deps.Events,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		now:        deps.Now,
		newID:      deps.NewID,
		cfg:        cfg,
	}
	if e.notifier == nil {
		e.notifier = notification.Noop{}
	}
	if e.audit == nil {
		e.audit = audit.Nop{}
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newID == nil {
		e.newID = func() string { return uuid.New().String() }
	}
	if e.cfg.DefaultApprovalSystem == "" {
		e.cfg.DefaultApprovalSystem = domain.ApprovalSingle
	}
	return e
}

// Submit records a public application as a PENDING request and notifies the applicant and
// the reviewers. No identity is required.
func (e *Engine) Submit(ctx context.Context, app domain.Application) (*domain.MembershipRequest, error) {
	app.Normalize()
	if app.ApprovalSystem == "" {
		app.ApprovalSystem = e.cfg.DefaultApprovalSystem
	}
	if err := app.Validate(); err != nil {
		return nil, err
	}
	if err := domain.CheckTransition("", domain.StatusPending); err != nil {
		return nil, err
	}
	now := e.now().UTC()
	req := &domain.MembershipRequest{
		ID:             e.newID(),
		FirstName:      app.FirstName,
		LastName:       app.LastName,
		Email:          app.Email,
		Phone:          app.Phone,
		Street:         app.Street,
		PostalCode:     app.PostalCode,
		City:           app.City,
		RequestedType:  app.RequestedType,
		Motivation:     app.Motivation,
		Status:         domain.StatusPending,
		ApprovalSystem: app.ApprovalSystem.Normalize(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	entry := &domain.StatusHistoryEntry{
		ID:        e.newID(),
		RequestID: req.ID,
		Action:    domain.ActionSubmitted,
		ToStatus:  domain.StatusPending,
		CreatedAt: now,
	}
	if err := e.store.Create(ctx, req, entry); err != nil {
		return nil, fmt.Errorf("%w: create request: %v", domain.ErrDependencyUnavailable, err)
	}

	e.notify(ctx, notification.TemplateRequestReceived, requestData(req))
	e.notify(ctx, notification.TemplateRequestAlert, requestData(req))
	e.audit.LogEvent(ctx, "", string(domain.ActionSubmitted), "membership_request",
		audit.Metadata(map[string]string{"request_id": req.ID, "approval_system": string(req.ApprovalSystem)}))
	e.recordTransition(ctx, req, "", entry)
	return req, nil
}

// BeginReview moves a PENDING request to UNDER_REVIEW. notes, when given, replace the admin notes.
func (e *Engine) BeginReview(ctx context.Context, requestID, actorUserID, notes string) (*domain.MembershipRequest, error) {
	if _, err := e.authorize(ctx, actorUserID, permission.ApproveMembership); err != nil {
		return nil, err
	}
	var (
		out   *domain.MembershipRequest
		entry *domain.StatusHistoryEntry
	)
	err := e.store.WithLockedRequest(ctx, requestID, func(ctx context.Context, tx repository.Tx) error {
		req := tx.Request()
		if err := domain.CheckTransition(req.Status, domain.StatusUnderReview); err != nil {
			return err
		}
		var err error
		entry, err = e.transition(ctx, tx, req, domain.StatusUnderReview, domain.ActionReviewStarted, actorUserID, notes)
		if err != nil {
			return err
		}
		out = req
		return nil
	})
	if err != nil {
		return nil, e.storeErr(err)
	}
	e.recordTransition(ctx, out, actorUserID, entry)
	return out, nil
}

// Decide applies one actor's verdict to an UNDER_REVIEW request under the SINGLE protocol.
func (e *Engine) Decide(ctx context.Context, requestID, actorUserID string, decision domain.Decision, notes string) (*domain.MembershipRequest, error) {
	if !decision.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidDecision, decision)
	}
	if _, err := e.authorize(ctx, actorUserID, permission.ApproveMembership); err != nil {
		return nil, err
	}
	var res *outcome
	err := e.store.WithLockedRequest(ctx, requestID, func(ctx context.Context, tx repository.Tx) error {
		req := tx.Request()
		if err := domain.CheckTransition(req.Status, decision.Target()); err != nil {
			return err
		}
		if req.ApprovalSystem.Normalize() != domain.ApprovalSingle {
			return fmt.Errorf("%w: request %s is decided by board vote", domain.ErrInvalidTransition, req.ID)
		}
		var err error
		res, err = e.finalize(ctx, tx, req, decision.Target(), actorUserID, notes)
		return err
	})
	if err != nil {
		return nil, e.storeErr(err)
	}
	e.afterDecision(ctx, actorUserID, res)
	return res.request, nil
}

// CastVote records a board member's vote on an UNDER_REVIEW MULTI_BOARD request and
// re-evaluates the tally. Crossing the threshold transitions the request in the same
// transaction, so at most one terminal transition happens under concurrent votes.
func (e *Engine) CastVote(ctx context.Context, requestID, actorUserID string, decision domain.Decision, notes string) (*domain.MembershipRequest, error) {
	if !decision.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidDecision, decision)
	}
	principal, err := e.authorize(ctx, actorUserID, permission.ApproveMembership)
	if err != nil {
		return nil, err
	}
	if !principal.IsBoardAuthorized() {
		return nil, fmt.Errorf("%w: only board members vote", rbac.ErrForbidden)
	}
	threshold, roster, err := e.decisionInputs(ctx)
	if err != nil {
		return nil, err
	}

	var (
		res     *outcome
		entry   *domain.StatusHistoryEntry
		changed bool
		out     *domain.MembershipRequest
	)
	err = e.store.WithLockedRequest(ctx, requestID, func(ctx context.Context, tx repository.Tx) error {
		req := tx.Request()
		if req.ApprovalSystem.Normalize() != domain.ApprovalMultiBoard {
			return fmt.Errorf("%w: request %s is not decided by board vote", domain.ErrInvalidTransition, req.ID)
		}
		if req.Status != domain.StatusUnderReview {
			return fmt.Errorf("%w: votes are accepted only under review, request is %s", domain.ErrInvalidTransition, req.Status)
		}
		votes, err := tx.ListVotes(ctx)
		if err != nil {
			return err
		}
		now := e.now().UTC()
		vote := domain.Vote{RequestID: req.ID, VoterUserID: actorUserID, Decision: decision, Notes: notes, CastAt: now, UpdatedAt: now}
		votes, changed = upsertVote(votes, vote)
		if changed && !e.cfg.AllowVoteChanges {
			return fmt.Errorf("%w: vote already cast", domain.ErrInvalidTransition)
		}
		if err := tx.SaveVote(ctx, &vote); err != nil {
			return err
		}
		action := domain.ActionVoteCast
		if changed {
			action = domain.ActionVoteChanged
		}
		entry = &domain.StatusHistoryEntry{
			ID:          e.newID(),
			RequestID:   req.ID,
			Action:      action,
			FromStatus:  req.Status,
			ToStatus:    req.Status,
			ActorUserID: actorUserID,
			Notes:       strings.TrimSpace(string(decision) + " " + notes),
			CreatedAt:   now,
		}
		if err := tx.AppendHistory(ctx, entry); err != nil {
			return err
		}

		tally := domain.Tally(votes, roster, threshold)
		if !tally.Decided() {
			out = req
			return nil
		}
		if err := domain.CheckTransition(req.Status, tally.Outcome); err != nil {
			return err
		}
		res, err = e.finalize(ctx, tx, req, tally.Outcome, actorUserID, "")
		if err != nil {
			return err
		}
		out = res.request
		return nil
	})
	if err != nil {
		return nil, e.storeErr(err)
	}
	if e.metrics != nil {
		e.metrics.RecordVote(ctx, string(decision), changed)
	}
	e.emit(ctx, out, actorUserID, entry)
	if res != nil {
		e.afterDecision(ctx, actorUserID, res)
	}
	return out, nil
}

// GetRequest returns a request to a reader of member data.
func (e *Engine) GetRequest(ctx context.Context, requestID, actorUserID string) (*domain.MembershipRequest, error) {
	if _, err := e.authorize(ctx, actorUserID, permission.ViewMembers); err != nil {
		return nil, err
	}
	return e.load(ctx, requestID)
}

// ListRequests returns requests newest first, optionally filtered by status.
func (e *Engine) ListRequests(ctx context.Context, actorUserID string, status domain.Status, limit, offset int32) ([]*domain.MembershipRequest, error) {
	if _, err := e.authorize(ctx, actorUserID, permission.ViewMembers); err != nil {
		return nil, err
	}
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, status)
	}
	list, err := e.store.List(ctx, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list requests: %v", domain.ErrDependencyUnavailable, err)
	}
	return list, nil
}

// GetHistory returns the request's history in order. Consecutive entries chain: each entry's
// FromStatus is the previous entry's ToStatus.
func (e *Engine) GetHistory(ctx context.Context, requestID, actorUserID string) ([]domain.StatusHistoryEntry, error) {
	if _, err := e.authorize(ctx, actorUserID, permission.ViewMembers); err != nil {
		return nil, err
	}
	if _, err := e.load(ctx, requestID); err != nil {
		return nil, err
	}
	h, err := e.store.ListHistory(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("%w: list history: %v", domain.ErrDependencyUnavailable, err)
	}
	return h, nil
}

// Tally summarizes the current votes of a MULTI_BOARD request against the live roster and threshold.
func (e *Engine) Tally(ctx context.Context, requestID, actorUserID string) (domain.TallyResult, error) {
	if _, err := e.authorize(ctx, actorUserID, permission.ApproveMembership); err != nil {
		return domain.TallyResult{}, err
	}
	req, err := e.load(ctx, requestID)
	if err != nil {
		return domain.TallyResult{}, err
	}
	if req.ApprovalSystem.Normalize() != domain.ApprovalMultiBoard {
		return domain.TallyResult{}, fmt.Errorf("%w: request %s has no board vote", domain.ErrInvalidTransition, req.ID)
	}
	threshold, roster, err := e.decisionInputs(ctx)
	if err != nil {
		return domain.TallyResult{}, err
	}
	votes, err := e.store.ListVotes(ctx, requestID)
	if err != nil {
		return domain.TallyResult{}, fmt.Errorf("%w: list votes: %v", domain.ErrDependencyUnavailable, err)
	}
	return domain.Tally(votes, roster, threshold), nil
}

func (e *Engine) authorize(ctx context.Context, userID string, capability permission.Capability) (*userdomain.Principal, error) {
	d := e.gate.Authorize(ctx, userID, rbac.Requirement{Capability: capability})
	if err := d.Err(); err != nil {
		return nil, err
	}
	return d.Principal, nil
}

func (e *Engine) load(ctx context.Context, requestID string) (*domain.MembershipRequest, error) {
	req, err := e.store.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("%w: load request: %v", domain.ErrDependencyUnavailable, err)
	}
	if req == nil {
		return nil, domain.ErrNotFound
	}
	return req, nil
}

func (e *Engine) decisionInputs(ctx context.Context) (settingsdomain.ApprovalThreshold, []string, error) {
	threshold, err := e.thresholds.ApprovalThreshold(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", domain.ErrDependencyUnavailable, err)
	}
	roster, err := e.roster.ListBoardEligibleIDs(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("%w: board roster: %v", domain.ErrDependencyUnavailable, err)
	}
	return threshold, roster, nil
}

// storeErr keeps workflow errors as they are and reports anything else from the store as an
// unavailable dependency.
func (e *Engine) storeErr(err error) error {
	for _, known := range []error{
		domain.ErrNotFound,
		domain.ErrInvalidTransition,
		domain.ErrConflictingVote,
		domain.ErrDependencyUnavailable,
		context.Canceled,
		context.DeadlineExceeded,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrDependencyUnavailable, err)
}

func upsertVote(votes []domain.Vote, v domain.Vote) ([]domain.Vote, bool) {
	for i := range votes {
		if votes[i].VoterUserID == v.VoterUserID {
			votes[i] = v
			return votes, true
		}
	}
	return append(votes, v), false
}

func requestData(req *domain.MembershipRequest) map[string]string {
	return map[string]string{
		"request_id":     req.ID,
		"first_name":     req.FirstName,
		"last_name":      req.LastName,
		"email":          req.Email,
		"requested_type": string(req.RequestedType),
	}
}

func newMember(id, number string, req *domain.MembershipRequest, now time.Time) *memberdomain.Member {
	return &memberdomain.Member{
		ID:             id,
		MemberNumber:   number,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		Phone:          req.Phone,
		Street:         req.Street,
		PostalCode:     req.PostalCode,
		City:           req.City,
		MembershipType: req.RequestedType,
		Status:         memberdomain.MemberStatusActive,
		JoinedAt:       now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
