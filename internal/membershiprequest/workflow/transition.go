package workflow

import (
	"context"
	"fmt"

	"community-cms/backend/internal/audit"
	memberdomain "community-cms/backend/internal/member/domain"
	"community-cms/backend/internal/membershiprequest/domain"
	"community-cms/backend/internal/membershiprequest/repository"
	"community-cms/backend/internal/notification"
	"community-cms/backend/internal/telemetry"
	telemetrydomain "community-cms/backend/internal/telemetry/domain"
)

// outcome is a committed terminal decision.
type outcome struct {
	request *domain.MembershipRequest
	entry   *domain.StatusHistoryEntry
	member  *memberdomain.Member
}

// transition updates req to status and appends the matching history entry. The caller has
// already checked the transition table.
func (e *Engine) transition(ctx context.Context, tx repository.Tx, req *domain.MembershipRequest, to domain.Status, action domain.Action, actorUserID, notes string) (*domain.StatusHistoryEntry, error) {
	from := req.Status
	now := e.now().UTC()
	req.Status = to
	req.UpdatedAt = now
	if notes != "" {
		req.AdminNotes = notes
	}
	if err := tx.UpdateRequest(ctx, req); err != nil {
		return nil, err
	}
	entry := &domain.StatusHistoryEntry{
		ID:          e.newID(),
		RequestID:   req.ID,
		Action:      action,
		FromStatus:  from,
		ToStatus:    to,
		ActorUserID: actorUserID,
		Notes:       notes,
		CreatedAt:   now,
	}
	if err := tx.AppendHistory(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// finalize moves req to a terminal status. On approval the member record is created and
// linked inside tx, so an APPROVED request without a member cannot be committed.
func (e *Engine) finalize(ctx context.Context, tx repository.Tx, req *domain.MembershipRequest, to domain.Status, actorUserID, notes string) (*outcome, error) {
	res := &outcome{}
	action := domain.ActionRejected
	if to == domain.StatusApproved {
		action = domain.ActionApproved
		seq, err := tx.NextMemberSeq(ctx)
		if err != nil {
			return nil, fmt.Errorf("next member number: %w", err)
		}
		now := e.now().UTC()
		number := memberdomain.FormatMemberNumber(e.cfg.MemberNumberPrefix, now.Year(), seq)
		m := newMember(e.newID(), number, req, now)
		if err := tx.CreateMember(ctx, m); err != nil {
			return nil, fmt.Errorf("create member %s: %w", number, err)
		}
		req.MemberID = m.ID
		res.member = m
	}
	entry, err := e.transition(ctx, tx, req, to, action, actorUserID, notes)
	if err != nil {
		return nil, err
	}
	res.request = req
	res.entry = entry
	return res, nil
}

// afterDecision runs the post-commit side effects of a terminal decision.
func (e *Engine) afterDecision(ctx context.Context, actorUserID string, res *outcome) {
	req := res.request
	data := requestData(req)
	meta := map[string]string{"request_id": req.ID, "approval_system": string(req.ApprovalSystem)}
	template := notification.TemplateRejected
	if res.member != nil {
		template = notification.TemplateApproved
		data["member_number"] = res.member.MemberNumber
		meta["member_id"] = res.member.ID
		meta["member_number"] = res.member.MemberNumber
	}
	e.notify(ctx, template, data)
	e.audit.LogEvent(ctx, actorUserID, string(res.entry.Action), "membership_request", audit.Metadata(meta))
	e.recordTransition(ctx, req, actorUserID, res.entry)
}

// notify sends a notification; failures are logged and never returned.
func (e *Engine) notify(ctx context.Context, template string, data map[string]string) {
	if err := e.notifier.Send(ctx, template, data); err != nil {
		e.logger.WarnContext(ctx, "membership notification failed",
			"template", template, "request_id", data["request_id"], "error", err)
	}
}

func (e *Engine) recordTransition(ctx context.Context, req *domain.MembershipRequest, actorUserID string, entry *domain.StatusHistoryEntry) {
	if e.metrics != nil {
		e.metrics.RecordTransition(ctx, string(req.ApprovalSystem), string(entry.FromStatus), string(entry.ToStatus))
	}
	e.emit(ctx, req, actorUserID, entry)
}

func (e *Engine) emit(ctx context.Context, req *domain.MembershipRequest, actorUserID string, entry *domain.StatusHistoryEntry) {
	if e.events == nil || entry == nil {
		return
	}
	telemetry.EmitAsync(ctx, e.events, &telemetrydomain.Event{
		Type:           string(entry.Action),
		RequestID:      req.ID,
		UserID:         actorUserID,
		ApprovalSystem: string(req.ApprovalSystem),
		FromStatus:     string(entry.FromStatus),
		ToStatus:       string(entry.ToStatus),
		CreatedAt:      entry.CreatedAt,
	})
}
