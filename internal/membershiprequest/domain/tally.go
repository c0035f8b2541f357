package domain

import (
	settingsdomain "community-cms/backend/internal/settings/domain"
)

// TallyResult summarizes the votes on a request against the current board roster.
type TallyResult struct {
	Threshold  settingsdomain.ApprovalThreshold
	RosterSize int
	Approvals  int
	Rejections int
	// Required is the number of like votes needed to decide.
	Required int
	// Outcome is APPROVED or REJECTED once decided, otherwise empty.
	Outcome Status
}

// Decided reports whether the tally reached a terminal outcome.
func (t TallyResult) Decided() bool {
	return t.Outcome != ""
}

// Tally counts the latest vote of every voter currently in roster. Votes from users no
// longer board-eligible are ignored.
//
// MAJORITY is measured against the whole roster, not the votes cast so far: a side needs
// floor(n/2)+1 votes, so early votes never decide on their own and a split roster stays
// undecided. UNANIMOUS approves only when every roster member approved and rejects on
// the first rejection. An empty roster never decides.
func Tally(votes []Vote, roster []string, threshold settingsdomain.ApprovalThreshold) TallyResult {
	eligible := make(map[string]bool, len(roster))
	for _, id := range roster {
		eligible[id] = true
	}
	res := TallyResult{Threshold: threshold, RosterSize: len(eligible)}
	for _, v := range votes {
		if !eligible[v.VoterUserID] {
			continue
		}
		switch v.Decision {
		case DecisionApprove:
			res.Approvals++
		case DecisionReject:
			res.Rejections++
		}
	}
	n := res.RosterSize
	if n == 0 {
		return res
	}
	switch threshold {
	case settingsdomain.ThresholdUnanimous:
		res.Required = n
		switch {
		case res.Rejections > 0:
			res.Outcome = StatusRejected
		case res.Approvals == n:
			res.Outcome = StatusApproved
		}
	default:
		res.Required = n/2 + 1
		switch {
		case res.Approvals >= res.Required:
			res.Outcome = StatusApproved
		case res.Rejections >= res.Required:
			res.Outcome = StatusRejected
		}
	}
	return res
}
