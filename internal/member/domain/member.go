package domain

import (
	"fmt"
	"time"
)

// Member is an organization member record. Members are created when a membership request is approved.
type Member struct {
	ID             string
	MemberNumber   string
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	Street         string
	PostalCode     string
	City           string
	MembershipType MembershipType
	Status         MemberStatus
	JoinedAt       time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// MembershipType classifies a member. BOARD members hold board-level workflow privileges.
type MembershipType string

const (
	MembershipTypeRegular    MembershipType = "REGULAR"
	MembershipTypeSupporting MembershipType = "SUPPORTING"
	MembershipTypeHonorary   MembershipType = "HONORARY"
	MembershipTypeBoard      MembershipType = "BOARD"
)

// Valid reports whether t is a known membership type.
func (t MembershipType) Valid() bool {
	switch t {
	case MembershipTypeRegular, MembershipTypeSupporting, MembershipTypeHonorary, MembershipTypeBoard:
		return true
	}
	return false
}

type MemberStatus string

const (
	MemberStatusActive   MemberStatus = "ACTIVE"
	MemberStatusInactive MemberStatus = "INACTIVE"
)

// FormatMemberNumber renders a member number as <prefix><year>-<seq>, e.g. M2026-00042.
func FormatMemberNumber(prefix string, year int, seq int64) string {
	return fmt.Sprintf("%s%d-%05d", prefix, year, seq)
}
