package domain

import (
	"fmt"
	"net/mail"
	"strings"

	memberdomain "community-cms/backend/internal/member/domain"
)

// Application is the applicant-supplied input of a public submission.
type Application struct {
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	Street         string
	PostalCode     string
	City           string
	RequestedType  memberdomain.MembershipType
	Motivation     string
	ApprovalSystem ApprovalSystem
}

const maxMotivationLen = 4000

// Normalize trims fields and applies defaults: REGULAR membership type and a lowercase email.
func (a *Application) Normalize() {
	a.FirstName = strings.TrimSpace(a.FirstName)
	a.LastName = strings.TrimSpace(a.LastName)
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	a.Phone = strings.TrimSpace(a.Phone)
	a.Street = strings.TrimSpace(a.Street)
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	a.City = strings.TrimSpace(a.City)
	a.Motivation = strings.TrimSpace(a.Motivation)
	if a.RequestedType == "" {
		a.RequestedType = memberdomain.MembershipTypeRegular
	}
}

// Validate returns an error wrapping ErrInvalidApplication for the first invalid field.
// BOARD membership cannot be applied for.
func (a *Application) Validate() error {
	if a.FirstName == "" || a.LastName == "" {
		return fmt.Errorf("%w: first and last name are required", ErrInvalidApplication)
	}
	if _, err := mail.ParseAddress(a.Email); err != nil || strings.ContainsAny(a.Email, "<> ") {
		return fmt.Errorf("%w: invalid email %q", ErrInvalidApplication, a.Email)
	}
	if !a.RequestedType.Valid() {
		return fmt.Errorf("%w: unknown membership type %q", ErrInvalidApplication, a.RequestedType)
	}
	if a.RequestedType == memberdomain.MembershipTypeBoard {
		return fmt.Errorf("%w: board membership is assigned, not applied for", ErrInvalidApplication)
	}
	if !a.ApprovalSystem.Valid() {
		return fmt.Errorf("%w: unknown approval system %q", ErrInvalidApplication, a.ApprovalSystem)
	}
	if len(a.Motivation) > maxMotivationLen {
		return fmt.Errorf("%w: motivation exceeds %d characters", ErrInvalidApplication, maxMotivationLen)
	}
	return nil
}
