package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrForbidden is returned when access is denied
	ErrForbidden = errors.New("access forbidden")

	// ErrInvalidCredentials is returned when authentication fails
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserNotActive is returned when the account is deactivated
	ErrUserNotActive = errors.New("user account is not active")

	// ErrEmailTaken is returned when registering an email that already exists
	ErrEmailTaken = errors.New("email already registered")

	// ErrCompanyTaken is returned when a company name or registration number is taken
	ErrCompanyTaken = errors.New("company already registered")

	// ErrNoCompany is returned when an action requires a registered company
	ErrNoCompany = errors.New("company registration required")

	// ErrDraftRevert is returned on an attempt to move a non-draft application back to draft
	ErrDraftRevert = errors.New("cannot revert to draft once submitted")

	// ErrNotDraft is returned when deleting an application that left draft state
	ErrNotDraft = errors.New("only draft applications can be deleted")

	// ErrStaleVersion is returned when an update raced with a concurrent write
	ErrStaleVersion = errors.New("application was modified concurrently")
)

// IncompleteApplicationError is returned by Submit when required form areas are
// missing; Missing lists the absent category keys.
type IncompleteApplicationError struct {
	Missing []string
}

func (e *IncompleteApplicationError) Error() string {
	return fmt.Sprintf("application incomplete: missing %s", strings.Join(e.Missing, ", "))
}
