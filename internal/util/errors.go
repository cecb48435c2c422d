package util

import "errors"

var (
	ErrUserNotFound     = errors.New("User account not found")
	ErrEmailRegistered  = errors.New("An account with this email already exists")
	ErrPermissionDenied = errors.New("permission denied")
	ErrValidation       = errors.New("validation failed")

	// onboarding
	ErrPasswordMismatch       = errors.New("Passwords do not match")
	ErrPasswordTooShort       = errors.New("Password must be at least 6 characters")
	ErrRegNumberNotAuthorized = errors.New("This registration number is not authorized")
	ErrRegNumberTaken         = errors.New("An account already exists for this registration number")
	ErrInvalidSupervisorID    = errors.New("Invalid Supervisor ID")
	ErrCodeLength             = errors.New("Invalid ID length")
	ErrCodeNotAuthorized      = errors.New("This ID is not authorized")
	ErrCodeAlreadyUsed        = errors.New("Code Already Used")
	ErrCodeNotFound           = errors.New("access code not found")
	ErrUnknownCodeType        = errors.New("unknown code type")
	ErrInvalidCredentials     = errors.New("Invalid email or password")
	ErrRoleMismatch           = errors.New("Invalid role for this account")
	ErrAccountSuspended       = errors.New("This account has been suspended")
	ErrSessionRevoked         = errors.New("This session has ended, please sign in again")
	ErrNotAdmin               = errors.New("You do not have admin access")
	ErrWrongPassword          = errors.New("Current password is incorrect")

	// registration numbers
	ErrRegNumberFormat   = errors.New("Registration number must be 4 digits followed by 5 to 9 digits")
	ErrRegNumberExists   = errors.New("This registration number already exists")
	ErrRegNumberNotFound = errors.New("Registration number not found")

	// approvals
	ErrSchoolRequired         = errors.New("Please enter a school name")
	ErrApprovalNotFound       = errors.New("approval not found")
	ErrApprovalAlreadyDecided = errors.New("This request has already been reviewed")
	ErrNoSupervisor           = errors.New("No supervisor is linked to this account")

	// supervisor, reviews, certificate
	ErrScoreOutOfRange  = errors.New("Please enter a score between 0 and 100")
	ErrNotYourStudent   = errors.New("This student is not assigned to you")
	ErrSchoolAlreadySet = errors.New("Student has already provided a school")
	ErrRatingRequired   = errors.New("Please provide a star rating")
	ErrReviewRequired   = errors.New("Please write a short review")
	ErrAlreadyReviewed  = errors.New("You have already reviewed your supervisor")
	ErrScoreNotReleased = errors.New("Your score has not been released yet")

	// notifications and profile
	ErrNotificationNotFound = errors.New("notification not found")
	ErrStreamClosed         = errors.New("notification stream closed")
	ErrNameRequired         = errors.New("Name cannot be empty")
	ErrFileTooLarge         = errors.New("File size must be less than 5MB")
	ErrNotAnImage           = errors.New("Please upload an image file")
)

// DetailError shows a specific message while still matching its sentinel
// with errors.Is.
type DetailError struct {
	Err error
	Msg string
}

func (e *DetailError) Error() string { return e.Msg }

func (e *DetailError) Unwrap() error { return e.Err }

func WithDetail(err error, msg string) error {
	return &DetailError{Err: err, Msg: msg}
}
