package store

import "errors"

// Expected outcomes of store operations. Messages are shown to end users.
var (
	ErrDuplicateEmail     = errors.New("An account with this email already exists")
	ErrDuplicateStudentID = errors.New("An account with this Student ID already exists")

	// ErrInvalidCredentials does not distinguish unknown identifiers from wrong passwords.
	ErrInvalidCredentials = errors.New("Invalid email/student ID or password")

	ErrNotFound = errors.New("not found")

	ErrNotCommentAuthor = errors.New("Only the author can delete this comment")

	ErrInvalidSettings = errors.New("invalid settings data")
)
