package domain

import "errors"

var (
	// ErrQuestionSetNotFound is returned when a question set id has no document.
	ErrQuestionSetNotFound = errors.New("question set not found")
	// ErrUserNotFound is returned when a user id is not in the directory.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidQuestionSet indicates an authored question set failed validation.
	ErrInvalidQuestionSet = errors.New("invalid question set")
	// ErrSnapshotNotFound is returned when no leaderboard snapshot exists yet.
	ErrSnapshotNotFound = errors.New("leaderboard snapshot not found")
	// ErrForbidden is returned when the caller may not act on the target.
	ErrForbidden = errors.New("forbidden")
)
