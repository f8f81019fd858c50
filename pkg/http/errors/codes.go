package errors

// Error codes for standardized error responses
const (
	// Authentication errors
	ErrCodeUnauthorized           = "unauthorized"
	ErrCodeForbidden              = "forbidden"
	ErrCodeInvalidToken           = "invalid_token"
	ErrCodeAuthenticationRequired = "authentication_required"

	// Validation errors
	ErrCodeInvalidRequest     = "invalid_request"
	ErrCodeValidationFailed   = "validation_failed"
	ErrCodeMissingField       = "missing_field"
	ErrCodeInvalidUserID      = "invalid_user_id"
	ErrCodeInvalidQuestionSet = "invalid_question_set"

	// Resource errors
	ErrCodeNotFound            = "not_found"
	ErrCodeQuestionSetNotFound = "question_set_not_found"
	ErrCodeUserNotFound        = "user_not_found"

	// Business logic errors
	ErrCodeSubmitFailed      = "submit_failed"
	ErrCodeStatsFailed       = "stats_failed"
	ErrCodeAttemptsFailed    = "attempts_fetch_failed"
	ErrCodeQuestionSetFailed = "question_set_failed"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeUpstreamError      = "upstream_error"

	// Leaderboard errors
	ErrCodeLeaderboardFetchFailed = "leaderboard_fetch_failed"
	ErrCodeInvalidLeaderboardArgs = "invalid_leaderboard_filter"
)
