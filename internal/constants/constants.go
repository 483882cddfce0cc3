package constants

import "time"

const (
	MinPasswordLength = 6
	OTPLength         = 6
	OTPTTL            = 10 * time.Minute

	// Context keys set by the auth middleware
	ContextKeyUserID = "user_id"
	ContextKeyUser   = "current_user"

	ContextKeyRequestID = "request_id"
	HeaderRequestID     = "X-Request-ID"

	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100

	DefaultActivityLimit = 100
	MaxActivityLimit     = 500

	// Reports
	DefaultReportWindowDays = 30
	TopEmployeesLimit       = 10
	DateLayout              = "2006-01-02"
)
