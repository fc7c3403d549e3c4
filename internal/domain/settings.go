package domain

import "time"

const (
	DefaultAutoCloseHours   = 72
	DefaultReopenWindowDays = 15
)

// AppSettings mirrors the singleton app_settings row (id=1).
type AppSettings struct {
	AutoClosePendingValidationHours *int
	SystemUserID                    *string
	ReopenWindowDays                *int
}

// AutoCloseHours returns the configured hours, defaulting when unset.
func (s AppSettings) AutoCloseHours() int {
	if s.AutoClosePendingValidationHours == nil {
		return DefaultAutoCloseHours
	}
	return *s.AutoClosePendingValidationHours
}

// AutoCloseThreshold is the inactivity window before a pending validation ticket closes.
func (s AppSettings) AutoCloseThreshold() time.Duration {
	return time.Duration(s.AutoCloseHours()) * time.Hour
}

// ReopenWindow is how long after closure a client follow-up reopens the same ticket.
func (s AppSettings) ReopenWindow() time.Duration {
	days := DefaultReopenWindowDays
	if s.ReopenWindowDays != nil {
		days = *s.ReopenWindowDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// SystemUser returns the synthetic actor id, or "" when unset.
func (s AppSettings) SystemUser() string {
	if s.SystemUserID == nil {
		return ""
	}
	return *s.SystemUserID
}
