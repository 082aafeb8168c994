package service

import "errors"

// Centralized service layer errors.
// All errors returned by service methods are defined here for consistency
// and to make error handling in handlers predictable.

// ===== Email Errors =====
var (
	ErrEmailNotConfigured = errors.New("email provider not configured")
	ErrEmailDelivery      = errors.New("email delivery failed")
	ErrInvalidRecipient   = errors.New("invalid email recipient")
)

// ===== Digest Errors =====
var (
	ErrSubscriberNotFound       = errors.New("subscriber not found")
	ErrUnsubscribeNotConfigured = errors.New("unsubscribe links not configured")
	ErrInvalidUnsubscribeToken  = errors.New("invalid unsubscribe token")
	ErrUnsubscribeTokenExpired  = errors.New("unsubscribe token expired")
)

// ===== Verification Errors =====
var (
	ErrPageFetch = errors.New("posting page fetch failed")
)

// ===== Analytics Errors =====
var (
	ErrAnalyticsNotConfigured = errors.New("analytics refresh URL not configured")
	ErrAnalyticsRefresh       = errors.New("analytics refresh failed")
)
