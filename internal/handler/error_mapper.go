package handler

import (
	"errors"

	"github.com/contractsonly/api/internal/database"
	"github.com/contractsonly/api/internal/jobs"
	"github.com/contractsonly/api/internal/model"
	"github.com/contractsonly/api/internal/service"
)

// MapServiceError converts a service error to a ProblemDetails response.
// Unrecognized errors become a generic 500 without leaking the message.
func MapServiceError(err error) *model.ProblemDetails {
	if err == nil {
		return nil
	}

	switch {
	// ===== Not Found Errors → 404 =====
	case errors.Is(err, jobs.ErrUnknownJob):
		return model.NewNotFoundError("job")
	case errors.Is(err, service.ErrSubscriberNotFound),
		errors.Is(err, database.ErrNotFound):
		return model.NewNotFoundError("subscriber")

	// ===== Bad Request → 400 =====
	case errors.Is(err, service.ErrInvalidUnsubscribeToken):
		return model.NewBadRequestError("invalid unsubscribe link")
	case errors.Is(err, service.ErrUnsubscribeTokenExpired):
		return model.NewBadRequestError("unsubscribe link has expired")
	case errors.Is(err, service.ErrInvalidRecipient):
		return model.NewBadRequestError(err.Error())

	// ===== Upstream Errors → 502 =====
	case errors.Is(err, service.ErrEmailDelivery),
		errors.Is(err, service.ErrPageFetch),
		errors.Is(err, service.ErrAnalyticsRefresh):
		return model.NewExternalServiceError(err.Error())

	// ===== Unavailable → 503 =====
	case errors.Is(err, service.ErrUnsubscribeNotConfigured),
		errors.Is(err, service.ErrEmailNotConfigured),
		errors.Is(err, service.ErrAnalyticsNotConfigured):
		return model.NewUnavailableError("feature not configured")
	case errors.Is(err, database.ErrConnection):
		return model.NewUnavailableError("database unavailable")
	}

	return model.NewInternalError("")
}
