package api

import (
	"context"
	"errors"
	"net/http"

	"tablebuilder/internal/domain"
)

// httpStatusFromDomainError maps domain errors to HTTP status codes.
func httpStatusFromDomainError(err error) int {
	var notFound *domain.NotFoundError
	var accessDenied *domain.AccessDeniedError
	var validation *domain.ValidationError
	var conflict *domain.ConflictError
	var invalidIdent *domain.InvalidIdentifierError
	var unknownType *domain.UnknownTypeError
	var rowInvalid *domain.RowValidationError
	var schemaApply *domain.SchemaApplyError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &accessDenied):
		return http.StatusForbidden
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &validation),
		errors.As(err, &invalidIdent),
		errors.As(err, &unknownType),
		errors.As(err, &rowInvalid):
		return http.StatusBadRequest
	case errors.As(err, &schemaApply):
		return http.StatusInternalServerError
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
