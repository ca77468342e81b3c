package handler

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ogurasousui/codex-grpc-rrhh/internal/core/audit"
	"github.com/ogurasousui/codex-grpc-rrhh/internal/core/authz"
	"github.com/ogurasousui/codex-grpc-rrhh/internal/core/employee"
)

func toStatusError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, authz.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, authz.ErrPermissionDenied):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, employee.ErrValidation),
		errors.Is(err, employee.ErrInvalidID),
		errors.Is(err, employee.ErrInvalidPageSize),
		errors.Is(err, employee.ErrInvalidPageToken),
		errors.Is(err, employee.ErrInvalidOrdering),
		errors.Is(err, employee.ErrUnsupportedExport),
		errors.Is(err, audit.ErrInvalidEmployeeID),
		errors.Is(err, audit.ErrInvalidPageSize),
		errors.Is(err, audit.ErrInvalidPageToken):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, employee.ErrHasAuditHistory):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, employee.ErrEmployeeNotFound):
		return status.Error(codes.NotFound, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
