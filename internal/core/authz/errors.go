package authz

import "errors"

var (
	ErrUnauthenticated  = errors.New("authz: authentication required")
	ErrPermissionDenied = errors.New("authz: permission denied")
	ErrUnknownOperation = errors.New("authz: unknown operation")
)
