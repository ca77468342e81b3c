package audit

import "errors"

var (
	ErrEntityRequired    = errors.New("audit: entity is required")
	ErrChangesRequired   = errors.New("audit: explicit changes are required for this action")
	ErrPreviousRequired  = errors.New("audit: previous snapshot is required for edits")
	ErrModelMismatch     = errors.New("audit: snapshots belong to different models")
	ErrWriteFailed       = errors.New("audit: ledger write failed")
	ErrActorNotFound     = errors.New("audit: actor account not found")
	ErrInvalidEmployeeID = errors.New("audit: invalid employee id")
	ErrInvalidPageSize   = errors.New("audit: invalid page size")
	ErrInvalidPageToken  = errors.New("audit: invalid page token")
)
