package audit

import "context"

// Repository は台帳の永続化の抽象です。追記と参照のみを提供します。
type Repository interface {
	AppendEntry(ctx context.Context, entry *Entry) (*Entry, error)
	AppendEmployeeEntry(ctx context.Context, entry *EmployeeEntry) (*EmployeeEntry, error)
	ListEntries(ctx context.Context, filter ListFilter) ([]*Entry, string, error)
	ListEmployeeEntries(ctx context.Context, employeeID int64, filter ListFilter) ([]*EmployeeEntry, string, error)
	CountEmployeeEntries(ctx context.Context, employeeID int64) (int, error)
}

// ListFilter は台帳一覧のページング条件です。
type ListFilter struct {
	Limit  int
	Offset int
}
