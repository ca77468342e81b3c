package employee

import (
	"context"
	"time"
)

// Repository は社員永続化の抽象です。
type Repository interface {
	Create(ctx context.Context, employee *Employee) (*Employee, error)
	Update(ctx context.Context, employee *Employee) (*Employee, error)
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*Employee, error)
	// FindConflicts は keys と一致する他の社員が存在するフィールド名を返します。
	FindConflicts(ctx context.Context, keys UniqueKeys, excludeID int64) ([]string, error)
	List(ctx context.Context, filter ListEmployeesFilter) ([]*Employee, string, error)
	ListAll(ctx context.Context) ([]*Employee, error)
	Stats(ctx context.Context, asOf time.Time) (*Dashboard, error)
}

// UniqueKeys は一意制約を持つフィールドの値です。空文字のフィールドは検査しません。
type UniqueKeys struct {
	EmployeeNumber string
	CURP           string
	RFC            string
	NSS            string
	Email          string
}

func (k UniqueKeys) empty() bool {
	return k == UniqueKeys{}
}

// ListEmployeesFilter は一覧取得用フィルタです。
type ListEmployeesFilter struct {
	Active        *bool
	Position      string
	Department    string
	Gender        string
	MaritalStatus string
	HireDate      *time.Time
	Search        string
	OrderBy       string
	Descending    bool
	Limit         int
	Offset        int
}
