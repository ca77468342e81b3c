package employee

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ogurasousui/codex-grpc-rrhh/internal/core/audit"
	"github.com/ogurasousui/codex-grpc-rrhh/internal/core/authz"
	"github.com/ogurasousui/codex-grpc-rrhh/internal/platform/logging"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// AuditRecorder は台帳への書き込みを行います。
type AuditRecorder interface {
	Record(ctx context.Context, in audit.RecordInput) error
	RecordExport(ctx context.Context, p authz.Principal, kind audit.ExportKind) error
	RecordDeniedExport(ctx context.Context, p authz.Principal, kind audit.ExportKind) error
}

// AuditHistory は社員別台帳の存在確認を行います。
type AuditHistory interface {
	HasEmployeeHistory(ctx context.Context, employeeID int64) (bool, error)
}

const (
	defaultListPageSize = 10
	maxListPageSize     = 100

	deleteDetail = "Empleado eliminado desde la API"
)

// orderingFields は一覧で並び替え可能なフィールドです。
var orderingFields = map[string]bool{
	"num_empleado":     true,
	"apellido_paterno": true,
	"apellido_materno": true,
	"fecha_ingreso":    true,
	"departamento":     true,
	"puesto":           true,
}

// Service は社員に関するユースケースをまとめます。
type Service struct {
	repo    Repository
	audits  AuditRecorder
	history AuditHistory
	clock   Clock
	tx      TransactionManager
}

// UseCase は社員ユースケースの公開インターフェースです。
type UseCase interface {
	CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*Employee, error)
	GetEmployee(ctx context.Context, in GetEmployeeInput) (*Employee, error)
	ListEmployees(ctx context.Context, in ListEmployeesInput) (*ListEmployeesResult, error)
	UpdateEmployee(ctx context.Context, in UpdateEmployeeInput) (*Employee, error)
	DeleteEmployee(ctx context.Context, in DeleteEmployeeInput) error
	GetDashboard(ctx context.Context, in GetDashboardInput) (*Dashboard, error)
}

// NewService は Service を生成します。
func NewService(repo Repository, audits AuditRecorder, history AuditHistory, clock Clock, tx TransactionManager) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	return &Service{repo: repo, audits: audits, history: history, clock: clock, tx: tx}
}

// CreateEmployeeInput は社員作成時の入力です。
type CreateEmployeeInput struct {
	Principal       authz.Principal
	EmployeeNumber  string
	FirstNames      string
	PaternalSurname string
	MaternalSurname string
	BirthDate       time.Time
	Gender          string
	MaritalStatus   string
	CURP            string
	RFC             string
	NSS             string
	Phone           string
	Email           string
	Position        string
	Department      string
	HireDate        time.Time
	Active          *bool
	Photo           string
}

// UpdateEmployeeInput は社員更新時の入力です。nil のフィールドは変更しません。
type UpdateEmployeeInput struct {
	Principal       authz.Principal
	ID              int64
	EmployeeNumber  *string
	FirstNames      *string
	PaternalSurname *string
	MaternalSurname *string
	BirthDate       *time.Time
	Gender          *string
	MaritalStatus   *string
	CURP            *string
	RFC             *string
	NSS             *string
	Phone           *string
	Email           *string
	Position        *string
	Department      *string
	HireDate        *time.Time
	Active          *bool
	Photo           *string
}

// DeleteEmployeeInput は社員削除時の入力です。
type DeleteEmployeeInput struct {
	Principal authz.Principal
	ID        int64
}

// GetEmployeeInput は社員取得時の入力です。
type GetEmployeeInput struct {
	Principal authz.Principal
	ID        int64
}

// ListEmployeesInput は一覧取得時の入力です。
type ListEmployeesInput struct {
	Principal     authz.Principal
	PageSize      int
	PageToken     string
	Active        *bool
	Position      string
	Department    string
	Gender        string
	MaritalStatus string
	HireDate      *time.Time
	Search        string
	// Ordering は並び替えフィールドです。先頭の "-" で降順になります。
	Ordering string
}

// ListEmployeesResult は一覧取得結果を表します。
type ListEmployeesResult struct {
	Employees     []*Employee
	NextPageToken string
}

// GetDashboardInput は集計取得時の入力です。
type GetDashboardInput struct {
	Principal authz.Principal
}

// CreateEmployee は新しい社員を作成し、台帳に CREACIÓN を記録します。
func (s *Service) CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*Employee, error) {
	emp := in.toEmployee()

	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		return s.validateEmployee(txCtx, emp, nil)
	}); err != nil {
		return nil, err
	}

	if err := authz.Authorize(in.Principal, authz.OpCreateEmployee); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	emp.CreatedAt = now
	emp.UpdatedAt = now

	var created *Employee
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		result, err := s.repo.Create(txCtx, emp)
		if err != nil {
			return err
		}
		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	s.record(ctx, audit.RecordInput{
		Entity:    created,
		Action:    audit.ActionCreate,
		Principal: in.Principal,
	})

	return created, nil
}

// UpdateEmployee は社員情報を部分更新します。
// activo が変化した場合は ACTIVACIÓN / INACTIVACIÓN、それ以外は EDICIÓN を記録します。
func (s *Service) UpdateEmployee(ctx context.Context, in UpdateEmployeeInput) (*Employee, error) {
	if in.ID <= 0 {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	var previous, updated *Employee
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, in.ID)
		if err != nil {
			return err
		}
		previous = existing.clone()

		supplied := in.applyTo(existing)
		if len(supplied) > 0 {
			if err := s.validateEmployee(txCtx, existing, supplied); err != nil {
				return err
			}
		}

		if err := authz.Authorize(in.Principal, authz.OpUpdateEmployee); err != nil {
			return err
		}

		existing.UpdatedAt = s.clock.Now()

		result, err := s.repo.Update(txCtx, existing)
		if err != nil {
			return err
		}
		updated = result
		return nil
	}); err != nil {
		return nil, err
	}

	record := audit.RecordInput{Entity: updated, Principal: in.Principal}
	if previous.Active != updated.Active {
		record.Action = audit.ActionDeactivate
		if updated.Active {
			record.Action = audit.ActionActivate
		}
		record.Changes = audit.Changes{
			"activo": fmt.Sprintf("%t → %t", previous.Active, updated.Active),
		}
	} else {
		record.Action = audit.ActionEdit
		record.Previous = previous
	}
	s.record(ctx, record)

	return updated, nil
}

// DeleteEmployee は社員を削除します。社員別台帳に履歴がある社員は削除できません。
func (s *Service) DeleteEmployee(ctx context.Context, in DeleteEmployeeInput) error {
	if in.ID <= 0 {
		return fmt.Errorf("id: %w", ErrInvalidID)
	}

	var target *Employee
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.FindByID(txCtx, in.ID)
		if err != nil {
			return err
		}
		target = found
		return nil
	}); err != nil {
		return err
	}

	if s.history == nil {
		return ErrHistoryUnchecked
	}
	has, err := s.history.HasEmployeeHistory(ctx, target.ID)
	if err != nil {
		return err
	}
	if has {
		return ErrHasAuditHistory
	}

	if err := authz.Authorize(in.Principal, authz.OpDeleteEmployee); err != nil {
		return err
	}

	// 社員別台帳の行は削除に伴いカスケードで消え、全体台帳の行のみ残る。
	s.record(ctx, audit.RecordInput{
		Entity:    target,
		Action:    audit.ActionDelete,
		Principal: in.Principal,
		Changes:   audit.Detail(deleteDetail),
	})

	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		return s.repo.Delete(txCtx, target.ID)
	}); err != nil {
		// 台帳は追記専用のため、記録済みの ELIMINACIÓN は取り消さない。
		logging.FromContext(ctx, nil).WithError(err).
			WithField("empleado_id", target.ID).
			Error("employee delete failed after ELIMINACIÓN entry was recorded")
		return err
	}
	return nil
}

// GetEmployee は社員を取得します。
func (s *Service) GetEmployee(ctx context.Context, in GetEmployeeInput) (*Employee, error) {
	if err := authz.Authorize(in.Principal, authz.OpGetEmployee); err != nil {
		return nil, err
	}
	if in.ID <= 0 {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	var result *Employee
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.FindByID(txCtx, in.ID)
		if err != nil {
			return err
		}
		result = found
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// ListEmployees は社員の一覧を取得します。
func (s *Service) ListEmployees(ctx context.Context, in ListEmployeesInput) (*ListEmployeesResult, error) {
	if err := authz.Authorize(in.Principal, authz.OpListEmployees); err != nil {
		return nil, err
	}

	limit, err := normalizePageSize(in.PageSize)
	if err != nil {
		return nil, err
	}

	offset, err := parsePageToken(in.PageToken)
	if err != nil {
		return nil, err
	}

	orderBy, desc, err := parseOrdering(in.Ordering)
	if err != nil {
		return nil, err
	}

	filter := ListEmployeesFilter{
		Active:        in.Active,
		Position:      strings.TrimSpace(in.Position),
		Department:    strings.TrimSpace(in.Department),
		Gender:        strings.TrimSpace(in.Gender),
		MaritalStatus: strings.TrimSpace(in.MaritalStatus),
		Search:        strings.TrimSpace(in.Search),
		OrderBy:       orderBy,
		Descending:    desc,
		Limit:         limit,
		Offset:        offset,
	}
	if in.HireDate != nil {
		d := truncateDate(*in.HireDate)
		filter.HireDate = &d
	}

	var (
		employees []*Employee
		nextToken string
	)

	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		resultEmployees, token, err := s.repo.List(txCtx, filter)
		if err != nil {
			return err
		}
		employees = resultEmployees
		nextToken = token
		return nil
	}); err != nil {
		return nil, err
	}

	return &ListEmployeesResult{Employees: employees, NextPageToken: nextToken}, nil
}

// GetDashboard は社員の集計を返します。平均年齢は小数点以下 1 桁に丸めます。
func (s *Service) GetDashboard(ctx context.Context, in GetDashboardInput) (*Dashboard, error) {
	if err := authz.Authorize(in.Principal, authz.OpDashboard); err != nil {
		return nil, err
	}

	var dashboard *Dashboard
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		stats, err := s.repo.Stats(txCtx, truncateDate(s.clock.Now()))
		if err != nil {
			return err
		}
		dashboard = stats
		return nil
	}); err != nil {
		return nil, err
	}

	dashboard.AverageAge = math.Round(dashboard.AverageAge*10) / 10
	return dashboard, nil
}

// record は台帳に書き込みます。主処理は確定済みのため、失敗しても呼び出し元には返しません。
func (s *Service) record(ctx context.Context, in audit.RecordInput) {
	if s.audits == nil {
		return
	}
	err := s.audits.Record(ctx, in)
	if err == nil || errors.Is(err, audit.ErrWriteFailed) {
		return
	}
	logging.FromContext(ctx, nil).WithError(err).WithField("action", in.Action).Warn("audit entry skipped")
}

func (in CreateEmployeeInput) toEmployee() *Employee {
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	return &Employee{
		EmployeeNumber:  strings.TrimSpace(in.EmployeeNumber),
		FirstNames:      strings.TrimSpace(in.FirstNames),
		PaternalSurname: strings.TrimSpace(in.PaternalSurname),
		MaternalSurname: strings.TrimSpace(in.MaternalSurname),
		BirthDate:       normalizeDate(in.BirthDate),
		Gender:          strings.TrimSpace(in.Gender),
		MaritalStatus:   strings.TrimSpace(in.MaritalStatus),
		CURP:            strings.TrimSpace(in.CURP),
		RFC:             strings.TrimSpace(in.RFC),
		NSS:             strings.TrimSpace(in.NSS),
		Phone:           strings.TrimSpace(in.Phone),
		Email:           strings.TrimSpace(in.Email),
		Position:        strings.TrimSpace(in.Position),
		Department:      strings.TrimSpace(in.Department),
		HireDate:        normalizeDate(in.HireDate),
		Active:          active,
		Photo:           strings.TrimSpace(in.Photo),
	}
}

// applyTo は指定されたフィールドを emp に反映し、変更対象のフィールド名を返します。
func (in UpdateEmployeeInput) applyTo(emp *Employee) fieldSet {
	supplied := fieldSet{}
	setString := func(name string, src *string, dst *string) {
		if src == nil {
			return
		}
		*dst = strings.TrimSpace(*src)
		supplied[name] = true
	}
	setDate := func(name string, src *time.Time, dst *time.Time) {
		if src == nil {
			return
		}
		*dst = normalizeDate(*src)
		supplied[name] = true
	}

	setString("num_empleado", in.EmployeeNumber, &emp.EmployeeNumber)
	setString("nombres", in.FirstNames, &emp.FirstNames)
	setString("apellido_paterno", in.PaternalSurname, &emp.PaternalSurname)
	setString("apellido_materno", in.MaternalSurname, &emp.MaternalSurname)
	setDate("fecha_nacimiento", in.BirthDate, &emp.BirthDate)
	setString("genero", in.Gender, &emp.Gender)
	setString("estado_civil", in.MaritalStatus, &emp.MaritalStatus)
	setString("curp", in.CURP, &emp.CURP)
	setString("rfc", in.RFC, &emp.RFC)
	setString("nss", in.NSS, &emp.NSS)
	setString("telefono", in.Phone, &emp.Phone)
	setString("email", in.Email, &emp.Email)
	setString("puesto", in.Position, &emp.Position)
	setString("departamento", in.Department, &emp.Department)
	setDate("fecha_ingreso", in.HireDate, &emp.HireDate)
	setString("foto", in.Photo, &emp.Photo)
	if in.Active != nil {
		emp.Active = *in.Active
		supplied["activo"] = true
	}

	return supplied
}

func (e *Employee) clone() *Employee {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}

func normalizeDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func parseOrdering(raw string) (string, bool, error) {
	field := strings.TrimSpace(raw)
	if field == "" {
		return "", false, nil
	}
	desc := strings.HasPrefix(field, "-")
	field = strings.TrimPrefix(field, "-")
	if !orderingFields[field] {
		return "", false, ErrInvalidOrdering
	}
	return field, desc, nil
}

func normalizePageSize(pageSize int) (int, error) {
	if pageSize <= 0 {
		return defaultListPageSize, nil
	}
	if pageSize > maxListPageSize {
		return 0, ErrInvalidPageSize
	}
	return pageSize, nil
}

func parsePageToken(token string) (int, error) {
	if strings.TrimSpace(token) == "" {
		return 0, nil
	}

	offset, err := strconv.Atoi(token)
	if err != nil || offset < 0 {
		return 0, ErrInvalidPageToken
	}

	return offset, nil
}
