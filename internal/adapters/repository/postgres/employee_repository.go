package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ogurasousui/codex-grpc-rrhh/internal/core/employee"
	pgdb "github.com/ogurasousui/codex-grpc-rrhh/internal/platform/db/postgres"
)

const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
	checkViolationCode      = "23514"
)

const employeeColumns = `id, num_empleado, nombres, apellido_paterno, apellido_materno, fecha_nacimiento,
               genero, estado_civil, curp, rfc, nss, telefono, email, puesto, departamento,
               fecha_ingreso, activo, foto, created_at, updated_at`

// employeeUniqueConstraints は一意制約名と公開フィールド名の対応です。
var employeeUniqueConstraints = map[string]string{
	"empleados_num_empleado_key": "num_empleado",
	"empleados_curp_key":         "curp",
	"empleados_rfc_key":          "rfc",
	"empleados_nss_key":          "nss",
	"empleados_email_key":        "email",
}

var employeeCheckConstraints = map[string]string{
	"empleados_telefono_check": "telefono",
}

// employeeOrderColumns は並び替え可能な列です。
var employeeOrderColumns = map[string]string{
	"num_empleado":     "num_empleado",
	"apellido_paterno": "apellido_paterno",
	"apellido_materno": "apellido_materno",
	"fecha_ingreso":    "fecha_ingreso",
	"departamento":     "departamento",
	"puesto":           "puesto",
}

var employeeSearchColumns = []string{
	"nombres", "apellido_paterno", "apellido_materno", "num_empleado",
	"curp", "rfc", "nss", "email", "telefono",
}

// EmployeeRepository は PostgreSQL を利用した社員永続化の実装です。
type EmployeeRepository struct {
	pool pgdb.Queryer
}

// NewEmployeeRepository は EmployeeRepository を生成します。
func NewEmployeeRepository(pool pgdb.Queryer) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

// Create は社員を新規作成します。
func (r *EmployeeRepository) Create(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO empleados (num_empleado, nombres, apellido_paterno, apellido_materno, fecha_nacimiento,
                               genero, estado_civil, curp, rfc, nss, telefono, email, puesto, departamento,
                               fecha_ingreso, activo, foto, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
        RETURNING `+employeeColumns,
		e.EmployeeNumber,
		e.FirstNames,
		e.PaternalSurname,
		e.MaternalSurname,
		dateValue(e.BirthDate),
		e.Gender,
		e.MaritalStatus,
		e.CURP,
		e.RFC,
		e.NSS,
		e.Phone,
		e.Email,
		e.Position,
		e.Department,
		dateValue(e.HireDate),
		e.Active,
		nullableString(e.Photo),
		e.CreatedAt,
		e.UpdatedAt,
	)

	created, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return created, nil
}

// Update は社員情報を更新します。
func (r *EmployeeRepository) Update(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE empleados
           SET num_empleado = $1,
               nombres = $2,
               apellido_paterno = $3,
               apellido_materno = $4,
               fecha_nacimiento = $5,
               genero = $6,
               estado_civil = $7,
               curp = $8,
               rfc = $9,
               nss = $10,
               telefono = $11,
               email = $12,
               puesto = $13,
               departamento = $14,
               fecha_ingreso = $15,
               activo = $16,
               foto = $17,
               updated_at = $18
         WHERE id = $19
        RETURNING `+employeeColumns,
		e.EmployeeNumber,
		e.FirstNames,
		e.PaternalSurname,
		e.MaternalSurname,
		dateValue(e.BirthDate),
		e.Gender,
		e.MaritalStatus,
		e.CURP,
		e.RFC,
		e.NSS,
		e.Phone,
		e.Email,
		e.Position,
		e.Department,
		dateValue(e.HireDate),
		e.Active,
		nullableString(e.Photo),
		e.UpdatedAt,
		e.ID,
	)

	updated, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return updated, nil
}

// Delete は社員を削除します。社員別台帳の行は外部キーのカスケードで削除されます。
func (r *EmployeeRepository) Delete(ctx context.Context, id int64) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM empleados WHERE id = $1`, id)
	if err != nil {
		return translateEmployeePgError(err)
	}
	if tag.RowsAffected() == 0 {
		return employee.ErrEmployeeNotFound
	}
	return nil
}

// FindByID は ID で社員を取得します。
func (r *EmployeeRepository) FindByID(ctx context.Context, id int64) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+employeeColumns+`
          FROM empleados
         WHERE id = $1
         LIMIT 1
    `, id)

	found, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return found, nil
}

// FindConflicts は一意なフィールドのうち、他の社員と重複しているものを返します。
func (r *EmployeeRepository) FindConflicts(ctx context.Context, keys employee.UniqueKeys, excludeID int64) ([]string, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT COALESCE(bool_or(num_empleado = $1), false),
               COALESCE(bool_or(curp = $2), false),
               COALESCE(bool_or(rfc = $3), false),
               COALESCE(bool_or(nss = $4), false),
               COALESCE(bool_or(email = $5), false)
          FROM empleados
         WHERE (num_empleado = $1 OR curp = $2 OR rfc = $3 OR nss = $4 OR email = $5)
           AND id <> $6
    `,
		nullableString(keys.EmployeeNumber),
		nullableString(keys.CURP),
		nullableString(keys.RFC),
		nullableString(keys.NSS),
		nullableString(keys.Email),
		excludeID,
	)

	var hits [5]bool
	if err := row.Scan(&hits[0], &hits[1], &hits[2], &hits[3], &hits[4]); err != nil {
		return nil, translateEmployeePgError(err)
	}

	names := [5]string{"num_empleado", "curp", "rfc", "nss", "email"}
	conflicts := make([]string, 0, len(names))
	for i, hit := range hits {
		if hit {
			conflicts = append(conflicts, names[i])
		}
	}
	return conflicts, nil
}

// List は社員の一覧を取得します。
func (r *EmployeeRepository) List(ctx context.Context, filter employee.ListEmployeesFilter) ([]*employee.Employee, string, error) {
	if filter.Limit <= 0 {
		return nil, "", employee.ErrInvalidPageSize
	}
	if filter.Offset < 0 {
		return nil, "", employee.ErrInvalidPageToken
	}

	orderClause := "id"
	if filter.OrderBy != "" {
		column, ok := employeeOrderColumns[filter.OrderBy]
		if !ok {
			return nil, "", employee.ErrInvalidOrdering
		}
		direction := ""
		if filter.Descending {
			direction = " DESC"
		}
		orderClause = column + direction + ", id"
	}

	limitWithBuffer := filter.Limit + 1

	args := make([]any, 0, 9)
	conditions := make([]string, 0, 7)
	placeholder := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Active != nil {
		conditions = append(conditions, "activo = "+placeholder(*filter.Active))
	}
	if filter.Position != "" {
		conditions = append(conditions, "puesto = "+placeholder(filter.Position))
	}
	if filter.Department != "" {
		conditions = append(conditions, "departamento = "+placeholder(filter.Department))
	}
	if filter.Gender != "" {
		conditions = append(conditions, "genero = "+placeholder(filter.Gender))
	}
	if filter.MaritalStatus != "" {
		conditions = append(conditions, "estado_civil = "+placeholder(filter.MaritalStatus))
	}
	if filter.HireDate != nil {
		conditions = append(conditions, "fecha_ingreso = "+placeholder(dateValue(*filter.HireDate)))
	}
	if filter.Search != "" {
		p := placeholder("%" + escapeLike(filter.Search) + "%")
		matches := make([]string, 0, len(employeeSearchColumns))
		for _, column := range employeeSearchColumns {
			matches = append(matches, column+" ILIKE "+p)
		}
		conditions = append(conditions, "("+strings.Join(matches, " OR ")+")")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	limitPlaceholder := placeholder(limitWithBuffer)
	offsetPlaceholder := placeholder(filter.Offset)

	query := `
        SELECT ` + employeeColumns + `
          FROM empleados` + whereClause + `
         ORDER BY ` + orderClause + `
         LIMIT ` + limitPlaceholder + `
        OFFSET ` + offsetPlaceholder + `
    `

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, "", translateEmployeePgError(err)
	}
	defer rows.Close()

	employees := make([]*employee.Employee, 0, filter.Limit)
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, "", translateEmployeePgError(err)
		}
		employees = append(employees, emp)
	}

	if err := rows.Err(); err != nil {
		return nil, "", translateEmployeePgError(err)
	}

	var nextToken string
	if len(employees) == limitWithBuffer {
		employees = employees[:filter.Limit]
		nextToken = strconv.Itoa(filter.Offset + filter.Limit)
	}

	return employees, nextToken, nil
}

// ListAll は全社員を ID 順に返します。
func (r *EmployeeRepository) ListAll(ctx context.Context) ([]*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT `+employeeColumns+`
          FROM empleados
         ORDER BY id
    `)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	defer rows.Close()

	var employees []*employee.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, translateEmployeePgError(err)
		}
		employees = append(employees, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, translateEmployeePgError(err)
	}
	return employees, nil
}

// Stats は社員の集計を返します。年齢は asOf 時点の満年齢で計算します。
func (r *EmployeeRepository) Stats(ctx context.Context, asOf time.Time) (*employee.Dashboard, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)

	var d employee.Dashboard
	if err := exec.QueryRow(ctx, `
        SELECT count(*),
               count(*) FILTER (WHERE activo),
               count(*) FILTER (WHERE NOT activo),
               COALESCE(avg(date_part('year', age($1::date, fecha_nacimiento)))::float8, 0)
          FROM empleados
    `, dateValue(asOf)).Scan(&d.Total, &d.Active, &d.Inactive, &d.AverageAge); err != nil {
		return nil, translateEmployeePgError(err)
	}

	var err error
	if d.ByDepartment, err = r.countBy(ctx, exec, "departamento"); err != nil {
		return nil, err
	}
	if d.ByPosition, err = r.countBy(ctx, exec, "puesto"); err != nil {
		return nil, err
	}
	if d.ByGender, err = r.countBy(ctx, exec, "genero"); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *EmployeeRepository) countBy(ctx context.Context, exec pgdb.Queryer, column string) ([]employee.GroupCount, error) {
	switch column {
	case "departamento", "puesto", "genero":
	default:
		return nil, errors.Errorf("unsupported group column %q", column)
	}

	rows, err := exec.Query(ctx, `SELECT `+column+`, count(*) FROM empleados GROUP BY `+column+` ORDER BY `+column)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	defer rows.Close()

	groups := make([]employee.GroupCount, 0)
	for rows.Next() {
		var g employee.GroupCount
		if err := rows.Scan(&g.Value, &g.Total); err != nil {
			return nil, translateEmployeePgError(err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, translateEmployeePgError(err)
	}
	return groups, nil
}

func scanEmployee(row pgx.Row) (*employee.Employee, error) {
	var (
		e     employee.Employee
		birth time.Time
		hired time.Time
		photo sql.NullString
	)

	if err := row.Scan(
		&e.ID,
		&e.EmployeeNumber,
		&e.FirstNames,
		&e.PaternalSurname,
		&e.MaternalSurname,
		&birth,
		&e.Gender,
		&e.MaritalStatus,
		&e.CURP,
		&e.RFC,
		&e.NSS,
		&e.Phone,
		&e.Email,
		&e.Position,
		&e.Department,
		&hired,
		&e.Active,
		&photo,
		&e.CreatedAt,
		&e.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, employee.ErrEmployeeNotFound
		}
		return nil, errors.Wrap(err, "scan empleado")
	}

	e.BirthDate = dateValue(birth)
	e.HireDate = dateValue(hired)
	if photo.Valid {
		e.Photo = photo.String
	}
	return &e, nil
}

func translateEmployeePgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return employee.ErrEmployeeNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			if field, ok := employeeUniqueConstraints[pgErr.ConstraintName]; ok {
				return employee.NewValidationError(field, employee.UniqueMessage(field))
			}
			return errors.Wrap(employee.ErrValidation, pgErr.ConstraintName)
		case checkViolationCode:
			if field, ok := employeeCheckConstraints[pgErr.ConstraintName]; ok {
				return employee.NewValidationError(field, "Valor inválido.")
			}
			return errors.Wrap(employee.ErrValidation, pgErr.ConstraintName)
		}
	}

	return errors.Wrap(err, "empleados")
}

func dateValue(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func escapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}
