package postgres

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/ogurasousui/codex-grpc-rrhh/internal/core/employee"
)

type stubRow struct {
	scanFn func(dest ...interface{}) error
}

func (s stubRow) Scan(dest ...interface{}) error {
	return s.scanFn(dest...)
}

var employeeColumnNames = []string{
	"id", "num_empleado", "nombres", "apellido_paterno", "apellido_materno", "fecha_nacimiento",
	"genero", "estado_civil", "curp", "rfc", "nss", "telefono", "email", "puesto", "departamento",
	"fecha_ingreso", "activo", "foto", "created_at", "updated_at",
}

func employeeRowValues(id int64, surname string, photo any) []any {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	return []any{
		id, "EMP-" + surname, "Ana", surname, "Núñez", time.Date(1990, 3, 20, 0, 0, 0, 0, time.UTC),
		"F", "Soltera", "CURP" + surname, "RFC" + surname, "NSS" + surname, "5512345678", surname + "@example.com",
		"Analista", "Finanzas", time.Date(2020, 1, 6, 0, 0, 0, 0, time.UTC), true, photo, now, now,
	}
}

func TestScanEmployee_NoRows(t *testing.T) {
	t.Parallel()

	row := stubRow{scanFn: func(dest ...interface{}) error {
		return pgx.ErrNoRows
	}}

	_, err := scanEmployee(row)
	if !errors.Is(err, employee.ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}
}

func TestTranslateEmployeePgError(t *testing.T) {
	t.Parallel()

	uniqueErr := &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "empleados_curp_key"}
	var verr *employee.ValidationError
	if !errors.As(translateEmployeePgError(uniqueErr), &verr) {
		t.Fatalf("expected unique violation to map to ValidationError")
	}
	if verr.Fields["curp"] != "Ya existe un empleado con este CURP." {
		t.Fatalf("unexpected fields: %v", verr.Fields)
	}

	unknownUnique := &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "otro"}
	if !errors.Is(translateEmployeePgError(unknownUnique), employee.ErrValidation) {
		t.Fatalf("expected unknown unique violation to wrap ErrValidation")
	}

	checkErr := &pgconn.PgError{Code: checkViolationCode, ConstraintName: "empleados_telefono_check"}
	if !errors.As(translateEmployeePgError(checkErr), &verr) || verr.Fields["telefono"] == "" {
		t.Fatalf("expected check violation to map to telefono ValidationError")
	}

	if !errors.Is(translateEmployeePgError(pgx.ErrNoRows), employee.ErrEmployeeNotFound) {
		t.Fatalf("expected no rows to map to ErrEmployeeNotFound")
	}

	other := errors.New("other")
	if translateEmployeePgError(other) != other {
		t.Fatalf("unexpected translation for generic error")
	}
}

func TestEmployeeRepository_FindByID(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewEmployeeRepository(mock)

	mock.ExpectQuery(`FROM empleados\s+WHERE id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows(employeeColumnNames).AddRow(employeeRowValues(7, "Lopez", "empleados/fotos/7.png")...))

	emp, err := repo.FindByID(context.Background(), 7)
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if emp.ID != 7 || emp.PaternalSurname != "Lopez" || emp.Photo != "empleados/fotos/7.png" {
		t.Fatalf("unexpected employee %+v", emp)
	}
	if employee.FormatDate(emp.BirthDate) != "1990-03-20" {
		t.Fatalf("unexpected birth date %v", emp.BirthDate)
	}

	mock.ExpectQuery(`FROM empleados\s+WHERE id = \$1`).
		WithArgs(int64(8)).
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.FindByID(context.Background(), 8); !errors.Is(err, employee.ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEmployeeRepository_FindByID_WrapsDriverErrors(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewEmployeeRepository(mock)
	boom := errors.New("connection reset")

	mock.ExpectQuery(`FROM empleados\s+WHERE id = \$1`).
		WithArgs(int64(9)).
		WillReturnError(boom)

	_, err = repo.FindByID(context.Background(), 9)
	if !errors.Is(err, boom) {
		t.Fatalf("expected driver error to be wrapped, got %v", err)
	}
	if !strings.Contains(err.Error(), "scan empleado") {
		t.Fatalf("expected wrap context, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEmployeeRepository_Create_NullPhoto(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewEmployeeRepository(mock)
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	input := &employee.Employee{
		EmployeeNumber:  "EMP-Lopez",
		FirstNames:      "Ana",
		PaternalSurname: "Lopez",
		MaternalSurname: "Núñez",
		BirthDate:       time.Date(1990, 3, 20, 15, 0, 0, 0, time.UTC),
		Gender:          "F",
		MaritalStatus:   "Soltera",
		CURP:            "CURPLopez",
		RFC:             "RFCLopez",
		NSS:             "NSSLopez",
		Phone:           "5512345678",
		Email:           "Lopez@example.com",
		Position:        "Analista",
		Department:      "Finanzas",
		HireDate:        time.Date(2020, 1, 6, 0, 0, 0, 0, time.UTC),
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	mock.ExpectQuery(`INSERT INTO empleados`).
		WithArgs(
			"EMP-Lopez", "Ana", "Lopez", "Núñez", time.Date(1990, 3, 20, 0, 0, 0, 0, time.UTC),
			"F", "Soltera", "CURPLopez", "RFCLopez", "NSSLopez", "5512345678", "Lopez@example.com",
			"Analista", "Finanzas", time.Date(2020, 1, 6, 0, 0, 0, 0, time.UTC), true, nil, now, now,
		).
		WillReturnRows(pgxmock.NewRows(employeeColumnNames).AddRow(employeeRowValues(1, "Lopez", nil)...))

	created, err := repo.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.ID != 1 || created.Photo != "" {
		t.Fatalf("unexpected employee %+v", created)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEmployeeRepository_List_WithFilters(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewEmployeeRepository(mock)
	active := true

	query := `(?s)` + regexp.QuoteMeta(`FROM empleados WHERE activo = $1 AND departamento = $2 AND (nombres ILIKE $3 OR apellido_paterno ILIKE $3`) +
		`.*` + regexp.QuoteMeta(`ORDER BY apellido_paterno DESC, id`) + `\s+LIMIT \$4\s+OFFSET \$5`

	rows := pgxmock.NewRows(employeeColumnNames).
		AddRow(employeeRowValues(3, "Ruiz", nil)...).
		AddRow(employeeRowValues(1, "Lopez", nil)...).
		AddRow(employeeRowValues(2, "Alba", nil)...)

	mock.ExpectQuery(query).
		WithArgs(true, "Finanzas", `%50\%%`, 3, 0).
		WillReturnRows(rows)

	employees, nextToken, err := repo.List(context.Background(), employee.ListEmployeesFilter{
		Active:     &active,
		Department: "Finanzas",
		Search:     "50%",
		OrderBy:    "apellido_paterno",
		Descending: true,
		Limit:      2,
		Offset:     0,
	})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}

	if len(employees) != 2 {
		t.Fatalf("expected 2 employees, got %d", len(employees))
	}
	if nextToken != "2" {
		t.Fatalf("expected next token '2', got %s", nextToken)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEmployeeRepository_List_RejectsUnknownOrdering(t *testing.T) {
	t.Parallel()

	repo := NewEmployeeRepository(nil)
	_, _, err := repo.List(context.Background(), employee.ListEmployeesFilter{OrderBy: "curp; DROP TABLE empleados", Limit: 10})
	if !errors.Is(err, employee.ErrInvalidOrdering) {
		t.Fatalf("expected ErrInvalidOrdering, got %v", err)
	}
}

func TestEmployeeRepository_FindConflicts(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewEmployeeRepository(mock)

	mock.ExpectQuery(`FROM empleados\s+WHERE \(num_empleado = \$1 OR`).
		WithArgs(nil, "CURP1", nil, nil, "ana@example.com", int64(4)).
		WillReturnRows(pgxmock.NewRows([]string{"num_empleado", "curp", "rfc", "nss", "email"}).
			AddRow(false, true, false, false, true))

	conflicts, err := repo.FindConflicts(context.Background(), employee.UniqueKeys{CURP: "CURP1", Email: "ana@example.com"}, 4)
	if err != nil {
		t.Fatalf("FindConflicts returned error: %v", err)
	}
	if len(conflicts) != 2 || conflicts[0] != "curp" || conflicts[1] != "email" {
		t.Fatalf("unexpected conflicts %v", conflicts)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEmployeeRepository_FindConflicts_AllKeys(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewEmployeeRepository(mock)

	mock.ExpectQuery(`FROM empleados\s+WHERE \(num_empleado = \$1 OR`).
		WithArgs("EMP-001", "CURP1", "RFC1", "12345678901", "ana@example.com", int64(0)).
		WillReturnRows(pgxmock.NewRows([]string{"num_empleado", "curp", "rfc", "nss", "email"}).
			AddRow(true, false, false, true, false))

	conflicts, err := repo.FindConflicts(context.Background(), employee.UniqueKeys{
		EmployeeNumber: "EMP-001",
		CURP:           "CURP1",
		RFC:            "RFC1",
		NSS:            "12345678901",
		Email:          "ana@example.com",
	}, 0)
	if err != nil {
		t.Fatalf("FindConflicts returned error: %v", err)
	}
	if len(conflicts) != 2 || conflicts[0] != "num_empleado" || conflicts[1] != "nss" {
		t.Fatalf("unexpected conflicts %v", conflicts)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEmployeeRepository_Delete_NotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewEmployeeRepository(mock)

	mock.ExpectExec(`DELETE FROM empleados WHERE id = \$1`).
		WithArgs(int64(9)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	if err := repo.Delete(context.Background(), 9); !errors.Is(err, employee.ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEmployeeRepository_Stats(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewEmployeeRepository(mock)
	asOf := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`count\(\*\) FILTER \(WHERE activo\)`).
		WithArgs(asOf).
		WillReturnRows(pgxmock.NewRows([]string{"total", "activos", "inactivos", "edad"}).AddRow(3, 2, 1, 32.333))
	mock.ExpectQuery(`SELECT departamento, count\(\*\) FROM empleados GROUP BY departamento`).
		WillReturnRows(pgxmock.NewRows([]string{"departamento", "count"}).AddRow("Finanzas", 2).AddRow("TI", 1))
	mock.ExpectQuery(`SELECT puesto, count\(\*\) FROM empleados GROUP BY puesto`).
		WillReturnRows(pgxmock.NewRows([]string{"puesto", "count"}).AddRow("Analista", 3))
	mock.ExpectQuery(`SELECT genero, count\(\*\) FROM empleados GROUP BY genero`).
		WillReturnRows(pgxmock.NewRows([]string{"genero", "count"}).AddRow("F", 2).AddRow("M", 1))

	d, err := repo.Stats(context.Background(), asOf)
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if d.Total != 3 || d.Active != 2 || d.Inactive != 1 || d.AverageAge != 32.333 {
		t.Fatalf("unexpected totals %+v", d)
	}
	if len(d.ByDepartment) != 2 || d.ByDepartment[0].Value != "Finanzas" || d.ByDepartment[0].Total != 2 {
		t.Fatalf("unexpected department counts %+v", d.ByDepartment)
	}
	if len(d.ByPosition) != 1 || len(d.ByGender) != 2 {
		t.Fatalf("unexpected group counts %+v %+v", d.ByPosition, d.ByGender)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
