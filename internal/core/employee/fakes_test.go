package employee

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ogurasousui/codex-grpc-rrhh/internal/core/audit"
	"github.com/ogurasousui/codex-grpc-rrhh/internal/core/authz"
)

type stubClock struct {
	now time.Time
}

func (s *stubClock) Now() time.Time {
	return s.now
}

type fakeEmployeeRepo struct {
	employees map[int64]*Employee
	sequence  int64
	ledger    *fakeAuditRepo
	deleteErr error
}

func newFakeEmployeeRepo(ledger *fakeAuditRepo) *fakeEmployeeRepo {
	return &fakeEmployeeRepo{employees: make(map[int64]*Employee), ledger: ledger}
}

func (r *fakeEmployeeRepo) Create(_ context.Context, e *Employee) (*Employee, error) {
	r.sequence++
	clone := e.clone()
	clone.ID = r.sequence
	r.employees[clone.ID] = clone
	return clone.clone(), nil
}

func (r *fakeEmployeeRepo) Update(_ context.Context, e *Employee) (*Employee, error) {
	if _, ok := r.employees[e.ID]; !ok {
		return nil, ErrEmployeeNotFound
	}
	r.employees[e.ID] = e.clone()
	return e.clone(), nil
}

func (r *fakeEmployeeRepo) Delete(_ context.Context, id int64) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.employees[id]; !ok {
		return ErrEmployeeNotFound
	}
	delete(r.employees, id)
	if r.ledger != nil {
		r.ledger.cascade(id)
	}
	return nil
}

func (r *fakeEmployeeRepo) FindByID(_ context.Context, id int64) (*Employee, error) {
	emp, ok := r.employees[id]
	if !ok {
		return nil, ErrEmployeeNotFound
	}
	return emp.clone(), nil
}

func (r *fakeEmployeeRepo) FindConflicts(_ context.Context, keys UniqueKeys, excludeID int64) ([]string, error) {
	seen := map[string]bool{}
	for _, emp := range r.employees {
		if emp.ID == excludeID {
			continue
		}
		if keys.EmployeeNumber != "" && emp.EmployeeNumber == keys.EmployeeNumber {
			seen["num_empleado"] = true
		}
		if keys.CURP != "" && emp.CURP == keys.CURP {
			seen["curp"] = true
		}
		if keys.RFC != "" && emp.RFC == keys.RFC {
			seen["rfc"] = true
		}
		if keys.NSS != "" && emp.NSS == keys.NSS {
			seen["nss"] = true
		}
		if keys.Email != "" && emp.Email == keys.Email {
			seen["email"] = true
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (r *fakeEmployeeRepo) sorted() []*Employee {
	out := make([]*Employee, 0, len(r.employees))
	for _, emp := range r.employees {
		out = append(out, emp.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fakeEmployeeRepo) List(_ context.Context, filter ListEmployeesFilter) ([]*Employee, string, error) {
	var filtered []*Employee
	for _, emp := range r.sorted() {
		if filter.Active != nil && emp.Active != *filter.Active {
			continue
		}
		if filter.Department != "" && emp.Department != filter.Department {
			continue
		}
		if filter.Position != "" && emp.Position != filter.Position {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(emp.FullName()+" "+emp.EmployeeNumber), strings.ToLower(filter.Search)) {
			continue
		}
		filtered = append(filtered, emp)
	}

	if filter.OrderBy == "apellido_paterno" {
		sort.SliceStable(filtered, func(i, j int) bool {
			if filter.Descending {
				return filtered[i].PaternalSurname > filtered[j].PaternalSurname
			}
			return filtered[i].PaternalSurname < filtered[j].PaternalSurname
		})
	}

	if filter.Offset > len(filtered) {
		return []*Employee{}, "", nil
	}
	end := filter.Offset + filter.Limit
	if end > len(filtered) {
		end = len(filtered)
	}
	next := ""
	if end < len(filtered) {
		next = strconv.Itoa(end)
	}
	return filtered[filter.Offset:end], next, nil
}

func (r *fakeEmployeeRepo) ListAll(_ context.Context) ([]*Employee, error) {
	return r.sorted(), nil
}

func (r *fakeEmployeeRepo) Stats(_ context.Context, asOf time.Time) (*Dashboard, error) {
	d := &Dashboard{}
	var ages int
	dept := map[string]int{}
	for _, emp := range r.sorted() {
		d.Total++
		if emp.Active {
			d.Active++
		} else {
			d.Inactive++
		}
		age := asOf.Year() - emp.BirthDate.Year()
		if asOf.YearDay() < emp.BirthDate.YearDay() {
			age--
		}
		ages += age
		dept[emp.Department]++
	}
	if d.Total > 0 {
		d.AverageAge = float64(ages) / float64(d.Total)
	}
	for name, n := range dept {
		d.ByDepartment = append(d.ByDepartment, GroupCount{Value: name, Total: n})
	}
	return d, nil
}

type fakeAuditRepo struct {
	entries         []*audit.Entry
	employeeEntries []*audit.EmployeeEntry
	failWith        error
}

func (r *fakeAuditRepo) AppendEntry(_ context.Context, e *audit.Entry) (*audit.Entry, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	clone := *e
	clone.ID = int64(len(r.entries) + 1)
	r.entries = append(r.entries, &clone)
	return &clone, nil
}

func (r *fakeAuditRepo) AppendEmployeeEntry(_ context.Context, e *audit.EmployeeEntry) (*audit.EmployeeEntry, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	clone := *e
	clone.ID = int64(len(r.employeeEntries) + 1)
	r.employeeEntries = append(r.employeeEntries, &clone)
	return &clone, nil
}

func (r *fakeAuditRepo) ListEntries(context.Context, audit.ListFilter) ([]*audit.Entry, string, error) {
	return nil, "", errors.New("not implemented")
}

func (r *fakeAuditRepo) ListEmployeeEntries(context.Context, int64, audit.ListFilter) ([]*audit.EmployeeEntry, string, error) {
	return nil, "", errors.New("not implemented")
}

func (r *fakeAuditRepo) CountEmployeeEntries(_ context.Context, employeeID int64) (int, error) {
	n := 0
	for _, e := range r.employeeEntries {
		if e.EmployeeID == employeeID {
			n++
		}
	}
	return n, nil
}

func (r *fakeAuditRepo) cascade(employeeID int64) {
	kept := r.employeeEntries[:0]
	for _, e := range r.employeeEntries {
		if e.EmployeeID != employeeID {
			kept = append(kept, e)
		}
	}
	r.employeeEntries = kept
}

type fixture struct {
	clock  *stubClock
	repo   *fakeEmployeeRepo
	ledger *fakeAuditRepo
	svc    *Service
}

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func newFixture() *fixture {
	clock := &stubClock{now: testNow}
	ledger := &fakeAuditRepo{}
	repo := newFakeEmployeeRepo(ledger)
	recorder := audit.NewRecorder(ledger, clock, nil, nil)
	svc := NewService(repo, recorder, audit.NewService(ledger), clock, nil)
	return &fixture{clock: clock, repo: repo, ledger: ledger, svc: svc}
}

// seed はバリデーションと台帳を経由せずに社員を登録します。
func (f *fixture) seed(mutate func(*Employee)) *Employee {
	in := validInput(rrhh())
	emp := in.toEmployee()
	if mutate != nil {
		mutate(emp)
	}
	created, _ := f.repo.Create(context.Background(), emp)
	return created
}

func rrhh() authz.Principal {
	return authz.Principal{AccountID: 10, Username: "rrhh", Authenticated: true, Groups: []string{authz.GroupRRHH}}
}

func gerente() authz.Principal {
	return authz.Principal{AccountID: 11, Username: "gerente", Authenticated: true, Groups: []string{authz.GroupGerente}}
}

func superuser() authz.Principal {
	return authz.Principal{AccountID: 1, Username: "root", Authenticated: true, Superuser: true}
}

func usuario() authz.Principal {
	return authz.Principal{AccountID: 12, Username: "usuario", Authenticated: true, Groups: []string{authz.GroupUsuario}}
}

func validInput(p authz.Principal) CreateEmployeeInput {
	return CreateEmployeeInput{
		Principal:       p,
		EmployeeNumber:  "EMP-001",
		FirstNames:      "Ana María",
		PaternalSurname: "López",
		MaternalSurname: "Núñez",
		BirthDate:       time.Date(1990, 3, 20, 0, 0, 0, 0, time.UTC),
		Gender:          "F",
		MaritalStatus:   "Soltera",
		CURP:            "LONA900320MDFPXN01",
		RFC:             "LONA900320AB1",
		NSS:             "12345678901",
		Phone:           "5512345678",
		Email:           "ana.lopez@example.com",
		Position:        "Analista",
		Department:      "Finanzas",
		HireDate:        time.Date(2020, 1, 6, 0, 0, 0, 0, time.UTC),
	}
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
