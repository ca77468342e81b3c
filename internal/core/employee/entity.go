package employee

import (
	"strconv"
	"time"

	"github.com/ogurasousui/codex-grpc-rrhh/internal/core/audit"
)

// AuditFieldsVersion は AuditFields が返すフィールド一覧のバージョンです。
// フィールドを追加・削除した場合は値を上げてください。
const AuditFieldsVersion = 1

const dateLayout = "2006-01-02"

// Employee は社員エンティティです。json タグはフィールドの公開名を表します。
type Employee struct {
	ID              int64     `json:"id"`
	EmployeeNumber  string    `json:"num_empleado" validate:"required,max=20"`
	FirstNames      string    `json:"nombres" validate:"required,max=100"`
	PaternalSurname string    `json:"apellido_paterno" validate:"required,max=100"`
	MaternalSurname string    `json:"apellido_materno" validate:"required,max=100"`
	BirthDate       time.Time `json:"fecha_nacimiento" validate:"required"`
	Gender          string    `json:"genero" validate:"required,max=10"`
	MaritalStatus   string    `json:"estado_civil" validate:"required,max=15"`
	CURP            string    `json:"curp" validate:"required,max=18"`
	RFC             string    `json:"rfc" validate:"required,max=13"`
	NSS             string    `json:"nss" validate:"required,max=15"`
	Phone           string    `json:"telefono" validate:"required,phone10"`
	Email           string    `json:"email" validate:"required,max=254,email"`
	Position        string    `json:"puesto" validate:"required,max=100"`
	Department      string    `json:"departamento" validate:"required,max=100"`
	HireDate        time.Time `json:"fecha_ingreso" validate:"required"`
	Active          bool      `json:"activo"`
	Photo           string    `json:"foto" validate:"max=255"`
	CreatedAt       time.Time `json:"-"`
	UpdatedAt       time.Time `json:"-"`
}

// FullName は氏名を返します。
func (e *Employee) FullName() string {
	return e.FirstNames + " " + e.PaternalSurname + " " + e.MaternalSurname
}

// AuditModel は audit.Auditable を実装します。
func (e *Employee) AuditModel() string {
	return audit.ModelEmpleado
}

// AuditID は audit.Auditable を実装します。
func (e *Employee) AuditID() int64 {
	return e.ID
}

// AuditFields は台帳に記録するフィールドを文字列化して返します。
func (e *Employee) AuditFields() []audit.Field {
	return []audit.Field{
		{Name: "id", Value: strconv.FormatInt(e.ID, 10)},
		{Name: "num_empleado", Value: e.EmployeeNumber},
		{Name: "nombres", Value: e.FirstNames},
		{Name: "apellido_paterno", Value: e.PaternalSurname},
		{Name: "apellido_materno", Value: e.MaternalSurname},
		{Name: "fecha_nacimiento", Value: FormatDate(e.BirthDate)},
		{Name: "genero", Value: e.Gender},
		{Name: "estado_civil", Value: e.MaritalStatus},
		{Name: "curp", Value: e.CURP},
		{Name: "rfc", Value: e.RFC},
		{Name: "nss", Value: e.NSS},
		{Name: "telefono", Value: e.Phone},
		{Name: "email", Value: e.Email},
		{Name: "puesto", Value: e.Position},
		{Name: "departamento", Value: e.Department},
		{Name: "fecha_ingreso", Value: FormatDate(e.HireDate)},
		{Name: "activo", Value: strconv.FormatBool(e.Active)},
		{Name: "foto", Value: e.Photo},
	}
}

// FormatDate は日付を YYYY-MM-DD 形式に変換します。ゼロ値は空文字になります。
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// ParseDate は YYYY-MM-DD 形式の日付を解析します。
func ParseDate(raw string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, raw, time.UTC)
}

// Dashboard は社員の集計結果です。
type Dashboard struct {
	Total        int
	Active       int
	Inactive     int
	AverageAge   float64
	ByDepartment []GroupCount
	ByPosition   []GroupCount
	ByGender     []GroupCount
}

// GroupCount はグループ別の件数です。
type GroupCount struct {
	Value string
	Total int
}
