package excel

import (
	"context"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/ogurasousui/codex-grpc-rrhh/internal/core/employee"
)

const (
	sheetName   = "Empleados"
	contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var headers = []string{
	"ID", "Número de empleado", "Nombres", "Apellido paterno", "Apellido materno",
	"Fecha de nacimiento", "Género", "Estado civil", "CURP", "RFC", "NSS", "Teléfono",
	"Email", "Puesto", "Departamento", "Fecha de ingreso", "Activo",
}

// Renderer は社員一覧を xlsx ブックに変換します。
type Renderer struct{}

// NewRenderer は Renderer を生成します。
func NewRenderer() *Renderer {
	return &Renderer{}
}

// ContentType は employee.Renderer を実装します。
func (*Renderer) ContentType() string { return contentType }

// Extension は employee.Renderer を実装します。
func (*Renderer) Extension() string { return ".xlsx" }

// Render は 1 行目に見出し、以降に社員を 1 行ずつ書き込みます。
// 列幅は各列の最長値 + 2 文字です。
func (r *Renderer) Render(ctx context.Context, employees []*employee.Employee, _ employee.RenderContext) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("excel: rename sheet: %w", err)
	}

	widths := make([]int, len(headers))
	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
		widths[i] = utf8.RuneCountInString(h)
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("excel: write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("excel: header style: %w", err)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheetName, "A1", lastHeader, bold); err != nil {
		return nil, fmt.Errorf("excel: apply header style: %w", err)
	}

	for i, e := range employees {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		values := rowValues(e)
		row := make([]any, len(values))
		for c, v := range values {
			row[c] = v
			if n := utf8.RuneCountInString(v); n > widths[c] {
				widths[c] = n
			}
		}
		row[0] = e.ID

		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("excel: write row %d: %w", e.ID, err)
		}
	}

	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheetName, col, col, float64(w+2)); err != nil {
			return nil, fmt.Errorf("excel: column width %s: %w", col, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("excel: write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func rowValues(e *employee.Employee) []string {
	active := "No"
	if e.Active {
		active = "Sí"
	}
	return []string{
		strconv.FormatInt(e.ID, 10),
		e.EmployeeNumber,
		e.FirstNames,
		e.PaternalSurname,
		e.MaternalSurname,
		employee.FormatDate(e.BirthDate),
		e.Gender,
		e.MaritalStatus,
		e.CURP,
		e.RFC,
		e.NSS,
		e.Phone,
		e.Email,
		e.Position,
		e.Department,
		employee.FormatDate(e.HireDate),
		active,
	}
}
