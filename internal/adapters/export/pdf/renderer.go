package pdf

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/ogurasousui/codex-grpc-rrhh/internal/core/employee"
)

const contentType = "application/pdf"

type column struct {
	title string
	width float64
	value func(*employee.Employee) string
}

// A4 横向きの印字幅 (277mm) に収まる列構成です。
var columns = []column{
	{title: "Núm.", width: 22, value: func(e *employee.Employee) string { return e.EmployeeNumber }},
	{title: "Nombre", width: 62, value: func(e *employee.Employee) string { return e.FullName() }},
	{title: "CURP", width: 42, value: func(e *employee.Employee) string { return e.CURP }},
	{title: "RFC", width: 30, value: func(e *employee.Employee) string { return e.RFC }},
	{title: "Puesto", width: 40, value: func(e *employee.Employee) string { return e.Position }},
	{title: "Departamento", width: 40, value: func(e *employee.Employee) string { return e.Department }},
	{title: "Ingreso", width: 24, value: func(e *employee.Employee) string { return employee.FormatDate(e.HireDate) }},
	{title: "Activo", width: 15, value: func(e *employee.Employee) string {
		if e.Active {
			return "Sí"
		}
		return "No"
	}},
}

// Renderer は社員一覧を PDF の表に変換します。
type Renderer struct{}

// NewRenderer は Renderer を生成します。
func NewRenderer() *Renderer {
	return &Renderer{}
}

// ContentType は employee.Renderer を実装します。
func (*Renderer) ContentType() string { return contentType }

// Extension は employee.Renderer を実装します。
func (*Renderer) Extension() string { return ".pdf" }

// Render は会社名と生成日時を見出しに置き、社員を表形式で出力します。
func (r *Renderer) Render(ctx context.Context, employees []*employee.Employee, rc employee.RenderContext) ([]byte, error) {
	doc := fpdf.New("L", "mm", "A4", "")
	doc.SetCreationDate(rc.GeneratedAt)
	doc.SetModificationDate(rc.GeneratedAt)
	doc.SetTitle("Listado de empleados", true)
	doc.SetAuthor(rc.CompanyName, true)

	tr := doc.UnicodeTranslatorFromDescriptor("")

	doc.SetHeaderFunc(func() {
		doc.SetFont("Helvetica", "B", 14)
		doc.CellFormat(0, 8, tr(rc.CompanyName), "", 1, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 10)
		doc.CellFormat(140, 6, tr("Listado de empleados"), "", 0, "L", false, 0, "")
		doc.CellFormat(0, 6, tr("Generado: "+rc.GeneratedAt.Format("02/01/2006 15:04")), "", 1, "R", false, 0, "")
		doc.Ln(2)

		doc.SetFont("Helvetica", "B", 9)
		doc.SetFillColor(220, 220, 220)
		for _, c := range columns {
			doc.CellFormat(c.width, 7, tr(c.title), "1", 0, "C", true, 0, "")
		}
		doc.Ln(-1)
	})
	doc.SetFooterFunc(func() {
		doc.SetY(-12)
		doc.SetFont("Helvetica", "I", 8)
		doc.CellFormat(0, 8, tr(fmt.Sprintf("Página %d", doc.PageNo())), "", 0, "C", false, 0, "")
	})

	doc.AddPage()
	doc.SetFont("Helvetica", "", 9)

	for _, e := range employees {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, c := range columns {
			doc.CellFormat(c.width, 6, fit(doc, tr(c.value(e)), c.width), "1", 0, "L", false, 0, "")
		}
		doc.Ln(-1)
	}

	if len(employees) == 0 {
		doc.CellFormat(0, 8, tr("Sin empleados registrados."), "", 1, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: write document: %w", err)
	}
	return buf.Bytes(), nil
}

// fit はセル幅に収まるまで末尾を切り詰めます。
func fit(doc *fpdf.Fpdf, text string, width float64) string {
	limit := width - 2
	if doc.GetStringWidth(text) <= limit {
		return text
	}
	b := []byte(text)
	for len(b) > 0 && doc.GetStringWidth(string(b)+"...") > limit {
		b = b[:len(b)-1]
	}
	return string(b) + "..."
}
