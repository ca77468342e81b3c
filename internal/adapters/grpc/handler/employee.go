package handler

import (
	"context"
	"encoding/base64"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ogurasousui/codex-grpc-rrhh/internal/core/audit"
	"github.com/ogurasousui/codex-grpc-rrhh/internal/core/authz"
	"github.com/ogurasousui/codex-grpc-rrhh/internal/core/employee"
)

const empleadoServiceName = "rrhh.v1.EmpleadoService"

// EmpleadoServiceServer は rrhh.v1.EmpleadoService のサーバーインターフェースです。
type EmpleadoServiceServer interface {
	ListEmployees(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateEmployee(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetEmployee(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateEmployee(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteEmployee(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetDashboard(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExportEmployees(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// EmpleadoServiceDesc は rrhh.v1.EmpleadoService のサービス定義です。
var EmpleadoServiceDesc = grpc.ServiceDesc{
	ServiceName: empleadoServiceName,
	HandlerType: (*EmpleadoServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(empleadoServiceName, "ListEmployees", EmpleadoServiceServer.ListEmployees),
		unaryMethod(empleadoServiceName, "CreateEmployee", EmpleadoServiceServer.CreateEmployee),
		unaryMethod(empleadoServiceName, "GetEmployee", EmpleadoServiceServer.GetEmployee),
		unaryMethod(empleadoServiceName, "UpdateEmployee", EmpleadoServiceServer.UpdateEmployee),
		unaryMethod(empleadoServiceName, "DeleteEmployee", EmpleadoServiceServer.DeleteEmployee),
		unaryMethod(empleadoServiceName, "GetDashboard", EmpleadoServiceServer.GetDashboard),
		unaryMethod(empleadoServiceName, "ExportEmployees", EmpleadoServiceServer.ExportEmployees),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rrhh/v1/empleado.proto",
}

// RegisterEmpleadoServiceServer はサービスをサーバーに登録します。
func RegisterEmpleadoServiceServer(s grpc.ServiceRegistrar, srv EmpleadoServiceServer) {
	s.RegisterService(&EmpleadoServiceDesc, srv)
}

// EmployeeExporter は社員一覧の帳票出力を行います。
type EmployeeExporter interface {
	Export(ctx context.Context, in employee.ExportInput) (*employee.Document, error)
}

// EmployeeGrpcHandler は EmpleadoService の gRPC 実装です。
type EmployeeGrpcHandler struct {
	svc      employee.UseCase
	exporter EmployeeExporter
}

var _ EmpleadoServiceServer = (*EmployeeGrpcHandler)(nil)

// NewEmployeeGrpcHandler は EmployeeGrpcHandler を生成します。
func NewEmployeeGrpcHandler(svc employee.UseCase, exporter EmployeeExporter) *EmployeeGrpcHandler {
	return &EmployeeGrpcHandler{svc: svc, exporter: exporter}
}

// CreateEmployee は社員を作成します。
func (h *EmployeeGrpcHandler) CreateEmployee(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	d := newDecoder(req)
	in := employee.CreateEmployeeInput{
		Principal:       authz.PrincipalFromContext(ctx),
		EmployeeNumber:  d.str("num_empleado"),
		FirstNames:      d.str("nombres"),
		PaternalSurname: d.str("apellido_paterno"),
		MaternalSurname: d.str("apellido_materno"),
		BirthDate:       d.date("fecha_nacimiento"),
		Gender:          d.str("genero"),
		MaritalStatus:   d.str("estado_civil"),
		CURP:            d.str("curp"),
		RFC:             d.str("rfc"),
		NSS:             d.str("nss"),
		Phone:           d.str("telefono"),
		Email:           d.str("email"),
		Position:        d.str("puesto"),
		Department:      d.str("departamento"),
		HireDate:        d.date("fecha_ingreso"),
		Active:          d.boolPtr("activo"),
		Photo:           d.str("foto"),
	}
	if err := d.err(); err != nil {
		return nil, err
	}

	created, err := h.svc.CreateEmployee(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}

	return toStruct(employeeValue(created))
}

// UpdateEmployee は指定されたフィールドのみ更新します。
func (h *EmployeeGrpcHandler) UpdateEmployee(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	d := newDecoder(req)
	in := employee.UpdateEmployeeInput{
		Principal:       authz.PrincipalFromContext(ctx),
		ID:              d.integer("id"),
		EmployeeNumber:  d.stringPtr("num_empleado"),
		FirstNames:      d.stringPtr("nombres"),
		PaternalSurname: d.stringPtr("apellido_paterno"),
		MaternalSurname: d.stringPtr("apellido_materno"),
		BirthDate:       d.datePtr("fecha_nacimiento"),
		Gender:          d.stringPtr("genero"),
		MaritalStatus:   d.stringPtr("estado_civil"),
		CURP:            d.stringPtr("curp"),
		RFC:             d.stringPtr("rfc"),
		NSS:             d.stringPtr("nss"),
		Phone:           d.stringPtr("telefono"),
		Email:           d.stringPtr("email"),
		Position:        d.stringPtr("puesto"),
		Department:      d.stringPtr("departamento"),
		HireDate:        d.datePtr("fecha_ingreso"),
		Active:          d.boolPtr("activo"),
		Photo:           d.stringPtr("foto"),
	}
	if err := d.err(); err != nil {
		return nil, err
	}

	updated, err := h.svc.UpdateEmployee(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}

	return toStruct(employeeValue(updated))
}

// DeleteEmployee は社員を削除します。
func (h *EmployeeGrpcHandler) DeleteEmployee(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	d := newDecoder(req)
	id := d.integer("id")
	if err := d.err(); err != nil {
		return nil, err
	}

	if err := h.svc.DeleteEmployee(ctx, employee.DeleteEmployeeInput{Principal: authz.PrincipalFromContext(ctx), ID: id}); err != nil {
		return nil, toStatusError(err)
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{}}, nil
}

// GetEmployee は社員を取得します。
func (h *EmployeeGrpcHandler) GetEmployee(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	d := newDecoder(req)
	id := d.integer("id")
	if err := d.err(); err != nil {
		return nil, err
	}

	found, err := h.svc.GetEmployee(ctx, employee.GetEmployeeInput{Principal: authz.PrincipalFromContext(ctx), ID: id})
	if err != nil {
		return nil, toStatusError(err)
	}

	return toStruct(employeeValue(found))
}

// ListEmployees は社員の一覧を取得します。
func (h *EmployeeGrpcHandler) ListEmployees(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	d := newDecoder(req)
	in := employee.ListEmployeesInput{
		Principal:     authz.PrincipalFromContext(ctx),
		PageSize:      int(d.integer("page_size")),
		PageToken:     d.str("page_token"),
		Active:        d.boolPtr("activo"),
		Position:      d.str("puesto"),
		Department:    d.str("departamento"),
		Gender:        d.str("genero"),
		MaritalStatus: d.str("estado_civil"),
		HireDate:      d.datePtr("fecha_ingreso"),
		Search:        d.str("search"),
		Ordering:      d.str("ordering"),
	}
	if err := d.err(); err != nil {
		return nil, err
	}

	result, err := h.svc.ListEmployees(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}

	items := make([]map[string]any, 0, len(result.Employees))
	for _, emp := range result.Employees {
		items = append(items, employeeValue(emp))
	}

	return toStruct(map[string]any{
		"empleados":       toStructList(items),
		"next_page_token": result.NextPageToken,
	})
}

// GetDashboard は社員の集計を返します。
func (h *EmployeeGrpcHandler) GetDashboard(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	dash, err := h.svc.GetDashboard(ctx, employee.GetDashboardInput{Principal: authz.PrincipalFromContext(ctx)})
	if err != nil {
		return nil, toStatusError(err)
	}

	return toStruct(map[string]any{
		"total_empleados":  dash.Total,
		"activos":          dash.Active,
		"inactivos":        dash.Inactive,
		"edad_promedio":    dash.AverageAge,
		"por_departamento": groupValues("departamento", dash.ByDepartment),
		"por_puesto":       groupValues("puesto", dash.ByPosition),
		"por_genero":       groupValues("genero", dash.ByGender),
	})
}

// ExportEmployees は全社員を指定形式で出力し、内容を base64 で返します。
func (h *EmployeeGrpcHandler) ExportEmployees(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	d := newDecoder(req)
	format := d.str("formato")
	if err := d.err(); err != nil {
		return nil, err
	}

	kind, ok := ParseExportKind(format)
	if !ok {
		return nil, toStatusError(employee.ErrUnsupportedExport)
	}

	doc, err := h.exporter.Export(ctx, employee.ExportInput{Principal: authz.PrincipalFromContext(ctx), Kind: kind})
	if err != nil {
		return nil, toStatusError(err)
	}

	return toStruct(map[string]any{
		"filename":     doc.Filename,
		"content_type": doc.ContentType,
		"content":      base64.StdEncoding.EncodeToString(doc.Content),
	})
}

// ParseExportKind は "excel" / "pdf" を大文字小文字を区別せずに解釈します。
func ParseExportKind(raw string) (audit.ExportKind, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "excel", "xlsx":
		return audit.ExportExcel, true
	case "pdf":
		return audit.ExportPDF, true
	default:
		return "", false
	}
}

func employeeValue(e *employee.Employee) map[string]any {
	if e == nil {
		return map[string]any{}
	}
	return map[string]any{
		"id":               e.ID,
		"num_empleado":     e.EmployeeNumber,
		"nombres":          e.FirstNames,
		"apellido_paterno": e.PaternalSurname,
		"apellido_materno": e.MaternalSurname,
		"nombre_completo":  e.FullName(),
		"fecha_nacimiento": employee.FormatDate(e.BirthDate),
		"genero":           e.Gender,
		"estado_civil":     e.MaritalStatus,
		"curp":             e.CURP,
		"rfc":              e.RFC,
		"nss":              e.NSS,
		"telefono":         e.Phone,
		"email":            e.Email,
		"puesto":           e.Position,
		"departamento":     e.Department,
		"fecha_ingreso":    employee.FormatDate(e.HireDate),
		"activo":           e.Active,
		"foto":             e.Photo,
	}
}

func groupValues(key string, groups []employee.GroupCount) []any {
	out := make([]any, 0, len(groups))
	for _, g := range groups {
		out = append(out, map[string]any{key: g.Value, "total": g.Total})
	}
	return out
}
