package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ogurasousui/codex-grpc-rrhh/internal/core/audit"
	"github.com/ogurasousui/codex-grpc-rrhh/internal/core/authz"
)

const bitacoraServiceName = "rrhh.v1.BitacoraService"

// BitacoraServiceServer は rrhh.v1.BitacoraService のサーバーインターフェースです。
type BitacoraServiceServer interface {
	ListBitacora(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListBitacoraEmpleado(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// BitacoraServiceDesc は rrhh.v1.BitacoraService のサービス定義です。
var BitacoraServiceDesc = grpc.ServiceDesc{
	ServiceName: bitacoraServiceName,
	HandlerType: (*BitacoraServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(bitacoraServiceName, "ListBitacora", BitacoraServiceServer.ListBitacora),
		unaryMethod(bitacoraServiceName, "ListBitacoraEmpleado", BitacoraServiceServer.ListBitacoraEmpleado),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rrhh/v1/bitacora.proto",
}

// RegisterBitacoraServiceServer はサービスをサーバーに登録します。
func RegisterBitacoraServiceServer(s grpc.ServiceRegistrar, srv BitacoraServiceServer) {
	s.RegisterService(&BitacoraServiceDesc, srv)
}

// AuditLedger は台帳の参照ユースケースです。
type AuditLedger interface {
	ListEntries(ctx context.Context, in audit.ListEntriesInput) (*audit.ListEntriesResult, error)
	ListEmployeeEntries(ctx context.Context, in audit.ListEmployeeEntriesInput) (*audit.ListEmployeeEntriesResult, error)
}

// AuditGrpcHandler は BitacoraService の gRPC 実装です。
type AuditGrpcHandler struct {
	ledger AuditLedger
}

var _ BitacoraServiceServer = (*AuditGrpcHandler)(nil)

// NewAuditGrpcHandler は AuditGrpcHandler を生成します。
func NewAuditGrpcHandler(ledger AuditLedger) *AuditGrpcHandler {
	return &AuditGrpcHandler{ledger: ledger}
}

// ListBitacora は全体台帳を新しい順に返します。
func (h *AuditGrpcHandler) ListBitacora(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	d := newDecoder(req)
	in := audit.ListEntriesInput{
		Principal: authz.PrincipalFromContext(ctx),
		PageSize:  int(d.integer("page_size")),
		PageToken: d.str("page_token"),
	}
	if err := d.err(); err != nil {
		return nil, err
	}

	result, err := h.ledger.ListEntries(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}

	items := make([]map[string]any, 0, len(result.Entries))
	for _, e := range result.Entries {
		items = append(items, map[string]any{
			"id":              e.ID,
			"usuario":         actorValue(e.Actor),
			"modelo_afectado": e.Model,
			"objeto_id":       e.ObjectID,
			"accion":          e.Action,
			"cambios":         e.Changes,
			"fecha":           formatTimestamp(e.CreatedAt),
		})
	}

	return toStruct(map[string]any{
		"entradas":        toStructList(items),
		"next_page_token": result.NextPageToken,
	})
}

// ListBitacoraEmpleado は社員別台帳を新しい順に返します。
func (h *AuditGrpcHandler) ListBitacoraEmpleado(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	d := newDecoder(req)
	in := audit.ListEmployeeEntriesInput{
		Principal:  authz.PrincipalFromContext(ctx),
		EmployeeID: d.integer("empleado_id"),
		PageSize:   int(d.integer("page_size")),
		PageToken:  d.str("page_token"),
	}
	if err := d.err(); err != nil {
		return nil, err
	}

	result, err := h.ledger.ListEmployeeEntries(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}

	items := make([]map[string]any, 0, len(result.Entries))
	for _, e := range result.Entries {
		items = append(items, map[string]any{
			"id":       e.ID,
			"accion":   string(e.Action),
			"fecha":    formatTimestamp(e.CreatedAt),
			"usuario":  actorValue(e.Actor),
			"detalles": e.Details,
		})
	}

	return toStruct(map[string]any{
		"entradas":        toStructList(items),
		"next_page_token": result.NextPageToken,
	})
}

// actorValue は操作者のユーザー名を返します。操作者がいない場合は null です。
func actorValue(a *audit.Actor) any {
	if a == nil {
		return nil
	}
	return a.Username
}
