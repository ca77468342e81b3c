package handler

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ogurasousui/codex-grpc-rrhh/internal/core/audit"
	"github.com/ogurasousui/codex-grpc-rrhh/internal/core/authz"
)

type stubLedger struct {
	entriesInput audit.ListEntriesInput
	entriesOut   *audit.ListEntriesResult

	employeeInput audit.ListEmployeeEntriesInput
	employeeOut   *audit.ListEmployeeEntriesResult

	err error
}

func (s *stubLedger) ListEntries(ctx context.Context, in audit.ListEntriesInput) (*audit.ListEntriesResult, error) {
	s.entriesInput = in
	return s.entriesOut, s.err
}

func (s *stubLedger) ListEmployeeEntries(ctx context.Context, in audit.ListEmployeeEntriesInput) (*audit.ListEmployeeEntriesResult, error) {
	s.employeeInput = in
	return s.employeeOut, s.err
}

var loggedAt = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func TestAuditGrpcHandler_ListBitacora(t *testing.T) {
	t.Parallel()

	stub := &stubLedger{entriesOut: &audit.ListEntriesResult{
		Entries: []*audit.Entry{
			{ID: 2, Actor: nil, Model: audit.ModelEmpleado, ObjectID: 0, Action: "Intento fallido de exportación a PDF", Changes: "{}", CreatedAt: loggedAt},
			{ID: 1, Actor: &audit.Actor{AccountID: 10, Username: "rrhh"}, Model: audit.ModelEmpleado, ObjectID: 5, Action: "CREACIÓN", Changes: `{"id": "5"}`, CreatedAt: loggedAt},
		},
		NextPageToken: "2",
	}}
	h := NewAuditGrpcHandler(stub)

	resp, err := h.ListBitacora(rrhhContext(), mustStruct(t, map[string]any{"page_size": float64(2)}))
	if err != nil {
		t.Fatalf("ListBitacora returned error: %v", err)
	}
	if stub.entriesInput.PageSize != 2 || stub.entriesInput.Principal.AccountID != 10 {
		t.Errorf("unexpected input: %+v", stub.entriesInput)
	}

	entries := resp.GetFields()["entradas"].GetListValue().GetValues()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	anonymous := entries[0].GetStructValue().GetFields()
	if _, isNull := anonymous["usuario"].GetKind().(*structpb.Value_NullValue); !isNull {
		t.Errorf("expected null usuario for missing actor, got %v", anonymous["usuario"])
	}
	created := entries[1].GetStructValue().GetFields()
	if created["usuario"].GetStringValue() != "rrhh" || created["objeto_id"].GetNumberValue() != 5 {
		t.Errorf("unexpected entry: %v", created)
	}
	if created["fecha"].GetStringValue() != "2024-06-15T12:00:00Z" {
		t.Errorf("unexpected fecha %v", created["fecha"])
	}
}

func TestAuditGrpcHandler_ListBitacoraEmpleado(t *testing.T) {
	t.Parallel()

	stub := &stubLedger{employeeOut: &audit.ListEmployeeEntriesResult{
		Entries: []*audit.EmployeeEntry{
			{ID: 3, EmployeeID: 5, Actor: &audit.Actor{AccountID: 11, Username: "gerente"}, Action: audit.ActionEdit, Details: "INACTIVACIÓN\nCambio detectado:\n{}", CreatedAt: loggedAt},
		},
	}}
	h := NewAuditGrpcHandler(stub)

	resp, err := h.ListBitacoraEmpleado(rrhhContext(), mustStruct(t, map[string]any{"empleado_id": float64(5)}))
	if err != nil {
		t.Fatalf("ListBitacoraEmpleado returned error: %v", err)
	}
	if stub.employeeInput.EmployeeID != 5 {
		t.Errorf("unexpected employee id %d", stub.employeeInput.EmployeeID)
	}

	entry := resp.GetFields()["entradas"].GetListValue().GetValues()[0].GetStructValue().GetFields()
	if entry["accion"].GetStringValue() != "EDICIÓN" || entry["usuario"].GetStringValue() != "gerente" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestAuditGrpcHandler_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		code codes.Code
	}{
		{name: "anonymous", err: authz.ErrUnauthenticated, code: codes.Unauthenticated},
		{name: "page size", err: audit.ErrInvalidPageSize, code: codes.InvalidArgument},
		{name: "page token", err: audit.ErrInvalidPageToken, code: codes.InvalidArgument},
		{name: "employee id", err: audit.ErrInvalidEmployeeID, code: codes.InvalidArgument},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := NewAuditGrpcHandler(&stubLedger{err: tt.err})
			_, err := h.ListBitacoraEmpleado(context.Background(), mustStruct(t, map[string]any{"empleado_id": float64(1)}))
			if status.Code(err) != tt.code {
				t.Fatalf("expected %v, got %v", tt.code, err)
			}
		})
	}
}
