package server

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

type fakeBitacora struct{}

func (fakeBitacora) ListBitacora(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"echo": req.GetFields()["page_token"].GetStringValue()})
}

func (fakeBitacora) ListBitacoraEmpleado(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.NotFound, "missing")
}

func TestServer_ServesRegisteredServices(t *testing.T) {
	t.Parallel()

	lis := bufconn.Listen(1 << 20)
	srv := New("bufconn", Services{Audit: fakeBitacora{}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Serve returned error: %v", err)
		}
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	defer conn.Close()

	callCtx, callCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer callCancel()

	req, _ := structpb.NewStruct(map[string]any{"page_token": "20"})
	out := new(structpb.Struct)
	if err := conn.Invoke(callCtx, "/rrhh.v1.BitacoraService/ListBitacora", req, out); err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	if out.GetFields()["echo"].GetStringValue() != "20" {
		t.Errorf("unexpected response: %v", out)
	}

	err = conn.Invoke(callCtx, "/rrhh.v1.BitacoraService/ListBitacoraEmpleado", req, new(structpb.Struct))
	if status.Code(err) != codes.NotFound {
		t.Errorf("expected NotFound, got %v", err)
	}

	err = conn.Invoke(callCtx, "/rrhh.v1.EmpleadoService/GetEmployee", req, new(structpb.Struct))
	if status.Code(err) != codes.Unimplemented {
		t.Errorf("expected Unimplemented for unregistered service, got %v", err)
	}
}

func TestHTTPServer_ShutsDownOnCancel(t *testing.T) {
	t.Parallel()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	srv := NewHTTP(lis.Addr().String(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()

	resp, err := http.Get("http://" + lis.Addr().String() + "/")
	if err != nil {
		t.Fatalf("GET returned error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("unexpected status %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
