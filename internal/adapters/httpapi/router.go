package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/ogurasousui/codex-grpc-rrhh/internal/core/audit"
	"github.com/ogurasousui/codex-grpc-rrhh/internal/core/authz"
	"github.com/ogurasousui/codex-grpc-rrhh/internal/core/employee"
	"github.com/ogurasousui/codex-grpc-rrhh/internal/platform/logging"
)

// Authenticator は Authorization ヘッダーから Principal を解決します。
type Authenticator interface {
	Authenticate(ctx context.Context, header string) (authz.Principal, error)
}

// EmployeeExporter は社員一覧の帳票出力を行います。
type EmployeeExporter interface {
	Export(ctx context.Context, in employee.ExportInput) (*employee.Document, error)
}

// Deps はルーターの依存関係です。
type Deps struct {
	Logger   logrus.FieldLogger
	Auth     Authenticator
	Exporter EmployeeExporter
	Metrics  http.Handler
}

// NewRouter は帳票出力・メトリクス・ヘルスチェックのルートを持つ chi ルーターを返します。
func NewRouter(d Deps) http.Handler {
	h := &handler{logger: d.Logger, auth: d.Auth, exporter: d.Exporter}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.accessLog)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)
		r.Get("/empleados/exportar-excel/", h.export(audit.ExportExcel, "attachment"))
		r.Get("/empleados/export/pdf/", h.export(audit.ExportPDF, "inline"))
	})

	return r
}

type handler struct {
	logger   logrus.FieldLogger
	auth     Authenticator
	exporter EmployeeExporter
}

func (h *handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		entry := logging.FromContext(r.Context(), h.logger).WithFields(logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
		})

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(logging.WithLogger(r.Context(), entry)))

		entry.WithFields(logrus.Fields{
			"status":   ww.Status(),
			"bytes":    ww.BytesWritten(),
			"duration": time.Since(start).String(),
		}).Info("request completed")
	})
}

func (h *handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		principal, err := h.auth.Authenticate(ctx, r.Header.Get("Authorization"))
		if err != nil {
			logging.FromContext(ctx, h.logger).WithError(err).Error("resolve principal failed")
			writeError(w, http.StatusInternalServerError, "Error interno del servidor.")
			return
		}
		next.ServeHTTP(w, r.WithContext(authz.WithPrincipal(ctx, principal)))
	})
}

func (h *handler) export(kind audit.ExportKind, disposition string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		doc, err := h.exporter.Export(ctx, employee.ExportInput{
			Principal: authz.PrincipalFromContext(ctx),
			Kind:      kind,
		})
		if err != nil {
			h.writeServiceError(ctx, w, err)
			return
		}

		w.Header().Set("Content-Type", doc.ContentType)
		w.Header().Set("Content-Disposition", disposition+`; filename="`+doc.Filename+`"`)
		w.Header().Set("Content-Length", strconv.Itoa(len(doc.Content)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(doc.Content)
	}
}

func (h *handler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authz.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "Las credenciales de autenticación no se proveyeron.")
	case errors.Is(err, authz.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, "No tienes permisos para exportar empleados.")
	case errors.Is(err, employee.ErrValidation), errors.Is(err, employee.ErrUnsupportedExport):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logging.FromContext(ctx, h.logger).WithError(err).Error("export failed")
		writeError(w, http.StatusInternalServerError, "Error interno del servidor.")
	}
}

func writeError(w http.ResponseWriter, code int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
