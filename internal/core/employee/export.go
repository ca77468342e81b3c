package employee

import (
	"context"
	"errors"
	"time"

	"github.com/ogurasousui/codex-grpc-rrhh/internal/core/audit"
	"github.com/ogurasousui/codex-grpc-rrhh/internal/core/authz"
	"github.com/ogurasousui/codex-grpc-rrhh/internal/platform/logging"
)

const (
	ExportOutcomeAllowed = "allowed"
	ExportOutcomeDenied  = "denied"
)

// Renderer は社員一覧を帳票に変換します。
type Renderer interface {
	Render(ctx context.Context, employees []*Employee, rc RenderContext) ([]byte, error)
	ContentType() string
	Extension() string
}

// RenderContext は帳票に埋め込むメタ情報です。
type RenderContext struct {
	CompanyName string
	GeneratedAt time.Time
}

// Document は生成された帳票です。
type Document struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ExportObserver はエクスポートの結果を受け取ります。
type ExportObserver interface {
	ExportAttempted(kind, outcome string)
}

type noopExportObserver struct{}

func (noopExportObserver) ExportAttempted(string, string) {}

// Exporter は社員一覧のエクスポートを担当します。許可・拒否のいずれも台帳に記録します。
type Exporter struct {
	repo        Repository
	audits      AuditRecorder
	renderers   map[audit.ExportKind]Renderer
	clock       Clock
	companyName string
	observer    ExportObserver
}

// ExportInput はエクスポートの入力です。
type ExportInput struct {
	Principal authz.Principal
	Kind      audit.ExportKind
}

// NewExporter は Exporter を生成します。
func NewExporter(repo Repository, audits AuditRecorder, renderers map[audit.ExportKind]Renderer, clock Clock, companyName string, observer ExportObserver) *Exporter {
	if clock == nil {
		clock = realClock{}
	}
	if observer == nil {
		observer = noopExportObserver{}
	}
	return &Exporter{
		repo:        repo,
		audits:      audits,
		renderers:   renderers,
		clock:       clock,
		companyName: companyName,
		observer:    observer,
	}
}

// Export は全社員を ID 順に指定形式で出力します。
func (x *Exporter) Export(ctx context.Context, in ExportInput) (*Document, error) {
	renderer, ok := x.renderers[in.Kind]
	if !ok {
		return nil, ErrUnsupportedExport
	}

	if err := authz.Authorize(in.Principal, authz.OpExportEmployee); err != nil {
		x.observer.ExportAttempted(string(in.Kind), ExportOutcomeDenied)
		x.recordAttempt(ctx, x.audits.RecordDeniedExport(ctx, in.Principal, in.Kind))
		return nil, err
	}

	x.observer.ExportAttempted(string(in.Kind), ExportOutcomeAllowed)
	x.recordAttempt(ctx, x.audits.RecordExport(ctx, in.Principal, in.Kind))

	employees, err := x.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	now := x.clock.Now()
	content, err := renderer.Render(ctx, employees, RenderContext{CompanyName: x.companyName, GeneratedAt: now})
	if err != nil {
		return nil, err
	}

	return &Document{
		Filename:    "empleados_" + FormatDate(now) + renderer.Extension(),
		ContentType: renderer.ContentType(),
		Content:     content,
	}, nil
}

func (x *Exporter) recordAttempt(ctx context.Context, err error) {
	if err == nil || errors.Is(err, audit.ErrWriteFailed) {
		return
	}
	logging.FromContext(ctx, nil).WithError(err).Warn("export audit entry skipped")
}
