package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ogurasousui/codex-grpc-rrhh/internal/core/authz"
	"github.com/ogurasousui/codex-grpc-rrhh/internal/platform/logging"
)

const (
	ledgerGeneral  = "bitacora"
	ledgerEmployee = "bitacora_empleado"

	detailsPrefix = "Cambio detectado:\n"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// Observer は台帳書き込みの結果を受け取ります。
type Observer interface {
	AuditEntryWritten(ledger string)
	AuditWriteFailed(ledger string)
}

type noopObserver struct{}

func (noopObserver) AuditEntryWritten(string) {}
func (noopObserver) AuditWriteFailed(string)  {}

// Recorder は全体台帳と社員別台帳への書き込みを担当します。
// 各エントリは呼び出し元のトランザクションとは独立してコミットされます。
type Recorder struct {
	repo     Repository
	clock    Clock
	observer Observer
	logger   logrus.FieldLogger
}

// RecordInput は Record の入力です。
type RecordInput struct {
	Entity    Auditable
	Action    Action
	Principal authz.Principal
	// Changes が nil 以外の場合は差分検出を行わずそのまま記録します。
	Changes  Changes
	Previous Auditable
}

// NewRecorder は Recorder を生成します。
func NewRecorder(repo Repository, clock Clock, observer Observer, logger logrus.FieldLogger) *Recorder {
	if clock == nil {
		clock = realClock{}
	}
	if observer == nil {
		observer = noopObserver{}
	}
	return &Recorder{repo: repo, clock: clock, observer: observer, logger: logger}
}

// Record はエンティティの変更を台帳に記録します。
// モデルが Empleado の場合は社員別台帳にも 1 件追加します。
func (r *Recorder) Record(ctx context.Context, in RecordInput) error {
	if in.Entity == nil {
		return ErrEntityRequired
	}

	changes, err := Detect(in.Action, in.Entity, in.Previous, in.Changes)
	if err != nil {
		return err
	}

	payload, err := changes.Serialize()
	if err != nil {
		return fmt.Errorf("audit: serialize changes: %w", err)
	}

	actor := actorFor(in.Principal)
	now := r.clock.Now()

	var errs []error
	if err := r.appendEntry(ctx, &Entry{
		Actor:     actor,
		Model:     in.Entity.AuditModel(),
		ObjectID:  in.Entity.AuditID(),
		Action:    string(in.Action),
		Changes:   payload,
		CreatedAt: now,
	}); err != nil {
		errs = append(errs, err)
	}

	if in.Entity.AuditModel() == ModelEmpleado {
		if err := r.appendEmployeeEntry(ctx, &EmployeeEntry{
			EmployeeID: in.Entity.AuditID(),
			Actor:      actor,
			Action:     in.Action.Canonical(),
			Details:    employeeDetails(in.Action, payload),
			CreatedAt:  now,
		}); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// RecordExport は許可されたエクスポートを全体台帳に記録します。
func (r *Recorder) RecordExport(ctx context.Context, p authz.Principal, kind ExportKind) error {
	return r.recordExport(ctx, p, kind.exportAction(), Detail("Exportación masiva de empleados a "+kind.upper()))
}

// RecordDeniedExport は拒否されたエクスポートの試行を全体台帳に記録します。
func (r *Recorder) RecordDeniedExport(ctx context.Context, p authz.Principal, kind ExportKind) error {
	return r.recordExport(ctx, p, kind.deniedAction(), Detail("Intento NO autorizado de exportar empleados a "+kind.upper()))
}

func (r *Recorder) recordExport(ctx context.Context, p authz.Principal, action string, changes Changes) error {
	payload, err := changes.Serialize()
	if err != nil {
		return fmt.Errorf("audit: serialize changes: %w", err)
	}

	return r.appendEntry(ctx, &Entry{
		Actor:     actorFor(p),
		Model:     ModelEmpleado,
		ObjectID:  0,
		Action:    action,
		Changes:   payload,
		CreatedAt: r.clock.Now(),
	})
}

func (r *Recorder) appendEntry(ctx context.Context, entry *Entry) error {
	_, err := r.repo.AppendEntry(ctx, entry)
	if errors.Is(err, ErrActorNotFound) && entry.Actor != nil {
		entry.Actor = nil
		_, err = r.repo.AppendEntry(ctx, entry)
	}
	if err != nil {
		return r.fail(ctx, ledgerGeneral, entry.Action, entry.ObjectID, err)
	}
	r.observer.AuditEntryWritten(ledgerGeneral)
	return nil
}

func (r *Recorder) appendEmployeeEntry(ctx context.Context, entry *EmployeeEntry) error {
	_, err := r.repo.AppendEmployeeEntry(ctx, entry)
	if errors.Is(err, ErrActorNotFound) && entry.Actor != nil {
		entry.Actor = nil
		_, err = r.repo.AppendEmployeeEntry(ctx, entry)
	}
	if err != nil {
		return r.fail(ctx, ledgerEmployee, string(entry.Action), entry.EmployeeID, err)
	}
	r.observer.AuditEntryWritten(ledgerEmployee)
	return nil
}

func (r *Recorder) fail(ctx context.Context, ledger, action string, objectID int64, err error) error {
	r.observer.AuditWriteFailed(ledger)
	logging.FromContext(ctx, r.logger).WithFields(logrus.Fields{
		"ledger":    ledger,
		"action":    action,
		"object_id": objectID,
	}).WithError(err).Error("audit ledger write failed")
	return fmt.Errorf("%w: %s: %w", ErrWriteFailed, ledger, err)
}

// actorFor は認証済みのプリンシパルのみを操作者として返します。
func actorFor(p authz.Principal) *Actor {
	if !p.IsAuthenticated() {
		return nil
	}
	return &Actor{AccountID: p.AccountID, Username: p.Username}
}

func employeeDetails(action Action, payload string) string {
	if action.Canonical() != action {
		return string(action) + "\n" + detailsPrefix + payload
	}
	return detailsPrefix + payload
}
