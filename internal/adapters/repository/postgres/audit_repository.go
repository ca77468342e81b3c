package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ogurasousui/codex-grpc-rrhh/internal/core/audit"
	pgdb "github.com/ogurasousui/codex-grpc-rrhh/internal/platform/db/postgres"
)

var auditActorConstraints = map[string]bool{
	"bitacora_usuario_id_fkey":          true,
	"bitacora_empleado_usuario_id_fkey": true,
}

// AuditRepository は台帳 (bitacora / bitacora_empleado) の PostgreSQL 実装です。
// 追記は呼び出し元のトランザクションから切り離し、1 件ずつコミットします。
type AuditRepository struct {
	pool pgdb.Queryer
}

// NewAuditRepository は AuditRepository を生成します。
func NewAuditRepository(pool pgdb.Queryer) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// AppendEntry は全体台帳に 1 件追記します。
func (r *AuditRepository) AppendEntry(ctx context.Context, e *audit.Entry) (*audit.Entry, error) {
	exec := pgdb.QueryerFromContext(pgdb.DetachTx(ctx), r.pool)
	accountID, username := actorValues(e.Actor)

	created := *e
	if err := exec.QueryRow(ctx, `
        INSERT INTO bitacora (usuario_id, usuario, modelo_afectado, objeto_id, accion, cambios, fecha)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `, accountID, username, e.Model, e.ObjectID, e.Action, e.Changes, e.CreatedAt).Scan(&created.ID); err != nil {
		return nil, translateAuditPgError(err, "insert bitacora")
	}
	return &created, nil
}

// AppendEmployeeEntry は社員別台帳に 1 件追記します。
func (r *AuditRepository) AppendEmployeeEntry(ctx context.Context, e *audit.EmployeeEntry) (*audit.EmployeeEntry, error) {
	exec := pgdb.QueryerFromContext(pgdb.DetachTx(ctx), r.pool)
	accountID, username := actorValues(e.Actor)

	created := *e
	if err := exec.QueryRow(ctx, `
        INSERT INTO bitacora_empleado (empleado_id, usuario_id, usuario, accion, detalles, fecha)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `, e.EmployeeID, accountID, username, string(e.Action), e.Details, e.CreatedAt).Scan(&created.ID); err != nil {
		return nil, translateAuditPgError(err, "insert bitacora_empleado")
	}
	return &created, nil
}

// ListEntries は全体台帳を新しい順に返します。
func (r *AuditRepository) ListEntries(ctx context.Context, filter audit.ListFilter) ([]*audit.Entry, string, error) {
	limitWithBuffer := filter.Limit + 1

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT id, usuario_id, usuario, modelo_afectado, objeto_id, accion, cambios, fecha
          FROM bitacora
         ORDER BY fecha DESC, id DESC
         LIMIT $1
        OFFSET $2
    `, limitWithBuffer, filter.Offset)
	if err != nil {
		return nil, "", errors.Wrap(err, "list bitacora")
	}
	defer rows.Close()

	entries := make([]*audit.Entry, 0, filter.Limit)
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, "", errors.Wrap(err, "scan bitacora")
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, "", errors.Wrap(err, "list bitacora")
	}

	var nextToken string
	if len(entries) == limitWithBuffer {
		entries = entries[:filter.Limit]
		nextToken = strconv.Itoa(filter.Offset + filter.Limit)
	}
	return entries, nextToken, nil
}

// ListEmployeeEntries は指定した社員の台帳を新しい順に返します。
func (r *AuditRepository) ListEmployeeEntries(ctx context.Context, employeeID int64, filter audit.ListFilter) ([]*audit.EmployeeEntry, string, error) {
	limitWithBuffer := filter.Limit + 1

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT id, empleado_id, usuario_id, usuario, accion, detalles, fecha
          FROM bitacora_empleado
         WHERE empleado_id = $1
         ORDER BY fecha DESC, id DESC
         LIMIT $2
        OFFSET $3
    `, employeeID, limitWithBuffer, filter.Offset)
	if err != nil {
		return nil, "", errors.Wrap(err, "list bitacora_empleado")
	}
	defer rows.Close()

	entries := make([]*audit.EmployeeEntry, 0, filter.Limit)
	for rows.Next() {
		entry, err := scanEmployeeAuditEntry(rows)
		if err != nil {
			return nil, "", errors.Wrap(err, "scan bitacora_empleado")
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, "", errors.Wrap(err, "list bitacora_empleado")
	}

	var nextToken string
	if len(entries) == limitWithBuffer {
		entries = entries[:filter.Limit]
		nextToken = strconv.Itoa(filter.Offset + filter.Limit)
	}
	return entries, nextToken, nil
}

// CountEmployeeEntries は社員別台帳の件数を返します。
func (r *AuditRepository) CountEmployeeEntries(ctx context.Context, employeeID int64) (int, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)

	var n int
	if err := exec.QueryRow(ctx, `SELECT count(*) FROM bitacora_empleado WHERE empleado_id = $1`, employeeID).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count bitacora_empleado")
	}
	return n, nil
}

func scanAuditEntry(row pgx.Row) (*audit.Entry, error) {
	var (
		e         audit.Entry
		accountID sql.NullInt64
		username  sql.NullString
		changes   sql.NullString
		createdAt time.Time
	)
	if err := row.Scan(&e.ID, &accountID, &username, &e.Model, &e.ObjectID, &e.Action, &changes, &createdAt); err != nil {
		return nil, err
	}
	e.Actor = actorFrom(accountID, username)
	e.Changes = changes.String
	e.CreatedAt = createdAt.UTC()
	return &e, nil
}

func scanEmployeeAuditEntry(row pgx.Row) (*audit.EmployeeEntry, error) {
	var (
		e         audit.EmployeeEntry
		accountID sql.NullInt64
		username  sql.NullString
		action    string
		createdAt time.Time
	)
	if err := row.Scan(&e.ID, &e.EmployeeID, &accountID, &username, &action, &e.Details, &createdAt); err != nil {
		return nil, err
	}
	e.Actor = actorFrom(accountID, username)
	e.Action = audit.Action(action)
	e.CreatedAt = createdAt.UTC()
	return &e, nil
}

func actorValues(actor *audit.Actor) (any, any) {
	if actor == nil {
		return nil, nil
	}
	return actor.AccountID, actor.Username
}

// actorFrom は操作者を復元します。アカウント削除後もユーザー名のスナップショットは残ります。
func actorFrom(accountID sql.NullInt64, username sql.NullString) *audit.Actor {
	if !accountID.Valid && !username.Valid {
		return nil
	}
	return &audit.Actor{AccountID: accountID.Int64, Username: username.String}
}

func translateAuditPgError(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolationCode && auditActorConstraints[pgErr.ConstraintName] {
		return audit.ErrActorNotFound
	}
	return errors.Wrap(err, op)
}
