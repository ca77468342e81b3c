package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/ogurasousui/codex-grpc-rrhh/internal/core/account"
	pgdb "github.com/ogurasousui/codex-grpc-rrhh/internal/platform/db/postgres"
)

// AccountRepository は PostgreSQL を利用したアカウント参照の実装です。
type AccountRepository struct {
	pool pgdb.Queryer
}

// NewAccountRepository は AccountRepository を生成します。
func NewAccountRepository(pool pgdb.Queryer) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// FindByID は ID でアカウントを取得します。
func (r *AccountRepository) FindByID(ctx context.Context, id int64) (*account.Account, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT id, username, email, role, is_staff, is_superuser, is_active, groups, created_at, updated_at
          FROM accounts
         WHERE id = $1
    `, id)

	acc, err := scanAccount(row)
	if err != nil {
		return nil, err
	}
	return acc, nil
}

func scanAccount(row pgx.Row) (*account.Account, error) {
	var (
		acc       account.Account
		role      string
		groups    []string
		createdAt time.Time
		updatedAt time.Time
	)

	if err := row.Scan(
		&acc.ID,
		&acc.Username,
		&acc.Email,
		&role,
		&acc.Staff,
		&acc.Superuser,
		&acc.Active,
		&groups,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound
		}
		return nil, errors.Wrap(err, "scan account")
	}

	acc.Role = account.Role(role)
	acc.Groups = groups
	acc.CreatedAt = createdAt
	acc.UpdatedAt = updatedAt
	return &acc, nil
}
