package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oksasatya/user-registration-service/internal/domain/entity"
	"github.com/oksasatya/user-registration-service/internal/domain/repository"
)

// SQLSTATE unique_violation
const uniqueViolation = "23505"

// DBTX is the query surface shared by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxBeginner is a DBTX that can open transactions, e.g. *pgxpool.Pool.
type TxBeginner interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

type UserRepository struct {
	db   DBTX
	pool TxBeginner // nil when the repository is bound to a transaction
}

func NewUserRepository(pool TxBeginner) *UserRepository {
	return &UserRepository{db: pool, pool: pool}
}

const userColumns = `id, email, username, password, first_name, last_name, created_at, last_updated_at, deleted`

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	row := r.db.QueryRow(ctx, `
		INSERT INTO users (email, username, password, first_name, last_name)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, last_updated_at, deleted
	`, u.Email, u.Username, u.Password, u.FirstName, u.LastName)

	if err := row.Scan(&u.ID, &u.CreatedAt, &u.LastUpdatedAt, &u.Deleted); err != nil {
		return translate(err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) FindAll(ctx context.Context) ([]*entity.User, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*entity.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) SaveAll(ctx context.Context, users []*entity.User) error {
	for _, u := range users {
		row := r.db.QueryRow(ctx, `
			INSERT INTO users (id, email, username, password, first_name, last_name, deleted)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				email = EXCLUDED.email,
				username = EXCLUDED.username,
				password = EXCLUDED.password,
				first_name = EXCLUDED.first_name,
				last_name = EXCLUDED.last_name,
				last_updated_at = now()
			RETURNING created_at, last_updated_at, deleted
		`, u.ID, u.Email, u.Username, u.Password, u.FirstName, u.LastName, u.Deleted)

		if err := row.Scan(&u.CreatedAt, &u.LastUpdatedAt, &u.Deleted); err != nil {
			return fmt.Errorf("save user %d: %w", u.ID, translate(err))
		}
	}
	return nil
}

func (r *UserRepository) SoftDeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.db.Exec(ctx, `UPDATE users SET deleted = true WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *UserRepository) WithinTx(ctx context.Context, fn func(tx repository.UserRepository) error) error {
	if r.pool == nil {
		// already inside a transaction
		return fn(r)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	// releases the connection if fn panics; ErrTxClosed after commit
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&UserRepository{db: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, fmt.Errorf("rollback tx: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", translate(err))
	}
	return nil
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.Password, &u.FirstName, &u.LastName,
		&u.CreatedAt, &u.LastUpdatedAt, &u.Deleted); err != nil {
		return nil, err
	}
	return u, nil
}

// translate maps unique violations onto repository.ErrDuplicate.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", repository.ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

var _ repository.UserRepository = (*UserRepository)(nil)
