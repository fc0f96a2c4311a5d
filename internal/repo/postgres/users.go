package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcalder/bloghub/internal/domain/user"
	"github.com/mcalder/bloghub/internal/observability"
)

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return false
}

func isConstraintViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) &&
		pgErr.Code == "23505" &&
		pgErr.ConstraintName == constraint
}

func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return true
	}
	return false
}

const insertFirstAdminSQL = `INSERT INTO users (name, email, password_hash, role)
 VALUES (
	$1, $2, $3,
	CASE WHEN EXISTS (SELECT 1 FROM users) THEN 'user' ELSE 'admin' END
 )
 RETURNING id, password_hash, role, created_at`

const insertRegularUserSQL = `INSERT INTO users (name, email, password_hash, role)
 VALUES ($1, $2, $3, 'user')
 RETURNING id, password_hash, role, created_at`

// Create registers a user. The very first row gets the admin role; the email
// unique constraint is the source of truth for duplicates, so a concurrent
// double-registration loses with user.ErrEmailTaken rather than overwriting.
func (r *UsersRepo) Create(ctx context.Context, name, email, passwordHash string) (user.User, error) {
	u := user.User{
		Name:  name,
		Email: user.NormalizeEmail(email),
	}

	op := "users.create"

	insert := func(sql string) error {
		return r.observe(op, func() error {
			return r.pool.QueryRow(ctx, sql, u.Name, u.Email, passwordHash).
				Scan(&u.ID, &u.PasswordHash, &u.Role, &u.CreatedAt)
		})
	}

	err := insert(insertFirstAdminSQL)

	// two first-ever registrations can both observe an empty table; the
	// users_one_admin index picks one winner and the loser retries as a
	// regular user
	if isConstraintViolation(err, "users_one_admin") {
		err = insert(insertRegularUserSQL)
	}

	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	op := "users.get_by_email"

	err := r.observe(op, func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, name, email, password_hash, role, created_at
			 FROM users
			 WHERE email = $1`,
			user.NormalizeEmail(email),
		).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id int64) (user.User, error) {
	var u user.User

	op := "users.get_by_id"

	err := r.observe(op, func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, name, email, password_hash, role, created_at
			 FROM users
			 WHERE id = $1`,
			id,
		).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}
	return u, nil
}
