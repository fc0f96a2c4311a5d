package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcalder/bloghub/internal/config"
	"github.com/mcalder/bloghub/internal/domain/user"
	"github.com/mcalder/bloghub/internal/security"
)

// EnsureAdminUser seeds (or promotes) the administrator account from config.
// This complements the first-registered-user-is-admin rule so a deployment can
// pin its admin credentials explicitly. The users_one_admin index allows a
// single admin row, so any other admin is demoted in the same transaction.
func EnsureAdminUser(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	email := user.NormalizeEmail(cfg.AdminEmail)

	if email == "" || cfg.AdminPassword == "" {
		return nil
	}

	tx, err := pool.Begin(ctx)

	if err != nil {
		return err
	}

	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`UPDATE users SET role = $1 WHERE role = $2 AND email <> $3`,
		user.RoleUser, user.RoleAdmin, email,
	)

	if err != nil {
		return err
	}

	var (
		id   int64
		role string
	)

	err = tx.QueryRow(ctx, `SELECT id, role FROM users WHERE email = $1`, email).Scan(&id, &role)

	switch {
	case err == nil:
		if role != user.RoleAdmin {
			if _, err := tx.Exec(ctx, `UPDATE users SET role = $2 WHERE id = $1`, id, user.RoleAdmin); err != nil {
				return err
			}
		}

	case errors.Is(err, pgx.ErrNoRows):
		hash, err := security.HashPassword(cfg.AdminPassword)

		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO users (name, email, password_hash, role) VALUES ($1, $2, $3, $4)`,
			cfg.AdminName, email, hash, user.RoleAdmin,
		)

		if err != nil {
			return err
		}

	default:
		return err
	}

	return tx.Commit(ctx)
}
