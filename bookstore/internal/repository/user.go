package repository

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/Astemirdum/bookstore-service/bookstore/internal/errs"
	"github.com/Astemirdum/bookstore-service/bookstore/internal/model"
)

var userColumns = []string{"uid", "email", "display_name", "photo_url", "role", "created_at", "last_login"}

// UpsertUser creates the user or refreshes its profile and last login.
// Empty profile fields keep the stored value. The stored role only ever
// moves up to admin here; it is never lowered.
func (r *repository) UpsertUser(ctx context.Context, req model.LoginRequest, promote bool) (model.User, error) {
	q := `
insert into users (uid, email, display_name, photo_url, role, created_at, last_login)
values ($1, $2, $3, $4, $5, now(), now())
on conflict (uid) do update
    set email = coalesce(nullif(excluded.email, ''), users.email),
        display_name = coalesce(nullif(excluded.display_name, ''), users.display_name),
        photo_url = coalesce(nullif(excluded.photo_url, ''), users.photo_url),
        last_login = now(),
        role = case when $6::boolean then 'admin' else users.role end
returning ` + strings.Join(userColumns, ", ")

	role := model.RoleUser
	if promote {
		role = model.RoleAdmin
	}
	rows, err := r.db.Query(ctx, q, req.UID, req.Email, req.DisplayName, req.PhotoURL, string(role), promote)
	if err != nil {
		return model.User{}, err
	}
	defer rows.Close()

	user, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.User])
	if err != nil {
		return model.User{}, errors.Wrap(err, "upsert user")
	}
	return user, nil
}

func (r *repository) GetUser(ctx context.Context, uid string) (model.User, error) {
	query, args, err := qb.Select(userColumns...).
		From(usersTableName).
		Where(sq.Eq{"uid": uid}).
		ToSql()
	if err != nil {
		return model.User{}, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return model.User{}, err
	}
	defer rows.Close()

	user, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.User])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, errs.ErrNotFound
		}
		return model.User{}, err
	}
	return user, nil
}

func (r *repository) SetRole(ctx context.Context, uid string, role model.Role) (model.User, error) {
	query, args, err := qb.Update(usersTableName).
		Set("role", string(role)).
		Where(sq.Eq{"uid": uid}).
		Suffix("returning " + strings.Join(userColumns, ", ")).
		ToSql()
	if err != nil {
		return model.User{}, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return model.User{}, err
	}
	defer rows.Close()

	user, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.User])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, errs.ErrNotFound
		}
		return model.User{}, err
	}
	return user, nil
}

func (r *repository) ListUsers(ctx context.Context) ([]model.User, error) {
	query, args, err := qb.Select(userColumns...).
		From(usersTableName).
		OrderBy("last_login desc").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.User])
	if err != nil {
		return nil, errors.Wrap(err, "pgx.CollectRows")
	}
	return users, nil
}
