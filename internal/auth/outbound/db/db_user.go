package db

import (
	"context"

	"github.com/danwahyudi/authgate/internal/auth/entity"
)

const userColumns = `id, COALESCE(phone, ''), COALESCE(email, ''), role, status,
	COALESCE(password_hash, ''), created_at`

func (s *DB) scanUser(row interface{ Scan(dest ...any) error }) (*entity.User, error) {
	var out entity.User
	var role, status int16
	err := row.Scan(&out.ID, &out.Phone, &out.Email, &role, &status, &out.PasswordHash, &out.CreatedAt)
	if err != nil {
		return nil, s.mapError(err)
	}

	out.Role = entity.Role(role)
	out.Status = entity.UserStatus(status)
	return &out, nil
}

func (s *DB) GetUserByIdentifier(ctx context.Context, kind entity.IdentifierKind, identifier string) (user *entity.User, err error) {
	ctx, span := s.startSpan(ctx, "GetUserByIdentifier")
	defer func() { s.endSpan(span, err) }()

	column := "phone"
	if kind == entity.IdentifierKindEmail {
		column = "email"
	}

	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE ` + column + ` = $1`

	user, err = s.scanUser(s.conn.QueryRow(ctx, query, identifier))
	return user, err
}

func (s *DB) GetUserByID(ctx context.Context, id int64) (user *entity.User, err error) {
	ctx, span := s.startSpan(ctx, "GetUserByID")
	defer func() { s.endSpan(span, err) }()

	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1`

	user, err = s.scanUser(s.conn.QueryRow(ctx, query, id))
	return user, err
}

func (s *DB) CreateUser(ctx context.Context, in entity.NewUser) (err error) {
	ctx, span := s.startSpan(ctx, "CreateUser")
	defer func() { s.endSpan(span, err) }()

	query := `
		INSERT INTO users (id, phone, email, role, status, created_at)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, NOW())`

	_, err = s.conn.Exec(ctx, query,
		in.ID, in.Phone, in.Email, int16(in.Role), int16(in.Status))
	err = s.mapError(err)
	return err
}
