package db

import (
	"context"

	"github.com/danwahyudi/authgate/internal/auth/entity"
)

const sessionColumns = `id, user_id, session_token_hash, refresh_token_hash,
	session_expires_at, refresh_expires_at, active, device_info, ip_address, created_at`

func (s *DB) CreateSession(ctx context.Context, sess entity.Session) (err error) {
	ctx, span := s.startSpan(ctx, "CreateSession")
	defer func() { s.endSpan(span, err) }()

	query := `
		INSERT INTO auth_sessions
			(id, user_id, session_token_hash, refresh_token_hash,
			session_expires_at, refresh_expires_at, active, device_info, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = s.conn.Exec(ctx, query,
		sess.ID, sess.UserID, sess.SessionTokenHash, sess.RefreshTokenHash,
		sess.SessionExpiresAt, sess.RefreshExpiresAt, sess.Active,
		sess.DeviceInfo, sess.IPAddress, sess.CreatedAt)
	err = s.mapError(err)
	return err
}

func (s *DB) scanSession(row interface{ Scan(dest ...any) error }) (*entity.Session, error) {
	var out entity.Session
	err := row.Scan(
		&out.ID, &out.UserID, &out.SessionTokenHash, &out.RefreshTokenHash,
		&out.SessionExpiresAt, &out.RefreshExpiresAt, &out.Active,
		&out.DeviceInfo, &out.IPAddress, &out.CreatedAt)
	if err != nil {
		return nil, s.mapError(err)
	}
	return &out, nil
}

func (s *DB) GetActiveSessionByTokenHash(ctx context.Context, tokenHash string) (sess *entity.Session, err error) {
	ctx, span := s.startSpan(ctx, "GetActiveSessionByTokenHash")
	defer func() { s.endSpan(span, err) }()

	query := `
		SELECT ` + sessionColumns + `
		FROM auth_sessions
		WHERE session_token_hash = $1 AND active = TRUE`

	sess, err = s.scanSession(s.conn.QueryRow(ctx, query, tokenHash))
	return sess, err
}

func (s *DB) GetActiveSessionByRefreshHash(ctx context.Context, refreshHash string) (sess *entity.Session, err error) {
	ctx, span := s.startSpan(ctx, "GetActiveSessionByRefreshHash")
	defer func() { s.endSpan(span, err) }()

	query := `
		SELECT ` + sessionColumns + `
		FROM auth_sessions
		WHERE refresh_token_hash = $1 AND active = TRUE`

	sess, err = s.scanSession(s.conn.QueryRow(ctx, query, refreshHash))
	return sess, err
}

// ListActiveSessionsByUser orders oldest first with id as tie-break, which is
// the eviction order.
func (s *DB) ListActiveSessionsByUser(ctx context.Context, userID int64) (sessions []entity.Session, err error) {
	ctx, span := s.startSpan(ctx, "ListActiveSessionsByUser")
	defer func() { s.endSpan(span, err) }()

	query := `
		SELECT ` + sessionColumns + `
		FROM auth_sessions
		WHERE user_id = $1 AND active = TRUE
		ORDER BY created_at ASC, id ASC`

	rows, err := s.conn.Query(ctx, query, userID)
	if err != nil {
		err = s.mapError(err)
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		sess, scanErr := s.scanSession(rows)
		if scanErr != nil {
			err = scanErr
			return nil, err
		}
		sessions = append(sessions, *sess)
	}

	if err = s.mapError(rows.Err()); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *DB) DeactivateSession(ctx context.Context, id int64) (err error) {
	ctx, span := s.startSpan(ctx, "DeactivateSession")
	defer func() { s.endSpan(span, err) }()

	query := `
		UPDATE auth_sessions
		SET active = FALSE
		WHERE id = $1`

	_, err = s.conn.Exec(ctx, query, id)
	err = s.mapError(err)
	return err
}
