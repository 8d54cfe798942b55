package db

import (
	"context"
	"time"

	"github.com/danwahyudi/authgate/internal/auth/entity"
)

func (s *DB) CreateChallenge(ctx context.Context, ch entity.Challenge) (err error) {
	ctx, span := s.startSpan(ctx, "CreateChallenge")
	defer func() { s.endSpan(span, err) }()

	query := `
		INSERT INTO auth_challenges
			(id, identifier, identifier_kind, hashed_code, attempt_count, used, created_at, expires_at)
		VALUES ($1, $2, $3, $4, 0, FALSE, $5, $6)`

	_, err = s.conn.Exec(ctx, query,
		ch.ID, ch.Identifier, int16(ch.IdentifierKind), ch.HashedCode, ch.CreatedAt, ch.ExpiresAt)
	err = s.mapError(err)
	return err
}

func (s *DB) GetChallengeByID(ctx context.Context, id int64) (ch *entity.Challenge, err error) {
	ctx, span := s.startSpan(ctx, "GetChallengeByID")
	defer func() { s.endSpan(span, err) }()

	query := `
		SELECT id, identifier, identifier_kind, hashed_code, attempt_count, last_attempt_at,
			used, created_at, expires_at
		FROM auth_challenges
		WHERE id = $1`

	var out entity.Challenge
	var kind int16
	err = s.conn.QueryRow(ctx, query, id).Scan(
		&out.ID, &out.Identifier, &kind, &out.HashedCode, &out.AttemptCount,
		&out.LastAttemptAt, &out.Used, &out.CreatedAt, &out.ExpiresAt)
	if err != nil {
		err = s.mapError(err)
		return nil, err
	}

	out.IdentifierKind = entity.IdentifierKind(kind)
	return &out, nil
}

// IncrementChallengeAttempt bumps the attempt counter in a single statement,
// so concurrent callers each observe a distinct post-increment count.
func (s *DB) IncrementChallengeAttempt(ctx context.Context, id int64, at time.Time) (attempts int32, err error) {
	ctx, span := s.startSpan(ctx, "IncrementChallengeAttempt")
	defer func() { s.endSpan(span, err) }()

	query := `
		UPDATE auth_challenges
		SET attempt_count = attempt_count + 1, last_attempt_at = $2
		WHERE id = $1
		RETURNING attempt_count`

	err = s.conn.QueryRow(ctx, query, id, at).Scan(&attempts)
	if err != nil {
		err = s.mapError(err)
		return 0, err
	}
	return attempts, nil
}

// MarkChallengeUsed transitions the record to terminal exactly once; only the
// caller whose update matched the unused row wins.
func (s *DB) MarkChallengeUsed(ctx context.Context, id int64) (won bool, err error) {
	ctx, span := s.startSpan(ctx, "MarkChallengeUsed")
	defer func() { s.endSpan(span, err) }()

	query := `
		UPDATE auth_challenges
		SET used = TRUE
		WHERE id = $1 AND used = FALSE`

	tag, err := s.conn.Exec(ctx, query, id)
	if err != nil {
		err = s.mapError(err)
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
