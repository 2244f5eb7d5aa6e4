package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const userColumns = `id, name, email, password_hash, auth_provider, role,
	otp_hash, otp_expires_at, wrong_otp_count, block_expires_at,
	is_verified, created_at, updated_at`

func scanUser(row *sql.Row) (User, error) {
	var u User
	var passwordHash, otpHash sql.NullString
	var otpExpiresAt, blockExpiresAt sql.NullTime

	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &passwordHash, &u.Provider, &u.Role,
		&otpHash, &otpExpiresAt, &u.Challenge.WrongCount, &blockExpiresAt,
		&u.IsVerified, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return User{}, err
	}

	if passwordHash.Valid {
		u.PasswordHash = &passwordHash.String
	}
	if otpHash.Valid {
		u.Challenge.OTPHash = &otpHash.String
	}
	if otpExpiresAt.Valid {
		value := otpExpiresAt.Time.UTC()
		u.Challenge.ExpiresAt = &value
	}
	if blockExpiresAt.Valid {
		value := blockExpiresAt.Time.UTC()
		u.Challenge.BlockExpiresAt = &value
	}

	return u, nil
}

func (r *Repository) Create(ctx context.Context, u User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, auth_provider, role,
			otp_hash, otp_expires_at, wrong_otp_count, block_expires_at,
			is_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
	`,
		u.ID, u.Name, u.Email, nullString(u.PasswordHash), u.Provider, u.Role,
		nullString(u.Challenge.OTPHash), nullTime(u.Challenge.ExpiresAt),
		u.Challenge.WrongCount, nullTime(u.Challenge.BlockExpiresAt),
		u.IsVerified, u.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("query user by email: %w", err)
	}
	return user, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("query user by id: %w", err)
	}
	return user, nil
}

// SetChallenge installs a freshly issued challenge: new hash and expiry,
// counter zeroed, any lockout cleared.
func (r *Repository) SetChallenge(ctx context.Context, userID, otpHash string, expiresAt, now time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET otp_hash = $2, otp_expires_at = $3, wrong_otp_count = 0,
			block_expires_at = NULL, updated_at = $4
		WHERE id = $1
	`, userID, otpHash, expiresAt.UTC(), now.UTC())
	if err != nil {
		return fmt.Errorf("set otp challenge: %w", err)
	}
	return requireRow(res)
}

// RecordWrongAttempt applies the lockout transition for one failed
// comparison under a row lock, so concurrent attempts against the same
// identity cannot double-count.
func (r *Repository) RecordWrongAttempt(ctx context.Context, userID string, now time.Time, lockFor time.Duration) (Lockout, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Lockout{}, fmt.Errorf("begin wrong attempt tx: %w", err)
	}
	defer tx.Rollback()

	var count int
	var blockExpiresAt sql.NullTime
	err = tx.QueryRowContext(ctx, `
		SELECT wrong_otp_count, block_expires_at
		FROM users
		WHERE id = $1
		FOR UPDATE
	`, userID).Scan(&count, &blockExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Lockout{}, ErrUserNotFound
		}
		return Lockout{}, fmt.Errorf("lock user row: %w", err)
	}

	current := Lockout{WrongCount: count}
	if blockExpiresAt.Valid {
		value := blockExpiresAt.Time.UTC()
		current.BlockExpiresAt = &value
	}

	next := Transition(current, EventWrongCode, now, lockFor)

	_, err = tx.ExecContext(ctx, `
		UPDATE users
		SET wrong_otp_count = $2, block_expires_at = $3, updated_at = $4
		WHERE id = $1
	`, userID, next.WrongCount, nullTime(next.BlockExpiresAt), now.UTC())
	if err != nil {
		return Lockout{}, fmt.Errorf("update wrong attempt: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Lockout{}, fmt.Errorf("commit wrong attempt tx: %w", err)
	}

	return next, nil
}

// ClearChallenge destroys the challenge after a successful verification
// and marks the identity verified.
func (r *Repository) ClearChallenge(ctx context.Context, userID string, now time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET otp_hash = NULL, otp_expires_at = NULL, wrong_otp_count = 0,
			block_expires_at = NULL, is_verified = TRUE, updated_at = $2
		WHERE id = $1
	`, userID, now.UTC())
	if err != nil {
		return fmt.Errorf("clear otp challenge: %w", err)
	}
	return requireRow(res)
}

// ResetPassword is ClearChallenge plus the replacement password hash.
func (r *Repository) ResetPassword(ctx context.Context, userID, passwordHash string, now time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET password_hash = $2, otp_hash = NULL, otp_expires_at = NULL,
			wrong_otp_count = 0, block_expires_at = NULL, is_verified = TRUE,
			updated_at = $3
		WHERE id = $1
	`, userID, passwordHash, now.UTC())
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return requireRow(res)
}

func (r *Repository) UpdateName(ctx context.Context, userID, name string, now time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET name = $2, updated_at = $3 WHERE id = $1
	`, userID, name, now.UTC())
	if err != nil {
		return fmt.Errorf("update user name: %w", err)
	}
	return requireRow(res)
}

func (r *Repository) List(ctx context.Context, search string, page, limit int) ([]UserSummary, int, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	where := ""
	args := []any{limit, (page - 1) * limit}
	if strings.TrimSpace(search) != "" {
		where = "WHERE name ILIKE $3"
		args = append(args, "%"+strings.TrimSpace(search)+"%")
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, email, role, auth_provider, is_verified, created_at
		FROM users `+where+`
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]UserSummary, 0, limit)
	for rows.Next() {
		var u UserSummary
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Provider, &u.IsVerified, &u.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate user rows: %w", err)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	return users, total, nil
}

func (r *Repository) Delete(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireRow(res)
}

// CleanupResult reports what the maintenance sweep removed.
type CleanupResult struct {
	ClearedChallenges int64 `json:"cleared_challenges"`
	ClearedLockouts   int64 `json:"cleared_lockouts"`
}

// CleanupStaleAuthState nulls long-expired challenges and lapsed
// lockouts so abandoned signups do not accumulate stale secrets.
func (r *Repository) CleanupStaleAuthState(ctx context.Context, retention time.Duration, now time.Time) (CleanupResult, error) {
	cutoff := now.UTC().Add(-retention)

	challenges, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET otp_hash = NULL, otp_expires_at = NULL, updated_at = $2
		WHERE otp_hash IS NOT NULL AND otp_expires_at < $1
	`, cutoff, now.UTC())
	if err != nil {
		return CleanupResult{}, fmt.Errorf("cleanup expired challenges: %w", err)
	}

	lockouts, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET wrong_otp_count = 0, block_expires_at = NULL, updated_at = $2
		WHERE block_expires_at IS NOT NULL AND block_expires_at < $1
	`, cutoff, now.UTC())
	if err != nil {
		return CleanupResult{}, fmt.Errorf("cleanup lapsed lockouts: %w", err)
	}

	clearedChallenges, err := challenges.RowsAffected()
	if err != nil {
		return CleanupResult{}, fmt.Errorf("cleared challenges rows affected: %w", err)
	}
	clearedLockouts, err := lockouts.RowsAffected()
	if err != nil {
		return CleanupResult{}, fmt.Errorf("cleared lockouts rows affected: %w", err)
	}

	return CleanupResult{
		ClearedChallenges: clearedChallenges,
		ClearedLockouts:   clearedLockouts,
	}, nil
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func nullString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC()
}
