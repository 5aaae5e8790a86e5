package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"reeltrack/models"
)

// AccountRepository persists accounts. Emails are unique case-insensitively.
type AccountRepository struct {
	db *sql.DB
}

// NewAccountRepository creates an account repository over the given connection.
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, email, password_hash, reset_code_hash, reset_expires_at, created_at, updated_at`

// Create inserts a new account and returns it with its assigned id.
func (r *AccountRepository) Create(ctx context.Context, email, passwordHash string) (models.Account, error) {
	now := time.Now().UTC()
	acct := models.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := execBusyRetry(ctx, func() error {
		_, execErr := r.db.ExecContext(ctx,
			`INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, '', NULL, ?, ?)`,
			acct.ID, acct.Email, acct.PasswordHash, acct.CreatedAt, acct.UpdatedAt)
		return execErr
	})
	if err != nil {
		if isUniqueViolation(err) {
			return models.Account{}, fmt.Errorf("%w: email %s", ErrDuplicate, email)
		}
		return models.Account{}, fmt.Errorf("insert account: %w", err)
	}

	return acct, nil
}

// GetByEmail fetches an account by email, case-insensitively.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (models.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = ?`, email)
	return scanAccount(row)
}

// Get fetches an account by id.
func (r *AccountRepository) Get(ctx context.Context, id string) (models.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

// UpdatePassword replaces the password hash and clears any pending reset.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.exec(ctx,
		`UPDATE accounts
		 SET password_hash = ?, reset_code_hash = '', reset_expires_at = NULL, updated_at = ?
		 WHERE id = ?`,
		passwordHash, time.Now().UTC(), id)
}

// SetResetCode stores the hash of a pending password-reset code.
func (r *AccountRepository) SetResetCode(ctx context.Context, id, codeHash string, expiresAt time.Time) error {
	return r.exec(ctx,
		`UPDATE accounts SET reset_code_hash = ?, reset_expires_at = ?, updated_at = ? WHERE id = ?`,
		codeHash, expiresAt.UTC(), time.Now().UTC(), id)
}

func (r *AccountRepository) exec(ctx context.Context, query string, args ...any) error {
	var affected int64
	err := execBusyRetry(ctx, func() error {
		res, execErr := r.db.ExecContext(ctx, query, args...)
		if execErr != nil {
			return execErr
		}
		affected, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAccount(row rowScanner) (models.Account, error) {
	var (
		acct      models.Account
		resetHash sql.NullString
		resetAt   sql.NullTime
	)
	err := row.Scan(&acct.ID, &acct.Email, &acct.PasswordHash,
		&resetHash, &resetAt, &acct.CreatedAt, &acct.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, ErrNotFound
	}
	if err != nil {
		return models.Account{}, fmt.Errorf("scan account: %w", err)
	}
	acct.ResetCodeHash = resetHash.String
	if resetAt.Valid {
		t := resetAt.Time
		acct.ResetExpiresAt = &t
	}
	return acct, nil
}
