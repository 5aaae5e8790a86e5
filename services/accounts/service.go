package accounts

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/sethvargo/go-password/password"
	"golang.org/x/crypto/bcrypt"

	"reeltrack/internal/database"
	"reeltrack/models"
)

var (
	ErrEmailRequired      = errors.New("email is required")
	ErrEmailInvalid       = errors.New("email is not valid")
	ErrPasswordRequired   = errors.New("password is required")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrEmailExists        = errors.New("an account with this email already exists")
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrResetCodeInvalid   = errors.New("reset code is invalid or expired")
)

const (
	minPasswordLength = 8

	// resetCodeTTL bounds how long a password-reset code stays usable.
	resetCodeTTL = 30 * time.Minute

	resetCodeLength = 8
	resetCodeDigits = 4
)

// Store is the persistence surface the service needs.
type Store interface {
	Create(ctx context.Context, email, passwordHash string) (models.Account, error)
	Get(ctx context.Context, id string) (models.Account, error)
	GetByEmail(ctx context.Context, email string) (models.Account, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetResetCode(ctx context.Context, id, codeHash string, expiresAt time.Time) error
}

// Service manages account signup, credential checks, and password resets.
// Passwords and reset codes are stored as bcrypt hashes only.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates an accounts service over the given store.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// SignUp creates a new account.
func (s *Service) SignUp(ctx context.Context, email, plainPassword string) (models.Account, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return models.Account{}, err
	}
	if err := checkPassword(plainPassword); err != nil {
		return models.Account{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plainPassword), bcrypt.DefaultCost)
	if err != nil {
		return models.Account{}, fmt.Errorf("hash password: %w", err)
	}

	acct, err := s.store.Create(ctx, email, string(hash))
	if errors.Is(err, database.ErrDuplicate) {
		return models.Account{}, ErrEmailExists
	}
	if err != nil {
		return models.Account{}, err
	}
	return acct, nil
}

// Authenticate checks an email and password pair. Lookup failures and bad
// passwords both return ErrInvalidCredentials so a caller cannot probe
// which emails exist.
func (s *Service) Authenticate(ctx context.Context, email, plainPassword string) (models.Account, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return models.Account{}, ErrInvalidCredentials
	}
	if plainPassword == "" {
		return models.Account{}, ErrInvalidCredentials
	}

	acct, err := s.store.GetByEmail(ctx, email)
	if errors.Is(err, database.ErrNotFound) {
		// Burn a comparison anyway so missing accounts take as long as a
		// wrong password.
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$N9qo8uLOickgx2ZMRZoMye"), []byte(plainPassword))
		return models.Account{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.Account{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(plainPassword)) != nil {
		return models.Account{}, ErrInvalidCredentials
	}
	return acct, nil
}

// Get fetches an account by id.
func (s *Service) Get(ctx context.Context, id string) (models.Account, error) {
	acct, err := s.store.Get(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return models.Account{}, ErrAccountNotFound
	}
	return acct, err
}

// UpdatePassword replaces an account's password after verifying the current
// one.
func (s *Service) UpdatePassword(ctx context.Context, id, currentPassword, newPassword string) error {
	acct, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(currentPassword)) != nil {
		return ErrInvalidCredentials
	}
	if err := checkPassword(newPassword); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.store.UpdatePassword(ctx, acct.ID, string(hash))
}

// StartReset generates a short-lived reset code for the account with the
// given email and returns the code for delivery. A missing account returns
// an empty code without error, so the caller's response does not reveal
// whether the email is registered.
func (s *Service) StartReset(ctx context.Context, email string) (string, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return "", err
	}

	acct, err := s.store.GetByEmail(ctx, email)
	if errors.Is(err, database.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	code, err := password.Generate(resetCodeLength, resetCodeDigits, 0, true, false)
	if err != nil {
		return "", fmt.Errorf("generate reset code: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash reset code: %w", err)
	}

	expiresAt := s.now().UTC().Add(resetCodeTTL)
	if err := s.store.SetResetCode(ctx, acct.ID, string(hash), expiresAt); err != nil {
		return "", err
	}
	return code, nil
}

// CompleteReset sets a new password for the account if the reset code
// matches and has not expired.
func (s *Service) CompleteReset(ctx context.Context, email, code, newPassword string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return ErrResetCodeInvalid
	}

	acct, err := s.store.GetByEmail(ctx, email)
	if errors.Is(err, database.ErrNotFound) {
		return ErrResetCodeInvalid
	}
	if err != nil {
		return err
	}

	if acct.ResetCodeHash == "" || acct.ResetExpiresAt == nil {
		return ErrResetCodeInvalid
	}
	if s.now().After(*acct.ResetExpiresAt) {
		return ErrResetCodeInvalid
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.ResetCodeHash), []byte(code)) != nil {
		return ErrResetCodeInvalid
	}
	if err := checkPassword(newPassword); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.store.UpdatePassword(ctx, acct.ID, string(hash))
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrEmailRequired
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", ErrEmailInvalid
	}
	return email, nil
}

func checkPassword(plainPassword string) error {
	if plainPassword == "" {
		return ErrPasswordRequired
	}
	if len(plainPassword) < minPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}
