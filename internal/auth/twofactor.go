package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/crypto/bcrypt"

	"github.com/playpong/backend/internal/models"
)

const backupCodeCount = 8

// TwoFactorStore is the slice of player storage the 2FA flows need.
type TwoFactorStore interface {
	SetTwoFactorSecret(ctx context.Context, playerID, secret string) error
	EnableTwoFactor(ctx context.Context, playerID string) error
	DisableTwoFactor(ctx context.Context, playerID string) error
	ReplaceBackupCodes(ctx context.Context, playerID string, hashes []string) error
	UnusedBackupCodes(ctx context.Context, playerID string) ([]models.BackupCode, error)
	MarkBackupCodeUsed(ctx context.Context, id int64) error
}

// TwoFactor implements the TOTP enrolment and verification flows.
type TwoFactor struct {
	store  TwoFactorStore
	issuer string
}

func NewTwoFactor(store TwoFactorStore, issuer string) *TwoFactor {
	return &TwoFactor{store: store, issuer: issuer}
}

// Setup generates a fresh TOTP secret for the player, stores it in a
// not-yet-enabled state and returns the provisioning URI as a QR code data
// URI for the authenticator app to scan.
func (tf *TwoFactor) Setup(ctx context.Context, player *models.Player) (string, error) {
	if player.TwoFactorEnabled {
		return "", models.ErrValidation("two-factor authentication is already enabled")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      tf.issuer,
		AccountName: player.Username,
	})
	if err != nil {
		return "", fmt.Errorf("generate totp secret: %w", err)
	}

	if err := tf.store.SetTwoFactorSecret(ctx, player.ID, key.Secret()); err != nil {
		return "", err
	}

	png, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("encode qr code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// Enable turns 2FA on after the player proves possession of the secret with
// a valid code. It returns the plaintext backup codes, which are shown to
// the player exactly once.
func (tf *TwoFactor) Enable(ctx context.Context, player *models.Player, code string) ([]string, error) {
	if player.TwoFactorEnabled {
		return nil, models.ErrValidation("two-factor authentication is already enabled")
	}
	if !player.TwoFactorSecret.Valid || player.TwoFactorSecret.String == "" {
		return nil, models.ErrValidation("two-factor setup has not been started")
	}
	if !totp.Validate(code, player.TwoFactorSecret.String) {
		return nil, models.ErrValidation("invalid verification code")
	}

	if err := tf.store.EnableTwoFactor(ctx, player.ID); err != nil {
		return nil, err
	}

	codes, hashes, err := generateBackupCodes(backupCodeCount)
	if err != nil {
		return nil, err
	}
	if err := tf.store.ReplaceBackupCodes(ctx, player.ID, hashes); err != nil {
		return nil, err
	}
	return codes, nil
}

// Disable turns 2FA off after a valid code and wipes the secret and any
// remaining backup codes.
func (tf *TwoFactor) Disable(ctx context.Context, player *models.Player, code string) error {
	if !player.TwoFactorEnabled {
		return models.ErrValidation("two-factor authentication is not enabled")
	}
	if err := tf.VerifyLoginCode(player, code); err != nil {
		return err
	}
	return tf.store.DisableTwoFactor(ctx, player.ID)
}

// VerifyLoginCode checks a TOTP code during login or disable.
func (tf *TwoFactor) VerifyLoginCode(player *models.Player, code string) error {
	if !player.TwoFactorEnabled || !player.TwoFactorSecret.Valid {
		return models.ErrValidation("two-factor authentication is not enabled")
	}
	if !totp.Validate(code, player.TwoFactorSecret.String) {
		return models.ErrAuthInvalid("invalid two-factor code")
	}
	return nil
}

// UseBackupCode consumes one unused backup code. Each code works exactly
// once.
func (tf *TwoFactor) UseBackupCode(ctx context.Context, playerID, code string) error {
	stored, err := tf.store.UnusedBackupCodes(ctx, playerID)
	if err != nil {
		return err
	}
	for _, bc := range stored {
		if bcrypt.CompareHashAndPassword([]byte(bc.CodeHash), []byte(code)) == nil {
			return tf.store.MarkBackupCodeUsed(ctx, bc.ID)
		}
	}
	return models.ErrAuthInvalid("invalid backup code")
}

func generateBackupCodes(n int) (codes []string, hashes []string, err error) {
	for i := 0; i < n; i++ {
		buf := make([]byte, 5)
		if _, err := rand.Read(buf); err != nil {
			return nil, nil, fmt.Errorf("generate backup code: %w", err)
		}
		code := hex.EncodeToString(buf)
		hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
		if err != nil {
			return nil, nil, fmt.Errorf("hash backup code: %w", err)
		}
		codes = append(codes, code)
		hashes = append(hashes, string(hash))
	}
	return codes, hashes, nil
}
