package auth

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/playpong/backend/internal/models"
)

type fakeTwoFactorStore struct {
	secret  string
	enabled bool
	codes   []models.BackupCode
	nextID  int64
}

func (f *fakeTwoFactorStore) SetTwoFactorSecret(_ context.Context, _ string, secret string) error {
	f.secret = secret
	f.enabled = false
	return nil
}

func (f *fakeTwoFactorStore) EnableTwoFactor(_ context.Context, _ string) error {
	f.enabled = true
	return nil
}

func (f *fakeTwoFactorStore) DisableTwoFactor(_ context.Context, _ string) error {
	f.secret = ""
	f.enabled = false
	f.codes = nil
	return nil
}

func (f *fakeTwoFactorStore) ReplaceBackupCodes(_ context.Context, playerID string, hashes []string) error {
	f.codes = nil
	for _, h := range hashes {
		f.nextID++
		f.codes = append(f.codes, models.BackupCode{ID: f.nextID, PlayerID: playerID, CodeHash: h})
	}
	return nil
}

func (f *fakeTwoFactorStore) UnusedBackupCodes(_ context.Context, _ string) ([]models.BackupCode, error) {
	var unused []models.BackupCode
	for _, c := range f.codes {
		if !c.Used {
			unused = append(unused, c)
		}
	}
	return unused, nil
}

func (f *fakeTwoFactorStore) MarkBackupCodeUsed(_ context.Context, id int64) error {
	for i := range f.codes {
		if f.codes[i].ID == id {
			f.codes[i].Used = true
		}
	}
	return nil
}

func enrolledPlayer(t *testing.T) (*models.Player, string) {
	t.Helper()
	key, err := totp.Generate(totp.GenerateOpts{Issuer: "PlayPong", AccountName: "alice"})
	require.NoError(t, err)
	return &models.Player{
		ID:               "player-1",
		Username:         "alice",
		TwoFactorSecret:  sql.NullString{String: key.Secret(), Valid: true},
		TwoFactorEnabled: true,
	}, key.Secret()
}

func TestSetupStoresSecretAndReturnsQR(t *testing.T) {
	store := &fakeTwoFactorStore{}
	tf := NewTwoFactor(store, "PlayPong")

	player := &models.Player{ID: "player-1", Username: "alice"}
	dataURI, err := tf.Setup(context.Background(), player)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dataURI, "data:image/png;base64,"))
	assert.NotEmpty(t, store.secret)
	assert.False(t, store.enabled)
}

func TestSetupRejectsWhenAlreadyEnabled(t *testing.T) {
	tf := NewTwoFactor(&fakeTwoFactorStore{}, "PlayPong")

	player, _ := enrolledPlayer(t)
	_, err := tf.Setup(context.Background(), player)
	require.Error(t, err)
	assert.Equal(t, models.KindValidation, models.KindOf(err))
}

func TestEnableRejectsInvalidCode(t *testing.T) {
	store := &fakeTwoFactorStore{}
	tf := NewTwoFactor(store, "PlayPong")

	player, _ := enrolledPlayer(t)
	player.TwoFactorEnabled = false

	// Five digits can never match a six-digit TOTP code.
	_, err := tf.Enable(context.Background(), player, "12345")
	require.Error(t, err)
	assert.Equal(t, models.KindValidation, models.KindOf(err))
	assert.False(t, store.enabled)
}

func TestEnableIssuesBackupCodes(t *testing.T) {
	store := &fakeTwoFactorStore{}
	tf := NewTwoFactor(store, "PlayPong")

	player, secret := enrolledPlayer(t)
	player.TwoFactorEnabled = false

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	codes, err := tf.Enable(context.Background(), player, code)
	require.NoError(t, err)
	require.Len(t, codes, backupCodeCount)
	assert.True(t, store.enabled)
	require.Len(t, store.codes, backupCodeCount)

	// Stored hashes must not leak the plaintext but must verify against it.
	for i, c := range codes {
		assert.NotEqual(t, c, store.codes[i].CodeHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(store.codes[i].CodeHash), []byte(c)))
	}
}

func TestBackupCodeSingleUse(t *testing.T) {
	store := &fakeTwoFactorStore{}
	tf := NewTwoFactor(store, "PlayPong")

	hash, err := bcrypt.GenerateFromPassword([]byte("deadbeef00"), bcrypt.DefaultCost)
	require.NoError(t, err)
	store.codes = []models.BackupCode{{ID: 1, PlayerID: "player-1", CodeHash: string(hash)}}

	require.NoError(t, tf.UseBackupCode(context.Background(), "player-1", "deadbeef00"))

	err = tf.UseBackupCode(context.Background(), "player-1", "deadbeef00")
	require.Error(t, err)
	assert.Equal(t, models.KindAuthInvalid, models.KindOf(err))
}

func TestVerifyLoginCode(t *testing.T) {
	tf := NewTwoFactor(&fakeTwoFactorStore{}, "PlayPong")

	player, secret := enrolledPlayer(t)
	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	require.NoError(t, tf.VerifyLoginCode(player, code))

	err = tf.VerifyLoginCode(player, "12345")
	require.Error(t, err)
	assert.Equal(t, models.KindAuthInvalid, models.KindOf(err))

	disabled := &models.Player{ID: "player-2", Username: "bob"}
	err = tf.VerifyLoginCode(disabled, code)
	require.Error(t, err)
	assert.Equal(t, models.KindValidation, models.KindOf(err))
}

func TestDisableWipesSecretAndCodes(t *testing.T) {
	store := &fakeTwoFactorStore{}
	tf := NewTwoFactor(store, "PlayPong")

	player, secret := enrolledPlayer(t)
	store.secret = secret
	store.enabled = true
	store.codes = []models.BackupCode{{ID: 1, PlayerID: player.ID, CodeHash: "x"}}

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	require.NoError(t, tf.Disable(context.Background(), player, code))
	assert.Empty(t, store.secret)
	assert.False(t, store.enabled)
	assert.Empty(t, store.codes)
}
