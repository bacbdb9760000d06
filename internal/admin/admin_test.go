package admin

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dmitrijs2005/lemonauth/internal/common"
	"github.com/dmitrijs2005/lemonauth/internal/server/auth"
	"github.com/dmitrijs2005/lemonauth/internal/server/models"
	"github.com/dmitrijs2005/lemonauth/internal/server/repositories/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMigrator struct {
	calls int
	err   error
}

func (m *fakeMigrator) Migrate(context.Context) error {
	m.calls++
	return m.err
}

var testParams = auth.Argon2Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func newTestApp(input string) (*App, *storetest.Store, *fakeMigrator, *bytes.Buffer) {
	store := storetest.New()
	m := &fakeMigrator{}
	out := &bytes.Buffer{}
	app := NewApp(store.Users(), auth.NewPasswordHasher(testParams), m, strings.NewReader(input), out)
	return app, store, m, out
}

func TestRun_Usage(t *testing.T) {
	app, _, _, _ := newTestApp("")

	require.ErrorIs(t, app.Run(context.Background(), nil), ErrUsage)
	require.ErrorIs(t, app.Run(context.Background(), []string{"drop-db"}), ErrUsage)
}

func TestRun_Migrate(t *testing.T) {
	app, _, m, out := newTestApp("")

	require.NoError(t, app.Run(context.Background(), []string{"migrate"}))
	assert.Equal(t, 1, m.calls)
	assert.Contains(t, out.String(), "Migrations applied")

	m.err = errors.New("connection refused")
	err := app.Run(context.Background(), []string{"migrate"})
	require.ErrorIs(t, err, m.err)
}

func TestCreateAdmin(t *testing.T) {
	app, store, _, _ := newTestApp("")
	ctx := context.Background()

	u, err := app.CreateAdmin(ctx, " root ", "root@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "root", u.Username)
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.True(t, u.IsActive)
	assert.True(t, u.EmailVerified)

	stored := store.User(u.ID)
	require.NotNil(t, stored)
	ok, err := auth.NewPasswordHasher(testParams).Verify("hunter22", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = app.CreateAdmin(ctx, "root", "other@example.com", "hunter22")
	require.ErrorIs(t, err, common.ErrDuplicateIdentity)
}

func TestCreateAdmin_Validation(t *testing.T) {
	tests := []struct {
		name     string
		username string
		email    string
		password string
		msg      string
	}{
		{"short username", "ro", "root@example.com", "hunter22", "username must be between 3 and 30 characters"},
		{"username with at", "root@example.com", "root@example.com", "hunter22", "username must not contain @"},
		{"bad email", "root", "root.example.com", "hunter22", "invalid email address"},
		{"short password", "root", "root@example.com", "abc", "password must be at least 6 characters"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app, _, _, _ := newTestApp("")
			_, err := app.CreateAdmin(context.Background(), tc.username, tc.email, tc.password)
			require.ErrorIs(t, err, common.ErrValidationFailed)
			assert.EqualError(t, err, tc.msg)
		})
	}
}

func TestRun_CreateAdminWithFlags(t *testing.T) {
	stubPasswords(t, "hunter22", "hunter22")
	app, store, _, out := newTestApp("")

	err := app.Run(context.Background(), []string{"create-admin", "-u", "root", "-e", "root@example.com"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Admin root created")

	u, err := store.Users().GetAuthByEmail(context.Background(), "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)
}

func TestRun_CreateAdminPrompts(t *testing.T) {
	stubPasswords(t, "hunter22", "hunter22")
	app, store, _, out := newTestApp("root\nroot@example.com\n")

	require.NoError(t, app.Run(context.Background(), []string{"create-admin"}))
	assert.Contains(t, out.String(), "Username\n> ")
	assert.Contains(t, out.String(), "Email\n> ")

	exists, err := store.Users().ExistsByUsernameOrEmail(context.Background(), "root", "root@example.com")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRun_CreateAdminPasswordMismatch(t *testing.T) {
	stubPasswords(t, "hunter22", "hunter23")
	app, store, _, _ := newTestApp("")

	err := app.Run(context.Background(), []string{"create-admin", "-u", "root", "-e", "root@example.com"})
	require.EqualError(t, err, "passwords do not match")

	exists, _ := store.Users().ExistsByUsernameOrEmail(context.Background(), "root", "root@example.com")
	assert.False(t, exists)
}
