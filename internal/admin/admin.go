package admin

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/lemonauth/internal/common"
	"github.com/dmitrijs2005/lemonauth/internal/server/auth"
	"github.com/dmitrijs2005/lemonauth/internal/server/models"
	"github.com/dmitrijs2005/lemonauth/internal/server/repositories/users"
)

var ErrUsage = errors.New("usage: lemonauthctl <migrate|create-admin> [flags]")

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Migrator applies pending schema migrations.
type Migrator interface {
	Migrate(ctx context.Context) error
}

// App runs operator commands against the identity store.
type App struct {
	users    users.Repository
	hasher   *auth.PasswordHasher
	migrator Migrator
	in       *bufio.Reader
	out      io.Writer
}

func NewApp(u users.Repository, h *auth.PasswordHasher, m Migrator, in io.Reader, out io.Writer) *App {
	return &App{users: u, hasher: h, migrator: m, in: bufio.NewReader(in), out: out}
}

// Run dispatches args[0] to a command.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}

	switch args[0] {
	case "migrate":
		if err := a.migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		fmt.Fprintln(a.out, "Migrations applied")
		return nil
	case "create-admin":
		return a.createAdminCommand(ctx, args[1:])
	default:
		return ErrUsage
	}
}

func (a *App) createAdminCommand(ctx context.Context, args []string) error {
	var username, email string

	fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
	fs.SetOutput(a.out)
	fs.StringVar(&username, "u", "", "admin username")
	fs.StringVar(&email, "e", "", "admin email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var err error
	if username == "" {
		if username, err = GetSimpleText(a.in, "Username", a.out); err != nil {
			return err
		}
	}
	if email == "" {
		if email, err = GetSimpleText(a.in, "Email", a.out); err != nil {
			return err
		}
	}

	pw, err := GetConfirmedPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	u, err := a.CreateAdmin(ctx, username, email, string(pw))
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Admin %s created (id %s)\n", u.Username, u.ID)
	return nil
}

// CreateAdmin inserts an active, verified account with the admin role.
func (a *App) CreateAdmin(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if n := utf8.RuneCountInString(username); n < 3 || n > 30 {
		return nil, common.WithMessage(common.ErrValidationFailed, "username must be between 3 and 30 characters")
	}
	if strings.Contains(username, "@") {
		return nil, common.WithMessage(common.ErrValidationFailed, "username must not contain @")
	}
	if !emailPattern.MatchString(email) {
		return nil, common.WithMessage(common.ErrValidationFailed, "invalid email address")
	}
	if utf8.RuneCountInString(password) < 6 {
		return nil, common.WithMessage(common.ErrValidationFailed, "password must be at least 6 characters")
	}

	exists, err := a.users.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, common.ErrDuplicateIdentity
	}

	hash, err := a.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	return a.users.Create(ctx, &models.NewUser{
		Username:      username,
		Email:         email,
		PasswordHash:  hash,
		Role:          models.RoleAdmin,
		IsActive:      true,
		EmailVerified: true,
	})
}
