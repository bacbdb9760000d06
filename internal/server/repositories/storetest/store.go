// Package storetest provides an in-memory repomanager.Store for tests.
// WithinTx snapshots the data and restores it when fn fails.
package storetest

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/lemonauth/internal/common"
	"github.com/dmitrijs2005/lemonauth/internal/server/models"
	"github.com/dmitrijs2005/lemonauth/internal/server/repositories/options"
	"github.com/dmitrijs2005/lemonauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/lemonauth/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/lemonauth/internal/server/repositories/users"
)

type memData struct {
	users    map[string]*models.AuthUser
	sessions map[string]*models.Session
	options  map[int64]*models.Option
	nextID   int
	nextOpt  int64
}

func (d *memData) clone() *memData {
	c := &memData{
		users:    make(map[string]*models.AuthUser, len(d.users)),
		sessions: make(map[string]*models.Session, len(d.sessions)),
		options:  make(map[int64]*models.Option, len(d.options)),
		nextID:   d.nextID,
		nextOpt:  d.nextOpt,
	}
	for k, v := range d.users {
		u := *v
		c.users[k] = &u
	}
	for k, v := range d.sessions {
		s := *v
		c.sessions[k] = &s
	}
	for k, v := range d.options {
		o := *v
		c.options[k] = &o
	}
	return c
}

// Store is safe for concurrent use.
type Store struct {
	mu   sync.Mutex
	data *memData

	// FailSessionsCreate makes Sessions().Create fail.
	FailSessionsCreate error
	// FailDeleteByUser makes Sessions().DeleteByUser fail.
	FailDeleteByUser error
	// LoseResetRace makes Users().ResetPassword report no matching row.
	LoseResetRace bool
}

var _ repomanager.Store = (*Store)(nil)

func New() *Store {
	return &Store{data: &memData{
		users:    map[string]*models.AuthUser{},
		sessions: map[string]*models.Session{},
		options:  map[int64]*models.Option{},
	}}
}

func (s *Store) Users() users.Repository       { return &userRepo{s} }
func (s *Store) Sessions() sessions.Repository { return &sessionRepo{s} }
func (s *Store) Options() options.Repository   { return &optionRepo{s} }

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, st repomanager.Store) error) error {
	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	if err := fn(ctx, s); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// User returns a copy of the stored user, or nil.
func (s *Store) User(id string) *models.AuthUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.data.users[id]
	if !ok {
		return nil
	}
	c := *u
	return &c
}

// SessionCount returns how many sessions userID holds.
func (s *Store) SessionCount(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sess := range s.data.sessions {
		if sess.UserID == userID {
			n++
		}
	}
	return n
}

// Mutate applies fn to the stored user under the lock.
func (s *Store) Mutate(id string, fn func(u *models.AuthUser)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.data.users[id])
}

type userRepo struct{ s *Store }

func (r *userRepo) find(pred func(u *models.AuthUser) bool) (*models.AuthUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.data.users {
		if pred(u) {
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *userRepo) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	_, err := r.find(func(u *models.AuthUser) bool {
		return u.Username == username || u.Username == email || u.Email == username || u.Email == email
	})
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *userRepo) Create(ctx context.Context, nu *models.NewUser) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.data.users {
		if u.Username == nu.Username || u.Email == nu.Email {
			return nil, common.ErrDuplicateIdentity
		}
	}
	r.s.data.nextID++
	now := time.Now()
	u := &models.AuthUser{
		User: models.User{
			ID:            "user-" + strconv.Itoa(r.s.data.nextID),
			Username:      nu.Username,
			Email:         nu.Email,
			Role:          nu.Role,
			IsActive:      nu.IsActive,
			EmailVerified: nu.EmailVerified,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
		PasswordHash:             nu.PasswordHash,
		EmailVerificationToken:   nu.EmailVerificationToken,
		EmailVerificationExpires: nu.EmailVerificationExpires,
	}
	r.s.data.users[u.ID] = u
	pub := u.User
	return &pub, nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, err := r.GetAuthByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &u.User, nil
}

func (r *userRepo) GetAuthByID(ctx context.Context, id string) (*models.AuthUser, error) {
	return r.find(func(u *models.AuthUser) bool { return u.ID == id })
}

func (r *userRepo) GetAuthByIdentifier(ctx context.Context, identifier string) (*models.AuthUser, error) {
	if u, err := r.GetAuthByEmail(ctx, identifier); err == nil {
		return u, nil
	}
	return r.find(func(u *models.AuthUser) bool { return u.Username == identifier })
}

func (r *userRepo) GetAuthByEmail(ctx context.Context, email string) (*models.AuthUser, error) {
	return r.find(func(u *models.AuthUser) bool { return u.Email == email })
}

func (r *userRepo) GetAuthByVerificationToken(ctx context.Context, token string) (*models.AuthUser, error) {
	return r.find(func(u *models.AuthUser) bool {
		return u.EmailVerificationToken != nil && *u.EmailVerificationToken == token
	})
}

func (r *userRepo) update(id string, fn func(u *models.AuthUser) bool) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.data.users[id]
	if !ok {
		return false, nil
	}
	return fn(u), nil
}

func (r *userRepo) updateOne(id string, fn func(u *models.AuthUser)) error {
	ok, _ := r.update(id, func(u *models.AuthUser) bool { fn(u); return true })
	if !ok {
		return common.ErrorNotFound
	}
	return nil
}

func (r *userRepo) SetEmailVerification(ctx context.Context, id, token string, expires time.Time) error {
	return r.updateOne(id, func(u *models.AuthUser) {
		u.EmailVerificationToken, u.EmailVerificationExpires = &token, &expires
	})
}

func (r *userRepo) ConsumeEmailVerification(ctx context.Context, id, token string, now time.Time) (bool, error) {
	return r.update(id, func(u *models.AuthUser) bool {
		if u.EmailVerified || u.EmailVerificationToken == nil || *u.EmailVerificationToken != token ||
			!now.Before(*u.EmailVerificationExpires) {
			return false
		}
		u.EmailVerified = true
		u.EmailVerificationToken, u.EmailVerificationExpires = nil, nil
		return true
	})
}

func (r *userRepo) SetForgotPasswordOTP(ctx context.Context, id, otp string, expires time.Time) error {
	return r.updateOne(id, func(u *models.AuthUser) {
		u.ForgotPasswordOTP, u.ForgotPasswordExpires = &otp, &expires
	})
}

func (r *userRepo) ResetPassword(ctx context.Context, id, otp, passwordHash string, now time.Time) (bool, error) {
	if r.s.LoseResetRace {
		return false, nil
	}
	return r.update(id, func(u *models.AuthUser) bool {
		if u.ForgotPasswordOTP == nil || *u.ForgotPasswordOTP != otp || !now.Before(*u.ForgotPasswordExpires) {
			return false
		}
		u.PasswordHash = passwordHash
		u.ForgotPasswordOTP, u.ForgotPasswordExpires = nil, nil
		return true
	})
}

func (r *userRepo) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	return r.updateOne(id, func(u *models.AuthUser) { u.PasswordHash = passwordHash })
}

func (r *userRepo) SetMFASecret(ctx context.Context, id, sealedSecret string) error {
	return r.updateOne(id, func(u *models.AuthUser) { u.MFASecret, u.MFAEnabled = sealedSecret, false })
}

func (r *userRepo) EnableMFA(ctx context.Context, id, sealedSecret string) (bool, error) {
	return r.update(id, func(u *models.AuthUser) bool {
		if u.MFASecret != sealedSecret {
			return false
		}
		u.MFAEnabled = true
		return true
	})
}

func (r *userRepo) DisableMFA(ctx context.Context, id string) error {
	return r.updateOne(id, func(u *models.AuthUser) { u.MFASecret, u.MFAEnabled = "", false })
}

func (r *userRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.updateOne(id, func(u *models.AuthUser) { u.LastLogin = &at })
}

type sessionRepo struct{ s *Store }

func (r *sessionRepo) Create(ctx context.Context, userID, tokenHash string, validity time.Duration) error {
	if r.s.FailSessionsCreate != nil {
		return r.s.FailSessionsCreate
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	r.s.data.sessions[tokenHash] = &models.Session{
		ID: tokenHash[:8], UserID: userID, TokenHash: tokenHash, ExpiresAt: now.Add(validity), CreatedAt: now,
	}
	return nil
}

func (r *sessionRepo) Find(ctx context.Context, tokenHash string) (*models.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	s, ok := r.s.data.sessions[tokenHash]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *s
	return &c, nil
}

func (r *sessionRepo) Delete(ctx context.Context, tokenHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.data.sessions, tokenHash)
	return nil
}

func (r *sessionRepo) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	if r.s.FailDeleteByUser != nil {
		return 0, r.s.FailDeleteByUser
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for k, s := range r.s.data.sessions {
		if s.UserID == userID {
			delete(r.s.data.sessions, k)
			n++
		}
	}
	return n, nil
}

type optionRepo struct{ s *Store }

func (r *optionRepo) FindByTypeAndName(ctx context.Context, optionType, name string) (*models.Option, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.data.options {
		if o.Type == optionType && strings.EqualFold(o.Name, strings.TrimSpace(name)) {
			c := *o
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *optionRepo) FindByID(ctx context.Context, id int64) (*models.Option, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.data.options[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *o
	return &c, nil
}

func (r *optionRepo) Create(ctx context.Context, o *models.Option) (*models.Option, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.nextOpt++
	c := *o
	c.ID = r.s.data.nextOpt
	c.CreatedAt, c.UpdatedAt = time.Now(), time.Now()
	r.s.data.options[c.ID] = &c
	out := c
	return &out, nil
}

func (r *optionRepo) Update(ctx context.Context, o *models.Option) (*models.Option, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.options[o.ID]; !ok {
		return nil, common.ErrorNotFound
	}
	c := *o
	c.UpdatedAt = time.Now()
	r.s.data.options[o.ID] = &c
	out := c
	return &out, nil
}

func (r *optionRepo) ListMinimal(ctx context.Context) ([]models.OptionListItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.OptionListItem
	for _, o := range r.s.data.options {
		out = append(out, models.OptionListItem{ID: o.ID, Type: o.Type, Name: o.Name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *optionRepo) ListByType(ctx context.Context, optionType string) ([]models.Option, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Option
	for _, o := range r.s.data.options {
		if o.Type == optionType {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

