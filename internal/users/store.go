// Package users is the in-memory credential store behind signup and login.
package users

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mossy-p/live-signaling/internal/logger"
)

const minPasswordLength = 4

var (
	ErrInvalidAdminKey    = errors.New("invalid admin key")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrMissingCredentials = errors.New("missing credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrWrongPassword      = errors.New("wrong password")
)

// User is a registered account.
type User struct {
	ID           string
	DisplayName  string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Profile is the public projection of a User.
type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// Store keeps users for the lifetime of the process.
type Store struct {
	adminKey string
	cost     int

	mu    sync.RWMutex
	users map[string]*User
}

func NewStore(adminKey string) *Store {
	return &Store{
		adminKey: adminKey,
		cost:     bcrypt.DefaultCost,
		users:    make(map[string]*User),
	}
}

// Signup creates a user when accessKey matches the admin key.
func (s *Store) Signup(ctx context.Context, accessKey, password, name string) (*User, error) {
	if accessKey == "" || subtle.ConstantTimeCompare([]byte(accessKey), []byte(s.adminKey)) != 1 {
		return nil, ErrInvalidAdminKey
	}
	if len(password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	id := "user-" + uuid.NewString()[:8]
	if name == "" {
		name = id
	}
	u := &User{
		ID:           id,
		DisplayName:  name,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}

	s.mu.Lock()
	s.users[id] = u
	s.mu.Unlock()

	l := logger.Ctx(ctx)
	l.Info().Str(logger.FieldSubject, id).Msg("user created")
	return u, nil
}

// Login checks password against the stored hash for id.
func (s *Store) Login(_ context.Context, id, password string) (*User, error) {
	if id == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	s.mu.RLock()
	u, ok := s.users[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrUserNotFound
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, ErrWrongPassword
	}
	return u, nil
}

// DisplayName returns the display name for subject, or "" if unknown.
func (s *Store) DisplayName(subject string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[subject]; ok {
		return u.DisplayName
	}
	return ""
}

// List returns every user ordered by creation time.
func (s *Store) List() []Profile {
	s.mu.RLock()
	all := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		all = append(all, u)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	out := make([]Profile, 0, len(all))
	for _, u := range all {
		out = append(out, Profile{ID: u.ID, DisplayName: u.DisplayName})
	}
	return out
}
