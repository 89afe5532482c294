// Package account manages customer accounts.
package account

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/go-faster/errors"
	"golang.org/x/crypto/bcrypt"
)

// Sentinel errors for account operations.
var (
	ErrNotFound           = errors.New("user not found")
	ErrUsernameTaken      = errors.New("a user with that username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

const (
	minPasswordLength = 8
	maxUsernameLength = 150
)

// User is a registered customer.
type User struct {
	ID           int64
	Username     string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Created      time.Time
}

// Repository persists users. Create returns ErrUsernameTaken on conflict.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
}

// ValidationError carries per-field messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s: %s", name, e.Fields[name])
	}
	return "invalid registration: " + strings.Join(parts, "; ")
}

// RegisterRequest is a sign-up form.
type RegisterRequest struct {
	Username        string
	Email           string
	FirstName       string
	LastName        string
	Password        string
	PasswordConfirm string
}

func (r *RegisterRequest) validate() error {
	fields := make(map[string]string)

	switch {
	case r.Username == "":
		fields["username"] = "This field is required."
	case len(r.Username) > maxUsernameLength:
		fields["username"] = fmt.Sprintf("Ensure this value has at most %d characters.", maxUsernameLength)
	case !validUsername(r.Username):
		fields["username"] = "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	}

	if r.Email != "" {
		if _, err := mail.ParseAddress(r.Email); err != nil {
			fields["email"] = "Enter a valid email address."
		}
	}

	switch {
	case len(r.Password) < minPasswordLength:
		fields["password"] = fmt.Sprintf("This password is too short. It must contain at least %d characters.", minPasswordLength)
	case strings.IndexFunc(r.Password, func(c rune) bool { return !unicode.IsDigit(c) }) < 0:
		fields["password"] = "This password is entirely numeric."
	case strings.EqualFold(r.Password, r.Username):
		fields["password"] = "The password is too similar to the username."
	}
	if r.PasswordConfirm != r.Password {
		fields["password_confirm"] = "The two password fields didn't match."
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func validUsername(s string) bool {
	for _, c := range s {
		if unicode.IsLetter(c) || unicode.IsDigit(c) || strings.ContainsRune("@.+-_", c) {
			continue
		}
		return false
	}
	return true
}

// Service registers and authenticates users.
type Service struct {
	repo Repository
	cost int
	// dummyHash keeps unknown-user logins as slow as real ones.
	dummyHash []byte
}

// NewService creates an account Service hashing with the given bcrypt cost.
// A zero cost uses bcrypt.DefaultCost.
func NewService(repo Repository, cost int) *Service {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
	return &Service{repo: repo, cost: cost, dummyHash: dummy}
}

// Register validates the form and creates the user.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := req.validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}
	u := &User{
		Username:     req.Username,
		Email:        req.Email,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		PasswordHash: string(hash),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return nil, &ValidationError{Fields: map[string]string{"username": ErrUsernameTaken.Error()}}
		}
		return nil, errors.Wrap(err, "create user")
	}
	return u, nil
}

// Login checks the credentials.
func (s *Service) Login(ctx context.Context, username, password string) (*User, error) {
	u, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, errors.Wrap(err, "get user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Get returns a user by id.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get user %d", id)
	}
	return u, nil
}
