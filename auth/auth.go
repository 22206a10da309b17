/*
Package auth issues and verifies access tokens for the HTTP layer.

Login accepts either email+password or phone+password, mirroring the
original platform. On success the service signs a JWT carrying the
account id and role; the middleware in api/ verifies it and places the
identity in the request context. Passwords are stored as bcrypt hashes.
*/
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/juanbytes/campuspay/ledger"
	"github.com/juanbytes/campuspay/user"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// =============================================================================
// IDENTITY - What a verified token proves
// =============================================================================

type Identity struct {
	AccountID ledger.AccountID
	Role      user.Role
}

func (id Identity) IsAdmin() bool  { return id.Role == user.RoleAdmin }
func (id Identity) IsVendor() bool { return id.Role == user.RoleVendor }

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	Users  user.Directory
	Secret []byte
	TTL    time.Duration
}

func NewService(users user.Directory, secret []byte, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{Users: users, Secret: secret, TTL: ttl}
}

// HashPassword hashes a plaintext password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether the plaintext matches the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Login verifies credentials by email or phone and returns a signed
// access token. Exactly one of email/phone should be set; email wins
// when both are present.
func (s *Service) Login(ctx context.Context, email, phone, password string) (string, *user.User, error) {
	var (
		u   *user.User
		err error
	)
	switch {
	case email != "":
		u, err = s.Users.FindByEmail(ctx, email)
	case phone != "":
		u, err = s.Users.FindByPhone(ctx, phone)
	default:
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if !CheckPassword(u.PasswordHash, password) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.issue(u)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

func (s *Service) issue(u *user.User) (string, error) {
	now := time.Now()
	c := claims{
		Role: string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(u.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.Secret)
}

// Verify parses a token and returns the identity it proves.
func (s *Service) Verify(tokenString string) (Identity, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.Secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	role := user.Role(c.Role)
	if c.Subject == "" || !role.Valid() {
		return Identity{}, ErrInvalidToken
	}
	return Identity{AccountID: ledger.AccountID(c.Subject), Role: role}, nil
}
