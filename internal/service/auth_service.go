package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"extruder_monitor/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultTokenTTL   = time.Hour
	tokenIssuer       = "extruder_monitor"
	minPasswordLength = 8
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{1,31}$`)

var (
	ErrInvalidUsername  = errors.New("username must be 2-32 characters of a-z, 0-9, '.', '_' or '-'")
	ErrWeakPassword     = fmt.Errorf("password must be at least %d characters", minPasswordLength)
	ErrOperatorExists   = errors.New("operator already exists")
	ErrInvalidPassword  = errors.New("invalid password")
	ErrOperatorNotFound = errors.New("operator not found")
	ErrInvalidToken     = errors.New("invalid token")
)

// AuthService registers line operators and issues the bearer tokens that
// gate serial and session control.
type AuthService struct {
	operators  repository.Authorization
	signingKey []byte
	tokenTTL   time.Duration
	now        func() time.Time
}

func NewAuthService(repo repository.Authorization, signingKey string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	return &AuthService{
		operators:  repo,
		signingKey: []byte(signingKey),
		tokenTTL:   tokenTTL,
		now:        time.Now,
	}
}

// Claims carry the operator id and, as subject, the operator's username.
type Claims struct {
	jwt.RegisteredClaims
	OperatorID int `json:"operator_id"`
}

func normalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// SignUp creates an operator. Usernames are case-insensitive.
func (s *AuthService) SignUp(username, password string) (int, error) {
	name := normalizeUsername(username)
	if !usernamePattern.MatchString(name) {
		return 0, ErrInvalidUsername
	}
	if len(strings.TrimSpace(password)) < minPasswordLength {
		return 0, ErrWeakPassword
	}

	existing, err := s.operators.GetByUsername(name)
	if err != nil {
		return 0, fmt.Errorf("look up operator %q: %w", name, err)
	}
	if existing != nil {
		return 0, ErrOperatorExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	return s.operators.Create(name, string(hash))
}

// GenerateToken checks credentials and returns a signed token.
func (s *AuthService) GenerateToken(username, password string) (string, error) {
	name := normalizeUsername(username)
	op, err := s.operators.GetByUsername(name)
	if err != nil {
		return "", fmt.Errorf("look up operator %q: %w", name, err)
	}
	if op == nil {
		return "", ErrOperatorNotFound
	}
	if bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidPassword
	}
	return s.issueToken(op.ID, op.Username)
}

// ParseToken validates an HS256 token from this service and returns the operator id.
func (s *AuthService) ParseToken(accessToken string) (int, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(accessToken, claims,
		func(*jwt.Token) (interface{}, error) { return s.signingKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.OperatorID <= 0 {
		return 0, ErrInvalidToken
	}
	return claims.OperatorID, nil
}

func (s *AuthService) issueToken(operatorID int, username string) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OperatorID: operatorID,
	})
	return token.SignedString(s.signingKey)
}

type operatorKey struct{}

// WithOperator tags ctx with the operator acting on the extruder. Control
// operations read it back to attribute connects, disconnects and resets.
func WithOperator(ctx context.Context, operatorID int) context.Context {
	return context.WithValue(ctx, operatorKey{}, operatorID)
}

// OperatorFrom returns the operator set by WithOperator, if any.
func OperatorFrom(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(operatorKey{}).(int)
	return id, ok && id > 0
}
