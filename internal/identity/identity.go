package identity

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strconv"
	"time"

	"tickmate/internal/errors"
	"tickmate/internal/models"
	"tickmate/internal/repository"

	"github.com/golang-jwt/jwt/v5"
)

type Config struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// Principal is what the rest of the system knows about a caller: who they
// are and which role they hold. Permissions for scanning are checked against
// event_staff, not here.
type Principal struct {
	ID   int64
	Role string
}

// Service is the IdentityStore: it mints bearer tokens at login and resolves
// them back into principals on every request.
type Service struct {
	users *repository.UserRepository
	cfg   Config
}

func NewService(users *repository.UserRepository, cfg Config) *Service {
	return &Service{users: users, cfg: cfg}
}

func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return fmt.Sprintf("%x", sum)
}

func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	user := &models.User{
		Email:        req.Email,
		PasswordHash: hashPassword(req.Password),
		FirstName:    req.FirstName,
		Surname:      req.Surname,
		Role:         req.Role,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if err == repository.ErrEmailTaken {
			return nil, errors.New(errors.KindValidation, "email already registered")
		}
		return nil, errors.Wrap(errors.KindInternal, "failed to create user", err)
	}

	return user, nil
}

func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, errors.Wrap(errors.KindInternal, "failed to look up user", err)
	}
	if user == nil || !user.IsActive || user.PasswordHash != hashPassword(req.Password) {
		return nil, errors.New(errors.KindUnauthorized, "invalid credentials")
	}

	token, expiresAt, err := s.IssueToken(user)
	if err != nil {
		return nil, errors.Wrap(errors.KindInternal, "failed to issue token", err)
	}

	return &models.AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		UserID:    user.UserID,
		Role:      user.Role,
	}, nil
}

// IssueToken mints an HS256 bearer token carrying the user id and role.
func (s *Service) IssueToken(user *models.User) (string, time.Time, error) {
	expiresAt := time.Now().Add(s.cfg.TokenTTL)

	claims := jwt.MapClaims{
		"sub":  strconv.FormatInt(user.UserID, 10),
		"role": user.Role,
		"iat":  time.Now().Unix(),
		"exp":  expiresAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, expiresAt, nil
}

// ResolvePrincipal validates a bearer token and returns the principal it
// names. Every entry point authorizes through this before touching the
// ledger or the check-in service.
func (s *Service) ResolvePrincipal(ctx context.Context, token string) (*Principal, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, errors.New(errors.KindUnauthorized, "invalid or expired token")
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return nil, errors.New(errors.KindUnauthorized, "token missing subject")
	}

	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return nil, errors.New(errors.KindUnauthorized, "malformed token subject")
	}

	role, _ := claims["role"].(string)
	if role == "" {
		return nil, errors.New(errors.KindUnauthorized, "token missing role")
	}

	return &Principal{ID: userID, Role: role}, nil
}

// HasRole reports whether the principal holds the given role.
func (p *Principal) HasRole(role string) bool {
	return p != nil && p.Role == role
}
