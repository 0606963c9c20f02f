// Package auth issues and validates login sessions and manages staff
// accounts. A login produces an HS256 JWT whose SHA-256 hash is persisted as
// a session row; validation requires both a valid signature and a live row,
// so revocation works immediately.
package auth

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/assogest/assogest/internal/app/domain/user"
	"github.com/assogest/assogest/internal/app/services/rbac"
	"github.com/assogest/assogest/internal/app/storage"
	"github.com/assogest/assogest/internal/logging"
	"github.com/assogest/assogest/internal/platform/cache"
)

var (
	// ErrInvalidCredentials covers unknown emails and wrong passwords alike.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrInactiveUser rejects logins on deactivated accounts.
	ErrInactiveUser = errors.New("auth: user deactivated")
	// ErrInvalidToken covers malformed, forged, expired and revoked tokens.
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Claims is the JWT payload.
type Claims struct {
	UserID int64  `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Service handles logins, sessions and account management.
type Service struct {
	users    storage.UserStore
	rbac     *rbac.Service
	sessions cache.Cache
	secret   []byte
	ttl      time.Duration
	log      *logging.Logger
}

// New constructs the auth service. sessions may be nil to skip the session
// cache and hit the store on every request.
func New(users storage.UserStore, rbacSvc *rbac.Service, sessions cache.Cache, secret string, ttl time.Duration, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("auth")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		users:    users,
		rbac:     rbacSvc,
		sessions: sessions,
		secret:   []byte(secret),
		ttl:      ttl,
		log:      log,
	}
}

// TTL returns the session lifetime, for cookie expiry.
func (s *Service) TTL() time.Duration { return s.ttl }

// Principal is an authenticated user with the resolved authorization data.
type Principal struct {
	User        user.User
	Roles       []string
	Permissions map[string]struct{}
}

// Can reports whether the principal holds a permission, honoring the
// legacy-code equivalence table.
func (p *Principal) Can(code string) bool {
	for _, c := range rbac.Expand(code) {
		if _, ok := p.Permissions[c]; ok {
			return true
		}
	}
	return false
}

// HasRole reports whether the principal holds the named role.
func (p *Principal) HasRole(name string) bool {
	for _, r := range p.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the principal holds at least one of the names.
func (p *Principal) HasAnyRole(names ...string) bool {
	for _, n := range names {
		if p.HasRole(n) {
			return true
		}
	}
	return false
}

// PermissionCodes returns the granted codes in sorted order.
func (p *Principal) PermissionCodes() []string {
	codes := make([]string, 0, len(p.Permissions))
	for code := range p.Permissions {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// LoginResult carries the issued token back to the handler.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      user.User
}

// Login checks the password and opens a session.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, err
	}
	if !u.Actif {
		return LoginResult{}, ErrInactiveUser
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	expires := now.Add(s.ttl)
	token, err := s.generateToken(u, now, expires)
	if err != nil {
		return LoginResult{}, fmt.Errorf("sign token: %w", err)
	}

	hash := hashToken(token)
	if _, err := s.users.CreateUserSession(ctx, user.Session{
		TokenHash: hash,
		UserID:    u.ID,
		ExpiresAt: expires,
	}); err != nil {
		return LoginResult{}, fmt.Errorf("persist session: %w", err)
	}
	s.cacheSession(ctx, hash, u.ID, expires.Sub(now))

	s.log.Info().Int64("user_id", u.ID).Str("email", u.Email).Msg("login")
	return LoginResult{Token: token, ExpiresAt: expires, User: u}, nil
}

// Logout revokes the session behind a token. Unknown tokens are a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	hash := hashToken(token)
	if s.sessions != nil {
		_ = s.sessions.Delete(ctx, sessionKey(hash))
	}
	err := s.users.DeleteSessionByTokenHash(ctx, hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}

// Authenticate validates a token and loads the principal: JWT signature,
// live session row (through the cache when configured), active user, and
// the effective permission set.
func (s *Service) Authenticate(ctx context.Context, token string) (Principal, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}

	hash := hashToken(token)
	userID, ok := s.cachedSession(ctx, hash)
	if !ok {
		sess, err := s.users.GetSessionByTokenHash(ctx, hash)
		if errors.Is(err, sql.ErrNoRows) {
			return Principal{}, ErrInvalidToken
		}
		if err != nil {
			return Principal{}, err
		}
		if !sess.ExpiresAt.After(time.Now().UTC()) {
			_ = s.users.DeleteSessionByTokenHash(ctx, hash)
			return Principal{}, ErrInvalidToken
		}
		userID = sess.UserID
		s.cacheSession(ctx, hash, sess.UserID, time.Until(sess.ExpiresAt))
	}
	if userID != claims.UserID {
		return Principal{}, ErrInvalidToken
	}

	u, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return Principal{}, ErrInvalidToken
	}
	if err != nil {
		return Principal{}, err
	}
	if !u.Actif {
		return Principal{}, ErrInactiveUser
	}

	roles, err := s.rbac.UserRoles(ctx, u.ID)
	if err != nil {
		return Principal{}, err
	}
	perms, err := s.rbac.EffectivePermissions(ctx, u.ID)
	if err != nil {
		return Principal{}, err
	}

	p := Principal{User: u, Permissions: make(map[string]struct{}, len(perms))}
	for _, r := range roles {
		p.Roles = append(p.Roles, r.Name)
	}
	for _, perm := range perms {
		p.Permissions[perm.Code] = struct{}{}
	}
	return p, nil
}

func (s *Service) generateToken(u user.User, now, expires time.Time) (string, error) {
	claims := &Claims{
		UserID: u.ID,
		Email:  u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "assogest",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Service) parseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

func (s *Service) cacheSession(ctx context.Context, hash string, userID int64, ttl time.Duration) {
	if s.sessions == nil || ttl <= 0 {
		return
	}
	if err := s.sessions.Set(ctx, sessionKey(hash), strconv.FormatInt(userID, 10), ttl); err != nil {
		s.log.Warn().Err(err).Msg("session cache set failed")
	}
}

func (s *Service) cachedSession(ctx context.Context, hash string) (int64, bool) {
	if s.sessions == nil {
		return 0, false
	}
	raw, ok, err := s.sessions.Get(ctx, sessionKey(hash))
	if err != nil {
		s.log.Warn().Err(err).Msg("session cache get failed")
		return 0, false
	}
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func sessionKey(hash string) string { return "session:" + hash }

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
