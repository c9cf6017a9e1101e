package auth

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgauth "github.com/minhngo-dev/thiepcuoi-backend/pkg/auth"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/auth/session"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/config"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/db/models"
	pkgerrors "github.com/minhngo-dev/thiepcuoi-backend/pkg/errors"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/logger"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/security"
)

type stubAdminRepo struct {
	admins      map[uuid.UUID]*models.AdminUser
	lastLoginAt *time.Time
	finds       int
	newHash     string
}

func newStubAdminRepo() *stubAdminRepo {
	return &stubAdminRepo{admins: map[uuid.UUID]*models.AdminUser{}}
}

func (s *stubAdminRepo) FindByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	s.finds++
	for _, admin := range s.admins {
		if admin.Email == email {
			return admin, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubAdminRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.AdminUser, error) {
	admin, ok := s.admins[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return admin, nil
}

func (s *stubAdminRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	if _, ok := s.admins[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	s.lastLoginAt = &at
	return nil
}

func (s *stubAdminRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	admin, ok := s.admins[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	admin.PasswordHash = passwordHash
	s.newHash = passwordHash
	return nil
}

type stubSessionManager struct {
	generated []string
	rotateOld string
	revoked   []string
	rotateErr error
}

func (s *stubSessionManager) Generate(ctx context.Context, accessID string) (string, error) {
	s.generated = append(s.generated, accessID)
	return "refresh-" + accessID, nil
}

func (s *stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	if s.rotateErr != nil {
		return "", "", s.rotateErr
	}
	s.rotateOld = oldAccessID
	newID := session.NewAccessID()
	return newID, "refresh-" + newID, nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	return nil
}

type stubLimiter struct {
	denyScopes map[string]bool
	seen       []string
}

func (s *stubLimiter) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	s.seen = append(s.seen, scope)
	if s.denyScopes[scope] {
		return false, limit + 1, nil
	}
	return true, 1, nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:                 "test-secret-for-auth",
		Issuer:                 "thiepcuoi-test",
		ExpirationMinutes:      15,
		RefreshTokenTTLMinutes: 60,
	}
}

func testPasswordConfig() config.PasswordConfig {
	// Low-cost parameters keep the argon2id hashing fast under test.
	return config.PasswordConfig{
		ArgonMemoryKB:    8192,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{
		ServiceName: "auth-test",
		Level:       logger.ParseLevel("debug"),
		Output:      io.Discard,
	})
}

func seedAdmin(t *testing.T, repo *stubAdminRepo, email, password string) *models.AdminUser {
	t.Helper()
	hash, err := security.HashPassword(password, testPasswordConfig())
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	admin := &models.AdminUser{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		DisplayName:  "Minh",
		IsActive:     true,
	}
	repo.admins[admin.ID] = admin
	return admin
}

func newTestService(t *testing.T, repo *stubAdminRepo, sessions *stubSessionManager, limiter *stubLimiter) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		AdminRepo:      repo,
		SessionManager: sessions,
		RateLimiter:    limiter,
		JWTConfig:      testJWTConfig(),
		PasswordConfig: testPasswordConfig(),
		RateLimits: config.AuthRateLimitConfig{
			LoginWindow:     time.Minute,
			LoginEmailLimit: 5,
			LoginIPLimit:    20,
		},
		Logger: testLogger(),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestLoginMintsTokenPair(t *testing.T) {
	repo := newStubAdminRepo()
	sessions := &stubSessionManager{}
	limiter := &stubLimiter{}
	admin := seedAdmin(t, repo, "minh@example.com", "một mật khẩu dài")
	svc := newTestService(t, repo, sessions, limiter)

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    "  Minh@Example.com ",
		Password: "một mật khẩu dài",
		ClientIP: "203.0.113.7",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("minted token does not parse: %v", err)
	}
	if claims.AdminID != admin.ID || claims.Email != admin.Email {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if len(sessions.generated) != 1 || sessions.generated[0] != claims.ID {
		t.Fatalf("session not keyed by jti: %v vs %s", sessions.generated, claims.ID)
	}
	if resp.RefreshToken != "refresh-"+claims.ID {
		t.Fatalf("unexpected refresh token %q", resp.RefreshToken)
	}
	if repo.lastLoginAt == nil {
		t.Fatal("last login not recorded")
	}
	if resp.Admin.DisplayName != "Minh" {
		t.Fatalf("admin DTO not filled: %+v", resp.Admin)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	repo := newStubAdminRepo()
	admin := seedAdmin(t, repo, "minh@example.com", "một mật khẩu dài")
	svc := newTestService(t, repo, &stubSessionManager{}, &stubLimiter{})

	cases := []struct {
		name string
		req  LoginRequest
		prep func()
	}{
		{"wrong password", LoginRequest{Email: "minh@example.com", Password: "sai rồi"}, nil},
		{"unknown email", LoginRequest{Email: "ai-do@example.com", Password: "một mật khẩu dài"}, nil},
		{"empty email", LoginRequest{Password: "một mật khẩu dài"}, nil},
		{"inactive account", LoginRequest{Email: "minh@example.com", Password: "một mật khẩu dài"}, func() {
			admin.IsActive = false
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.prep != nil {
				tc.prep()
			}
			_, err := svc.Login(context.Background(), tc.req)
			perr := pkgerrors.As(err)
			if perr == nil || perr.Code() != pkgerrors.CodeUnauthorized {
				t.Fatalf("expected unauthorized, got %v", err)
			}
			if perr.Message() != invalidCredentialsMessage {
				t.Fatalf("credential failures must not leak detail: %q", perr.Message())
			}
		})
	}
}

func TestLoginRateLimited(t *testing.T) {
	repo := newStubAdminRepo()
	seedAdmin(t, repo, "minh@example.com", "một mật khẩu dài")
	limiter := &stubLimiter{denyScopes: map[string]bool{
		"login:email:minh@example.com": true,
	}}
	svc := newTestService(t, repo, &stubSessionManager{}, limiter)

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "minh@example.com",
		Password: "một mật khẩu dài",
	})
	if perr := pkgerrors.As(err); perr == nil || perr.Code() != pkgerrors.CodeRateLimit {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if repo.finds != 0 {
		t.Fatal("limited request must not hit the database")
	}
}

func TestLoginChecksIPWindow(t *testing.T) {
	repo := newStubAdminRepo()
	seedAdmin(t, repo, "minh@example.com", "một mật khẩu dài")
	limiter := &stubLimiter{denyScopes: map[string]bool{
		"login:ip:198.51.100.9": true,
	}}
	svc := newTestService(t, repo, &stubSessionManager{}, limiter)

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "minh@example.com",
		Password: "một mật khẩu dài",
		ClientIP: "198.51.100.9",
	})
	if perr := pkgerrors.As(err); perr == nil || perr.Code() != pkgerrors.CodeRateLimit {
		t.Fatalf("expected rate limit error, got %v", err)
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	repo := newStubAdminRepo()
	sessions := &stubSessionManager{}
	admin := seedAdmin(t, repo, "minh@example.com", "một mật khẩu dài")
	svc := newTestService(t, repo, sessions, &stubLimiter{})

	oldAccessID := session.NewAccessID()
	oldToken, err := pkgauth.MintAccessToken(testJWTConfig(), time.Now().UTC(), pkgauth.AccessTokenPayload{
		AdminID: admin.ID,
		Email:   admin.Email,
		JTI:     oldAccessID,
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	resp, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  oldToken,
		RefreshToken: "refresh-" + oldAccessID,
	})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if sessions.rotateOld != oldAccessID {
		t.Fatalf("rotated wrong session: %q", sessions.rotateOld)
	}

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("new token does not parse: %v", err)
	}
	if claims.ID == oldAccessID {
		t.Fatal("jti not rotated")
	}
	if claims.AdminID != admin.ID {
		t.Fatalf("admin identity lost in rotation: %+v", claims)
	}
	if resp.RefreshToken != "refresh-"+claims.ID {
		t.Fatalf("refresh token not tied to new jti: %q", resp.RefreshToken)
	}
}

func TestRefreshRejectsInvalidTokens(t *testing.T) {
	repo := newStubAdminRepo()
	admin := seedAdmin(t, repo, "minh@example.com", "một mật khẩu dài")
	sessions := &stubSessionManager{rotateErr: session.ErrInvalidRefreshToken}
	svc := newTestService(t, repo, sessions, &stubLimiter{})

	_, err := svc.Refresh(context.Background(), RefreshRequest{AccessToken: "garbage", RefreshToken: "x"})
	if perr := pkgerrors.As(err); perr == nil || perr.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for bad jwt, got %v", err)
	}

	token, err := pkgauth.MintAccessToken(testJWTConfig(), time.Now().UTC(), pkgauth.AccessTokenPayload{
		AdminID: admin.ID,
		Email:   admin.Email,
		JTI:     session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	_, err = svc.Refresh(context.Background(), RefreshRequest{AccessToken: token, RefreshToken: "stolen"})
	if perr := pkgerrors.As(err); perr == nil || perr.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for bad refresh token, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	sessions := &stubSessionManager{}
	svc := newTestService(t, newStubAdminRepo(), sessions, &stubLimiter{})

	if err := svc.Logout(context.Background(), "access-1"); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if len(sessions.revoked) != 1 || sessions.revoked[0] != "access-1" {
		t.Fatalf("session not revoked: %v", sessions.revoked)
	}

	err := svc.Logout(context.Background(), "  ")
	if perr := pkgerrors.As(err); perr == nil || perr.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for blank access id, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	repo := newStubAdminRepo()
	admin := seedAdmin(t, repo, "minh@example.com", "một mật khẩu dài")
	svc := newTestService(t, repo, &stubSessionManager{}, &stubLimiter{})

	err := svc.ChangePassword(context.Background(), admin.ID, "một mật khẩu dài", "mật khẩu mới hơn")
	if err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	ok, err := security.VerifyPassword("mật khẩu mới hơn", repo.newHash)
	if err != nil || !ok {
		t.Fatalf("new hash does not verify: ok=%v err=%v", ok, err)
	}

	err = svc.ChangePassword(context.Background(), admin.ID, "sai rồi", "mật khẩu mới nữa")
	if perr := pkgerrors.As(err); perr == nil || perr.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for wrong current password, got %v", err)
	}

	err = svc.ChangePassword(context.Background(), admin.ID, "mật khẩu mới hơn", "ngắn")
	if perr := pkgerrors.As(err); perr == nil || perr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for short password, got %v", err)
	}
}
