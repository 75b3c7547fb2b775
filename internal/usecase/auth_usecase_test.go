package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"healthsync-api/config"
	"healthsync-api/internal/delivery/dto"
	"healthsync-api/internal/domain/entity"
	"healthsync-api/internal/service"
	"healthsync-api/pkg/jwt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type authFixture struct {
	uc     AuthUsecase
	users  *mockUserRepo
	tokens *fakeTokenStore
	mailer *fakeMailer
	audit  *mockAuditLogRepo
	jwt    *jwt.JWTService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	log := testLogger()
	f := &authFixture{
		users:  newMockUserRepo(),
		tokens: newFakeTokenStore(),
		mailer: &fakeMailer{},
		audit:  &mockAuditLogRepo{},
		jwt: jwt.NewJWTService(config.JWTConfig{
			Secret:        "test-secret",
			AccessExpiry:  15 * time.Minute,
			RefreshExpiry: time.Hour,
		}),
	}
	f.uc = NewAuthUsecase(nil, log, &fakeTxManager{}, f.users, f.jwt, f.tokens, f.mailer,
		service.NewAuditService(log, f.audit), config.AppConfig{
			BaseURL:     "http://api.test",
			FrontendURL: "http://app.test/",
		})
	return f
}

// addActiveUser stores a verified account with the given password.
func (f *authFixture) addActiveUser(t *testing.T, email, password string) *entity.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return f.users.add(&entity.User{
		Name:          "Asha",
		Email:         email,
		Password:      string(hash),
		Phone:         "9876543210",
		Role:          entity.RolePatient,
		Status:        entity.UserStatusActive,
		EmailVerified: true,
	})
}

func TestRegister(t *testing.T) {
	f := newAuthFixture(t)

	resp, err := f.uc.Register(context.Background(), &dto.RegisterRequest{
		Name:     " Asha ",
		Email:    "Asha@Example.com",
		Password: "secret123",
		Phone:    "9876543210",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Email != "asha@example.com" || resp.Name != "Asha" {
		t.Errorf("expected normalized name and email, got %+v", resp)
	}
	if resp.Role != string(entity.RolePatient) || resp.Status != string(entity.UserStatusPending) || resp.EmailVerified {
		t.Errorf("unexpected initial account state: %+v", resp)
	}

	stored := f.users.get(resp.ID)
	if stored.Password == "secret123" {
		t.Error("password must be stored hashed")
	}
	if stored.EmailVerificationToken == nil || stored.EmailVerificationExpiresAt == nil {
		t.Fatal("expected verification token to be set")
	}

	if len(f.mailer.sent) != 1 {
		t.Fatalf("expected one verification mail, got %d", len(f.mailer.sent))
	}
	mail := f.mailer.sent[0]
	if mail.To != "asha@example.com" || !strings.Contains(mail.HTMLBody, "http://api.test/api/v1/auth/verify-email?token="+*stored.EmailVerificationToken) {
		t.Errorf("unexpected verification mail: %+v", mail)
	}
	if got := f.audit.actions(); len(got) != 1 || got[0] != entity.AuditActionUserRegister {
		t.Errorf("expected register audit entry, got %v", got)
	}
}

func TestRegister_Rejections(t *testing.T) {
	f := newAuthFixture(t)
	f.addActiveUser(t, "taken@example.com", "secret123")

	tests := []struct {
		name    string
		req     dto.RegisterRequest
		wantErr error
	}{
		{
			name:    "duplicate email ignores case",
			req:     dto.RegisterRequest{Name: "Ravi", Email: "TAKEN@example.com", Password: "secret123", Phone: "9876543210"},
			wantErr: ErrEmailAlreadyExists,
		},
		{
			name:    "admin self registration",
			req:     dto.RegisterRequest{Name: "Ravi", Email: "ravi@example.com", Password: "secret123", Phone: "9876543210", Role: "admin"},
			wantErr: ErrInvalidRole,
		},
		{
			name:    "unknown role",
			req:     dto.RegisterRequest{Name: "Ravi", Email: "ravi@example.com", Password: "secret123", Phone: "9876543210", Role: "nurse"},
			wantErr: ErrInvalidRole,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			if _, err := f.uc.Register(context.Background(), &req); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRegister_MailFailureIsIgnored(t *testing.T) {
	f := newAuthFixture(t)
	f.mailer.err = errStorage

	resp, err := f.uc.Register(context.Background(), &dto.RegisterRequest{
		Name: "Dr Mehta", Email: "mehta@example.com", Password: "secret123", Phone: "9876543210", Role: "doctor",
	})
	if err != nil {
		t.Fatalf("expected registration to succeed, got %v", err)
	}
	if resp.Role != string(entity.RoleDoctor) {
		t.Errorf("expected doctor role, got %s", resp.Role)
	}
}

func TestVerifyEmail(t *testing.T) {
	f := newAuthFixture(t)
	resp, err := f.uc.Register(context.Background(), &dto.RegisterRequest{
		Name: "Asha", Email: "asha@example.com", Password: "secret123", Phone: "9876543210",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	token := *f.users.get(resp.ID).EmailVerificationToken

	if err := f.uc.VerifyEmail(context.Background(), "wrong"); !errors.Is(err, ErrInvalidVerificationToken) {
		t.Errorf("expected ErrInvalidVerificationToken, got %v", err)
	}
	if err := f.uc.VerifyEmail(context.Background(), token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user := f.users.get(resp.ID)
	if !user.EmailVerified || user.Status != entity.UserStatusActive || user.EmailVerificationToken != nil {
		t.Errorf("expected verified active account, got %+v", user)
	}
	if err := f.uc.VerifyEmail(context.Background(), token); !errors.Is(err, ErrInvalidVerificationToken) {
		t.Errorf("expected token to be single use, got %v", err)
	}
}

func TestVerifyEmail_Expired(t *testing.T) {
	f := newAuthFixture(t)
	token := "expired-token"
	expired := time.Now().Add(-time.Minute)
	f.users.add(&entity.User{
		Email:                      "late@example.com",
		Status:                     entity.UserStatusPending,
		EmailVerificationToken:     &token,
		EmailVerificationExpiresAt: &expired,
	})

	if err := f.uc.VerifyEmail(context.Background(), token); !errors.Is(err, ErrInvalidVerificationToken) {
		t.Errorf("expected ErrInvalidVerificationToken, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t)
	user := f.addActiveUser(t, "asha@example.com", "secret123")

	resp, err := f.uc.Login(context.Background(), &dto.LoginRequest{Email: "ASHA@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}
	if resp.ExpiresIn != int64((15 * time.Minute).Seconds()) {
		t.Errorf("unexpected expires_in %d", resp.ExpiresIn)
	}

	claims, err := f.jwt.ValidateToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("validate access token: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != string(entity.RolePatient) || claims.TokenType != jwt.AccessToken {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if exists, _ := f.tokens.Exists(context.Background(), jwt.AccessToken, user.ID, claims.TokenID); !exists {
		t.Error("expected access token id to be stored")
	}
	if f.tokens.count() != 2 {
		t.Errorf("expected access and refresh ids stored, got %d", f.tokens.count())
	}
}

func TestLogin_Rejections(t *testing.T) {
	f := newAuthFixture(t)
	f.addActiveUser(t, "asha@example.com", "secret123")

	pending := f.addActiveUser(t, "pending@example.com", "secret123")
	pending.EmailVerified = false
	pending.Status = entity.UserStatusPending
	f.users.add(pending)

	blocked := f.addActiveUser(t, "blocked@example.com", "secret123")
	blocked.Status = entity.UserStatusBlocked
	f.users.add(blocked)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "unknown email", email: "nobody@example.com", password: "secret123", wantErr: ErrInvalidCredentials},
		{name: "wrong password", email: "asha@example.com", password: "nope", wantErr: ErrInvalidCredentials},
		{name: "unverified email", email: "pending@example.com", password: "secret123", wantErr: ErrEmailNotVerified},
		{name: "blocked account", email: "blocked@example.com", password: "secret123", wantErr: ErrAccountBlocked},
		{name: "blocked account with wrong password", email: "blocked@example.com", password: "nope", wantErr: ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.uc.Login(context.Background(), &dto.LoginRequest{Email: tt.email, Password: tt.password})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRefreshToken_Rotates(t *testing.T) {
	f := newAuthFixture(t)
	f.addActiveUser(t, "asha@example.com", "secret123")

	login, err := f.uc.Login(context.Background(), &dto.LoginRequest{Email: "asha@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	refreshed, err := f.uc.RefreshToken(context.Background(), &dto.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Error("expected a new refresh token")
	}

	if _, err := f.uc.RefreshToken(context.Background(), &dto.RefreshTokenRequest{RefreshToken: login.RefreshToken}); !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("expected old refresh token to be revoked, got %v", err)
	}
	if _, err := f.uc.RefreshToken(context.Background(), &dto.RefreshTokenRequest{RefreshToken: login.AccessToken}); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected access token to be refused, got %v", err)
	}
	if _, err := f.uc.RefreshToken(context.Background(), &dto.RefreshTokenRequest{RefreshToken: "garbage"}); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestRefreshToken_BlockedUser(t *testing.T) {
	f := newAuthFixture(t)
	user := f.addActiveUser(t, "asha@example.com", "secret123")

	login, err := f.uc.Login(context.Background(), &dto.LoginRequest{Email: "asha@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	user.Status = entity.UserStatusBlocked
	f.users.add(user)

	if _, err := f.uc.RefreshToken(context.Background(), &dto.RefreshTokenRequest{RefreshToken: login.RefreshToken}); !errors.Is(err, ErrAccountBlocked) {
		t.Errorf("expected ErrAccountBlocked, got %v", err)
	}
}

func TestLogout(t *testing.T) {
	f := newAuthFixture(t)
	user := f.addActiveUser(t, "asha@example.com", "secret123")

	login, err := f.uc.Login(context.Background(), &dto.LoginRequest{Email: "asha@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := f.jwt.ValidateToken(login.AccessToken)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	if err := f.uc.Logout(context.Background(), user.ID, claims.TokenID, &dto.LogoutRequest{RefreshToken: login.RefreshToken}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.tokens.count() != 0 {
		t.Errorf("expected all tokens revoked, %d left", f.tokens.count())
	}
}

func TestForgotAndResetPassword(t *testing.T) {
	f := newAuthFixture(t)
	user := f.addActiveUser(t, "asha@example.com", "secret123")

	if _, err := f.uc.Login(context.Background(), &dto.LoginRequest{Email: "asha@example.com", Password: "secret123"}); err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := f.uc.ForgotPassword(context.Background(), &dto.ForgotPasswordRequest{Email: "nobody@example.com"}); err != nil {
		t.Fatalf("unknown email must succeed silently, got %v", err)
	}
	if len(f.mailer.sent) != 0 {
		t.Fatal("no mail expected for unknown email")
	}

	if err := f.uc.ForgotPassword(context.Background(), &dto.ForgotPasswordRequest{Email: "asha@example.com"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	token := *f.users.get(user.ID).ResetPasswordToken
	if len(f.mailer.sent) != 1 || !strings.Contains(f.mailer.sent[0].HTMLBody, "http://app.test/reset-password?token="+token) {
		t.Fatalf("unexpected reset mail: %+v", f.mailer.sent)
	}

	if err := f.uc.ResetPassword(context.Background(), "wrong", &dto.ResetPasswordRequest{Password: "newsecret"}); !errors.Is(err, ErrInvalidResetToken) {
		t.Errorf("expected ErrInvalidResetToken, got %v", err)
	}
	if err := f.uc.ResetPassword(context.Background(), token, &dto.ResetPasswordRequest{Password: "newsecret"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.tokens.count() != 0 {
		t.Error("expected existing sessions to be revoked")
	}
	if _, err := f.uc.Login(context.Background(), &dto.LoginRequest{Email: "asha@example.com", Password: "secret123"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("old password must stop working, got %v", err)
	}
	if _, err := f.uc.Login(context.Background(), &dto.LoginRequest{Email: "asha@example.com", Password: "newsecret"}); err != nil {
		t.Errorf("new password must work, got %v", err)
	}
	if err := f.uc.ResetPassword(context.Background(), token, &dto.ResetPasswordRequest{Password: "again123"}); !errors.Is(err, ErrInvalidResetToken) {
		t.Errorf("expected reset token to be single use, got %v", err)
	}
}

func TestGetCurrentUser(t *testing.T) {
	f := newAuthFixture(t)
	user := f.addActiveUser(t, "asha@example.com", "secret123")

	resp, err := f.uc.GetCurrentUser(context.Background(), user.ID)
	if err != nil || resp.ID != user.ID {
		t.Fatalf("expected current user, got %+v, %v", resp, err)
	}
	if _, err := f.uc.GetCurrentUser(context.Background(), uuid.New()); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}
