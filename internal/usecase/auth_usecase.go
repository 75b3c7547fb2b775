package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"healthsync-api/config"
	"healthsync-api/internal/converter"
	"healthsync-api/internal/delivery/dto"
	"healthsync-api/internal/domain/entity"
	"healthsync-api/internal/domain/repository"
	"healthsync-api/internal/service"
	"healthsync-api/pkg/jwt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailAlreadyExists       = errors.New("email already exists")
	ErrInvalidCredentials       = errors.New("invalid email or password")
	ErrEmailNotVerified         = errors.New("please verify your email before logging in")
	ErrAccountBlocked           = errors.New("account has been blocked")
	ErrInvalidToken             = errors.New("invalid or expired token")
	ErrTokenRevoked             = errors.New("token has been revoked")
	ErrUserNotFound             = errors.New("user not found")
	ErrInvalidRole              = errors.New("invalid role")
	ErrInvalidVerificationToken = errors.New("invalid or expired verification token")
	ErrInvalidResetToken        = errors.New("invalid or expired reset token")
)

const (
	userEntity = "user"

	// Lifetime of email verification and password reset links
	emailTokenTTL = 15 * time.Minute
)

type AuthUsecase interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error)
	VerifyEmail(ctx context.Context, token string) error
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	Logout(ctx context.Context, userID uuid.UUID, accessTokenID string, req *dto.LogoutRequest) error
	RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error)
	ForgotPassword(ctx context.Context, req *dto.ForgotPasswordRequest) error
	ResetPassword(ctx context.Context, token string, req *dto.ResetPasswordRequest) error
	GetCurrentUser(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error)
}

type authUsecase struct {
	db           *gorm.DB
	log          *logrus.Logger
	txManager    repository.TxManager
	userRepo     repository.UserRepository
	jwtService   *jwt.JWTService
	tokenStore   service.TokenStore
	mailer       service.Mailer
	auditService service.AuditService
	appConfig    config.AppConfig
}

func NewAuthUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	txManager repository.TxManager,
	userRepo repository.UserRepository,
	jwtService *jwt.JWTService,
	tokenStore service.TokenStore,
	mailer service.Mailer,
	auditService service.AuditService,
	appConfig config.AppConfig,
) AuthUsecase {
	return &authUsecase{
		db:           db,
		log:          log,
		txManager:    txManager,
		userRepo:     userRepo,
		jwtService:   jwtService,
		tokenStore:   tokenStore,
		mailer:       mailer,
		auditService: auditService,
		appConfig:    appConfig,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a PENDING account and mails a verification link.
func (u *authUsecase) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error) {
	role := entity.RolePatient
	if req.Role != "" {
		parsed, ok := entity.ParseRole(strings.ToLower(req.Role))
		if !ok || parsed == entity.RoleAdmin {
			return nil, ErrInvalidRole
		}
		role = parsed
	}

	email := normalizeEmail(req.Email)
	existing, err := u.userRepo.FindByEmail(ctx, u.db, email)
	if err != nil {
		u.log.Warnf("Failed to find user by email: %+v", err)
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailAlreadyExists
	}

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		u.log.Warnf("Failed to hash password: %+v", err)
		return nil, err
	}

	token, err := generateSecureToken()
	if err != nil {
		u.log.Warnf("Failed to generate verification token: %+v", err)
		return nil, err
	}
	expiresAt := time.Now().Add(emailTokenTTL)

	user := &entity.User{
		Name:                       strings.TrimSpace(req.Name),
		Email:                      email,
		Password:                   string(hashedPassword),
		Phone:                      strings.TrimSpace(req.Phone),
		Role:                       role,
		Status:                     entity.UserStatusPending,
		EmailVerificationToken:     &token,
		EmailVerificationExpiresAt: &expiresAt,
	}

	err = u.txManager.WithinTransaction(ctx, func(tx *gorm.DB) error {
		if err := u.userRepo.Create(ctx, tx, user); err != nil {
			return err
		}
		return u.auditService.LogCreate(ctx, tx, &user.ID, entity.AuditActionUserRegister, userEntity, user.ID.String(),
			map[string]interface{}{"email": user.Email, "role": user.Role})
	})
	if err != nil {
		if isDuplicateKeyError(err, "email") {
			return nil, ErrEmailAlreadyExists
		}
		u.log.Warnf("Failed to create user: %+v", err)
		return nil, err
	}

	link := fmt.Sprintf("%s/api/v1/auth/verify-email?token=%s", strings.TrimRight(u.appConfig.BaseURL, "/"), token)
	if err := u.mailer.Send(ctx, service.VerificationMail(user.Email, user.Name, link)); err != nil {
		u.log.Warnf("Failed to send verification email to %s: %+v", user.Email, err)
	}

	u.log.Infof("User registered: id=%s, role=%s", user.ID, user.Role)
	return converter.UserToResponse(user), nil
}

func (u *authUsecase) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidVerificationToken
	}

	user, err := u.userRepo.FindByVerificationToken(ctx, u.db, token)
	if err != nil {
		u.log.Warnf("Failed to find user by verification token: %+v", err)
		return err
	}
	if user == nil {
		return ErrInvalidVerificationToken
	}

	user.MarkEmailVerified()
	err = u.txManager.WithinTransaction(ctx, func(tx *gorm.DB) error {
		if err := u.userRepo.Update(ctx, tx, user); err != nil {
			return err
		}
		return u.auditService.LogUpdate(ctx, tx, &user.ID, entity.AuditActionUserVerifyEmail, userEntity, user.ID.String(),
			map[string]interface{}{"email_verified": false},
			map[string]interface{}{"email_verified": true, "status": user.Status})
	})
	if err != nil {
		u.log.Warnf("Failed to verify email: %+v", err)
		return err
	}
	return nil
}

func (u *authUsecase) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	user, err := u.userRepo.FindByEmail(ctx, u.db, normalizeEmail(req.Email))
	if err != nil {
		u.log.Warnf("Failed to find user by email: %+v", err)
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}
	if user.IsBlocked() {
		return nil, ErrAccountBlocked
	}

	return u.issueTokens(ctx, user)
}

// issueTokens signs an access/refresh pair and records both token ids so
// they can be revoked before expiry.
func (u *authUsecase) issueTokens(ctx context.Context, user *entity.User) (*dto.TokenResponse, error) {
	accessToken, accessTokenID, err := u.jwtService.GenerateAccessToken(user.ID, user.Email, user.Role.String())
	if err != nil {
		u.log.Warnf("Failed to generate access token: %+v", err)
		return nil, err
	}

	refreshToken, refreshTokenID, err := u.jwtService.GenerateRefreshToken(user.ID, user.Email, user.Role.String())
	if err != nil {
		u.log.Warnf("Failed to generate refresh token: %+v", err)
		return nil, err
	}

	if err := u.tokenStore.Store(ctx, jwt.AccessToken, user.ID, accessTokenID, u.jwtService.GetAccessExpiry()); err != nil {
		u.log.Warnf("Failed to store access token: %+v", err)
		return nil, err
	}
	if err := u.tokenStore.Store(ctx, jwt.RefreshToken, user.ID, refreshTokenID, u.jwtService.GetRefreshExpiry()); err != nil {
		u.log.Warnf("Failed to store refresh token: %+v", err)
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(u.jwtService.GetAccessExpiry().Seconds()),
		User:         converter.UserToResponse(user),
	}, nil
}

// Logout revokes the current access token and, when supplied, the
// caller's refresh token.
func (u *authUsecase) Logout(ctx context.Context, userID uuid.UUID, accessTokenID string, req *dto.LogoutRequest) error {
	if err := u.tokenStore.Revoke(ctx, jwt.AccessToken, userID, accessTokenID); err != nil {
		u.log.Warnf("Failed to revoke access token: %+v", err)
		return err
	}

	if req == nil || req.RefreshToken == "" {
		return nil
	}
	claims, err := u.jwtService.ValidateToken(req.RefreshToken)
	if err != nil || claims.TokenType != jwt.RefreshToken || claims.UserID != userID {
		return nil
	}
	if err := u.tokenStore.Revoke(ctx, jwt.RefreshToken, userID, claims.TokenID); err != nil {
		u.log.Warnf("Failed to revoke refresh token: %+v", err)
		return err
	}
	return nil
}

func (u *authUsecase) RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error) {
	claims, err := u.jwtService.ValidateToken(req.RefreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != jwt.RefreshToken {
		return nil, ErrInvalidToken
	}

	exists, err := u.tokenStore.Exists(ctx, jwt.RefreshToken, claims.UserID, claims.TokenID)
	if err != nil {
		u.log.Warnf("Failed to check refresh token: %+v", err)
		return nil, err
	}
	if !exists {
		return nil, ErrTokenRevoked
	}

	// Rotate: the old refresh token is single use
	if err := u.tokenStore.Revoke(ctx, jwt.RefreshToken, claims.UserID, claims.TokenID); err != nil {
		u.log.Warnf("Failed to delete old refresh token: %+v", err)
		return nil, err
	}

	// Reload so role changes and blocks take effect
	user, err := u.userRepo.FindByID(ctx, u.db, claims.UserID)
	if err != nil {
		u.log.Warnf("Failed to find user by ID: %+v", err)
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.IsBlocked() {
		return nil, ErrAccountBlocked
	}

	return u.issueTokens(ctx, user)
}

// ForgotPassword mails a reset link when the email is registered. Unknown
// emails succeed silently so callers cannot probe for accounts.
func (u *authUsecase) ForgotPassword(ctx context.Context, req *dto.ForgotPasswordRequest) error {
	user, err := u.userRepo.FindByEmail(ctx, u.db, normalizeEmail(req.Email))
	if err != nil {
		u.log.Warnf("Failed to find user by email: %+v", err)
		return err
	}
	if user == nil {
		return nil
	}

	token, err := generateSecureToken()
	if err != nil {
		u.log.Warnf("Failed to generate reset token: %+v", err)
		return err
	}
	expiresAt := time.Now().Add(emailTokenTTL)
	user.ResetPasswordToken = &token
	user.ResetPasswordExpiresAt = &expiresAt

	if err := u.userRepo.Update(ctx, u.db, user); err != nil {
		u.log.Warnf("Failed to store reset token: %+v", err)
		return err
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", strings.TrimRight(u.appConfig.FrontendURL, "/"), token)
	if err := u.mailer.Send(ctx, service.PasswordResetMail(user.Email, link)); err != nil {
		u.log.Warnf("Failed to send reset email to %s: %+v", user.Email, err)
	}
	return nil
}

func (u *authUsecase) ResetPassword(ctx context.Context, token string, req *dto.ResetPasswordRequest) error {
	if token == "" {
		return ErrInvalidResetToken
	}

	user, err := u.userRepo.FindByResetToken(ctx, u.db, token)
	if err != nil {
		u.log.Warnf("Failed to find user by reset token: %+v", err)
		return err
	}
	if user == nil {
		return ErrInvalidResetToken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		u.log.Warnf("Failed to hash password: %+v", err)
		return err
	}
	user.Password = string(hashedPassword)
	user.ResetPasswordToken = nil
	user.ResetPasswordExpiresAt = nil

	err = u.txManager.WithinTransaction(ctx, func(tx *gorm.DB) error {
		if err := u.userRepo.Update(ctx, tx, user); err != nil {
			return err
		}
		return u.auditService.LogUpdate(ctx, tx, &user.ID, entity.AuditActionUserResetPassword, userEntity, user.ID.String(), nil, nil)
	})
	if err != nil {
		u.log.Warnf("Failed to reset password: %+v", err)
		return err
	}

	if err := u.tokenStore.RevokeAll(ctx, user.ID); err != nil {
		u.log.Warnf("Failed to revoke tokens after password reset for %s: %+v", user.ID, err)
	}
	return nil
}

func (u *authUsecase) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error) {
	user, err := u.userRepo.FindByID(ctx, u.db, userID)
	if err != nil {
		u.log.Warnf("Failed to find user by ID: %+v", err)
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	return converter.UserToResponse(user), nil
}

// generateSecureToken returns 32 random bytes hex encoded.
func generateSecureToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// isDuplicateKeyError checks if the error is a PostgreSQL unique constraint violation
// containing the specified constraint name
func isDuplicateKeyError(err error, constraintName string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// PostgreSQL error code 23505 = unique_violation
		if pgErr.Code == "23505" && strings.Contains(strings.ToLower(pgErr.ConstraintName), strings.ToLower(constraintName)) {
			return true
		}
	}
	return false
}
