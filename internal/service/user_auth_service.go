package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/altan-shop/internal/cache"
	"github.com/altan-shop/internal/config"
	"github.com/altan-shop/internal/constants"
	"github.com/altan-shop/internal/logger"
	"github.com/altan-shop/internal/models"
	"github.com/altan-shop/internal/oauth/google"
	"github.com/altan-shop/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// GoogleVerifier Google 身份校验
type GoogleVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*google.Identity, error)
	ExchangeCode(ctx context.Context, code, redirectURL string) (*google.Identity, error)
}

// UserAuthService 用户认证服务
type UserAuthService struct {
	cfg              *config.Config
	userRepo         repository.UserRepository
	refreshTokenRepo repository.RefreshTokenRepository
	google           GoogleVerifier
	now              func() time.Time
}

// NewUserAuthService 创建用户认证服务，googleVerifier 为空表示未启用 Google 登录
func NewUserAuthService(cfg *config.Config, userRepo repository.UserRepository, refreshTokenRepo repository.RefreshTokenRepository, googleVerifier GoogleVerifier) *UserAuthService {
	return &UserAuthService{
		cfg:              cfg,
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		google:           googleVerifier,
		now:              time.Now,
	}
}

// UserJWTClaims 用户 JWT 声明
type UserJWTClaims struct {
	UserID       uint   `json:"user_id"`
	Email        string `json:"email"`
	TokenVersion uint64 `json:"token_version"`
	jwt.RegisteredClaims
}

// TokenPair 访问令牌 + 刷新令牌
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	TokenType        string    `json:"token_type"`
}

// SessionMeta 签发刷新令牌时记录的客户端信息
type SessionMeta struct {
	UserAgent string
	ClientIP  string
}

// GoogleLoginInput Google 登录输入，IDToken 与 Code 二选一
type GoogleLoginInput struct {
	IDToken     string
	Code        string
	RedirectURL string
}

// GenerateUserJWT 生成用户访问令牌
func (s *UserAuthService) GenerateUserJWT(user *models.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(time.Duration(resolveAccessExpireMinutes(s.cfg.UserJWT)) * time.Minute)
	claims := UserJWTClaims{
		UserID:       user.ID,
		Email:        user.Email,
		TokenVersion: user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.UserJWT.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseUserJWT 解析用户访问令牌
func (s *UserAuthService) ParseUserJWT(tokenString string) (*UserJWTClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &UserJWTClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.UserJWT.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*UserJWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("无效的 token")
}

// Register 邮箱注册
func (s *UserAuthService) Register(email, password, displayName string, meta SessionMeta) (*models.User, *TokenPair, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, nil, err
	}
	if err := validatePassword(s.cfg.Security.PasswordPolicy, password); err != nil {
		return nil, nil, err
	}
	exist, err := s.userRepo.GetByEmail(normalized)
	if err != nil {
		return nil, nil, err
	}
	if exist != nil {
		return nil, nil, ErrEmailExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = resolveNicknameFromEmail(normalized)
	}
	user := &models.User{
		Email:        normalized,
		PasswordHash: string(hash),
		DisplayName:  displayName,
		Provider:     constants.UserProviderPassword,
		Locale:       "mn-MN",
		Status:       constants.UserStatusActive,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, nil, err
	}
	logger.Infow("user_registered", "user_id", user.ID, "provider", user.Provider)
	pair, err := s.issueTokens(user, meta)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Login 邮箱密码登录
func (s *UserAuthService) Login(email, password string, meta SessionMeta) (*models.User, *TokenPair, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, nil, ErrInvalidCredentials
	}
	user, err := s.userRepo.GetByEmail(normalized)
	if err != nil {
		return nil, nil, err
	}
	if user == nil || user.PasswordHash == "" {
		return nil, nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}
	if user.Status != constants.UserStatusActive {
		return nil, nil, ErrUserDisabled
	}
	return s.completeLogin(user, meta)
}

// LoginWithGoogle 使用 Google id_token 或授权码登录，首次登录自动注册
func (s *UserAuthService) LoginWithGoogle(ctx context.Context, input GoogleLoginInput, meta SessionMeta) (*models.User, *TokenPair, error) {
	if s.google == nil {
		return nil, nil, ErrGoogleNotConfigured
	}
	var (
		identity *google.Identity
		err      error
	)
	switch {
	case strings.TrimSpace(input.IDToken) != "":
		identity, err = s.google.VerifyIDToken(ctx, strings.TrimSpace(input.IDToken))
	case strings.TrimSpace(input.Code) != "":
		identity, err = s.google.ExchangeCode(ctx, strings.TrimSpace(input.Code), strings.TrimSpace(input.RedirectURL))
	default:
		return nil, nil, ErrInvalidInput
	}
	if err != nil {
		logger.Warnw("google_login_verify_failed", "error", err)
		return nil, nil, ErrGoogleTokenInvalid
	}
	if !identity.EmailVerified || identity.Email == "" {
		return nil, nil, ErrGoogleEmailUnverified
	}

	user, err := s.userRepo.GetByGoogleSubject(identity.Subject)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		user, err = s.userRepo.GetByEmail(identity.Email)
		if err != nil {
			return nil, nil, err
		}
		if user != nil {
			subject := identity.Subject
			user.GoogleSubject = &subject
			if err := s.userRepo.Update(user); err != nil {
				return nil, nil, err
			}
		}
	}
	if user == nil {
		subject := identity.Subject
		user = &models.User{
			Email:         identity.Email,
			DisplayName:   strings.TrimSpace(identity.Name),
			Provider:      constants.UserProviderGoogle,
			GoogleSubject: &subject,
			Locale:        "mn-MN",
			Status:        constants.UserStatusActive,
		}
		if user.DisplayName == "" {
			user.DisplayName = resolveNicknameFromEmail(identity.Email)
		}
		if err := s.userRepo.Create(user); err != nil {
			return nil, nil, err
		}
		logger.Infow("user_registered", "user_id", user.ID, "provider", user.Provider)
	}
	if user.Status != constants.UserStatusActive {
		return nil, nil, ErrUserDisabled
	}
	return s.completeLogin(user, meta)
}

// Refresh 轮换刷新令牌：旧令牌标记已使用并签发新令牌；
// 已使用的令牌被重放时吊销该用户全部刷新令牌。
func (s *UserAuthService) Refresh(refreshToken string, meta SessionMeta) (*models.User, *TokenPair, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, nil, ErrRefreshTokenInvalid
	}
	subject, err := s.parseRefreshToken(refreshToken)
	if err != nil {
		return nil, nil, err
	}
	now := s.now()
	stored, err := s.refreshTokenRepo.GetByHash(hashRefreshToken(refreshToken))
	if err != nil {
		return nil, nil, err
	}
	if stored == nil || stored.UserID != subject {
		return nil, nil, ErrRefreshTokenInvalid
	}
	if stored.UsedAt != nil {
		logger.Warnw("user_refresh_token_reused", "user_id", stored.UserID, "token_id", stored.ID)
		if err := s.refreshTokenRepo.RevokeByUser(stored.UserID, now); err != nil {
			return nil, nil, err
		}
		return nil, nil, ErrRefreshTokenInvalid
	}
	if !stored.Usable(now) {
		return nil, nil, ErrRefreshTokenInvalid
	}
	user, err := s.userRepo.GetByID(stored.UserID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, ErrRefreshTokenInvalid
	}
	if user.Status != constants.UserStatusActive {
		return nil, nil, ErrUserDisabled
	}

	var pair *TokenPair
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.refreshTokenRepo.WithTx(tx)
		ok, err := repo.MarkUsed(stored.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrRefreshTokenInvalid
		}
		pair, err = s.issueTokensWith(repo, user, meta)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Logout 吊销用户全部刷新令牌并使已签发的访问令牌失效
func (s *UserAuthService) Logout(userID uint) error {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	now := s.now()
	if err := s.refreshTokenRepo.RevokeByUser(userID, now); err != nil {
		return err
	}
	user.TokenVersion++
	user.TokenInvalidBefore = &now
	if err := s.userRepo.Update(user); err != nil {
		return err
	}
	_ = cache.SetUserAuthState(context.Background(), cache.BuildUserAuthState(user))
	return nil
}

// Me 当前用户信息
func (s *UserAuthService) Me(userID uint) (*models.User, error) {
	return s.GetUserByID(userID)
}

// GetUserByID 获取用户
func (s *UserAuthService) GetUserByID(id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// ResolveAuthState 鉴权中间件使用的用户状态，优先读缓存
func (s *UserAuthService) ResolveAuthState(ctx context.Context, userID uint) (*cache.UserAuthState, error) {
	if state, hit, err := cache.GetUserAuthState(ctx, userID); err == nil && hit {
		return state, nil
	}
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	state := cache.BuildUserAuthState(user)
	_ = cache.SetUserAuthState(ctx, state)
	return state, nil
}

func (s *UserAuthService) completeLogin(user *models.User, meta SessionMeta) (*models.User, *TokenPair, error) {
	now := s.now()
	if err := s.userRepo.TouchLogin(user.ID, now); err != nil {
		logger.Warnw("user_touch_login_failed", "user_id", user.ID, "error", err)
	}
	user.LastLoginAt = &now
	_ = cache.SetUserAuthState(context.Background(), cache.BuildUserAuthState(user))
	pair, err := s.issueTokens(user, meta)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

func (s *UserAuthService) issueTokens(user *models.User, meta SessionMeta) (*TokenPair, error) {
	return s.issueTokensWith(s.refreshTokenRepo, user, meta)
}

func (s *UserAuthService) issueTokensWith(repo repository.RefreshTokenRepository, user *models.User, meta SessionMeta) (*TokenPair, error) {
	access, accessExp, err := s.GenerateUserJWT(user)
	if err != nil {
		return nil, err
	}
	refreshExp := s.now().Add(time.Duration(resolveRefreshExpireDays(s.cfg.UserJWT)) * 24 * time.Hour)
	raw, err := s.signRefreshToken(user.ID, refreshExp)
	if err != nil {
		return nil, err
	}
	record := &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: hashRefreshToken(raw),
		ExpiresAt: refreshExp,
		UserAgent: truncateString(meta.UserAgent, 255),
		ClientIP:  truncateString(meta.ClientIP, 64),
	}
	if err := repo.Create(record); err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     raw,
		RefreshExpiresAt: refreshExp,
		TokenType:        "Bearer",
	}, nil
}

// signRefreshToken 刷新令牌使用独立密钥签名，jti 保证每次签发唯一
func (s *UserAuthService) signRefreshToken(userID uint, expiresAt time.Time) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   strconv.FormatUint(uint64(userID), 10),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.UserJWT.RefreshSecretKey))
}

func (s *UserAuthService) parseRefreshToken(raw string) (uint, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &jwt.RegisteredClaims{}
	token, err := parser.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.UserJWT.RefreshSecretKey), nil
	})
	if err != nil || !token.Valid {
		return 0, ErrRefreshTokenInvalid
	}
	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || userID == 0 {
		return 0, ErrRefreshTokenInvalid
	}
	return uint(userID), nil
}

// hashRefreshToken 刷新令牌只保存 SHA-256
func hashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func normalizeEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(normalized)
	if err != nil || addr.Address != normalized {
		return "", ErrInvalidEmail
	}
	return normalized, nil
}

func resolveAccessExpireMinutes(cfg config.UserJWTConfig) int {
	if cfg.AccessExpireMins > 0 {
		return cfg.AccessExpireMins
	}
	return 60
}

func resolveRefreshExpireDays(cfg config.UserJWTConfig) int {
	if cfg.RefreshExpireDays > 0 {
		return cfg.RefreshExpireDays
	}
	return 30
}

func resolveNicknameFromEmail(email string) string {
	if idx := strings.Index(email, "@"); idx > 0 {
		return email[:idx]
	}
	return email
}

func truncateString(value string, limit int) string {
	value = strings.TrimSpace(value)
	if len(value) <= limit {
		return value
	}
	return value[:limit]
}
