// Package auth はメール認証・Google OAuth認証とセッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/ddaytodo/internal/model"
	"github.com/hitoshi/ddaytodo/internal/repository"
)

// MinPasswordLength はメール認証のパスワードの最小文字数。
const MinPasswordLength = 8

// maxPasswordBytes はbcryptが扱える入力長の上限。
const maxPasswordBytes = 72

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	Picture        string
	Provider       string
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// ProfileInitializer はログイン時にプロフィールを遅延作成する。
type ProfileInitializer interface {
	FetchOrCreate(ctx context.Context, userID, email string, md model.SessionMetadata) (*model.Profile, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// SignInResult はログイン成功時のセッションとトークン。
type SignInResult struct {
	Session *model.Session
	Token   string
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth       OAuthProvider
	accountRepo repository.AccountRepository
	identRepo   repository.IdentityRepository
	sessionRepo repository.SessionRepository
	profiles    ProfileInitializer
	tokens      *TokenIssuer
	config      ServiceConfig
	logger      *slog.Logger
	now         func() time.Time
}

// NewService はServiceを生成する。oauthがnilの場合Googleログインは無効。
func NewService(
	oauth OAuthProvider,
	accountRepo repository.AccountRepository,
	identRepo repository.IdentityRepository,
	sessionRepo repository.SessionRepository,
	profiles ProfileInitializer,
	tokens *TokenIssuer,
	config ServiceConfig,
	logger *slog.Logger,
) *Service {
	return &Service{
		oauth:       oauth,
		accountRepo: accountRepo,
		identRepo:   identRepo,
		sessionRepo: sessionRepo,
		profiles:    profiles,
		tokens:      tokens,
		config:      config,
		logger:      logger,
		now:         time.Now,
	}
}

// GoogleEnabled はGoogleログインが有効かを返す。
func (s *Service) GoogleEnabled() bool {
	return s.oauth != nil
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// SignUp はメールアドレスとパスワードでアカウントを作成し、ログインする。
func (s *Service) SignUp(ctx context.Context, email, password, fullName string) (*SignInResult, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(password) < MinPasswordLength || len(password) > maxPasswordBytes {
		return nil, model.NewWeakPasswordError(MinPasswordLength)
	}
	fullName = strings.TrimSpace(fullName)
	if utf8.RuneCountInString(fullName) > 100 {
		return nil, model.NewInvalidNameError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	hashed := string(hash)

	account := &model.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: &hashed,
		Provider:     model.ProviderEmail,
		CreatedAt:    s.now(),
	}
	if err := s.accountRepo.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewEmailTakenError()
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	s.logger.Info("new account created",
		slog.String("user_id", account.ID),
		slog.String("provider", model.ProviderEmail),
	)

	return s.signIn(ctx, account.ID, email, model.SessionMetadata{
		FullName: fullName,
		Provider: model.ProviderEmail,
	})
}

// Login はメールアドレスとパスワードでログインする。
// 存在しないメールアドレスとパスワード不一致は同じエラーを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*SignInResult, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, model.NewInvalidCredentialsError()
	}

	account, err := s.accountRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil || account.PasswordHash == nil {
		return nil, model.NewInvalidCredentialsError()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*account.PasswordHash), []byte(password)); err != nil {
		return nil, model.NewInvalidCredentialsError()
	}

	return s.signIn(ctx, account.ID, account.Email, model.SessionMetadata{Provider: model.ProviderEmail})
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行する。
// 未登録ユーザーの場合はaccountsとidentitiesを同時に作成する。
func (s *Service) HandleCallback(ctx context.Context, code string) (*SignInResult, error) {
	if s.oauth == nil {
		return nil, fmt.Errorf("oauth provider is not configured")
	}

	info, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	identity, err := s.identRepo.FindByProviderAndProviderUserID(ctx, info.Provider, info.ProviderUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}

	var userID string
	if identity != nil {
		userID = identity.AccountID
		s.logger.Info("existing user logged in",
			slog.String("user_id", userID),
			slog.String("provider", info.Provider),
		)
	} else {
		now := s.now()
		account := &model.Account{
			ID:        uuid.NewString(),
			Email:     info.Email,
			Provider:  info.Provider,
			CreatedAt: now,
		}
		identity := &model.Identity{
			ID:             uuid.NewString(),
			AccountID:      account.ID,
			Provider:       info.Provider,
			ProviderUserID: info.ProviderUserID,
			CreatedAt:      now,
		}
		if err := s.accountRepo.CreateWithIdentity(ctx, account, identity); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, model.NewEmailTakenError()
			}
			return nil, fmt.Errorf("failed to create account and identity: %w", err)
		}
		userID = account.ID
		s.logger.Info("new account created",
			slog.String("user_id", userID),
			slog.String("provider", info.Provider),
		)
	}

	return s.signIn(ctx, userID, info.Email, model.SessionMetadata{
		Name:     info.Name,
		Picture:  info.Picture,
		Provider: info.Provider,
	})
}

// Refresh はセッションの有効期限を延長し、トークンを再発行する。
func (s *Service) Refresh(ctx context.Context, token string) (*SignInResult, error) {
	session, err := s.CurrentSession(ctx, token)
	if err != nil {
		return nil, err
	}

	expiresAt := s.now().Add(s.maxAge())
	if err := s.sessionRepo.ExtendExpiry(ctx, session.ID, expiresAt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewUnauthorizedError()
		}
		return nil, fmt.Errorf("failed to extend session: %w", err)
	}
	session.ExpiresAt = expiresAt

	signed, err := s.tokens.Issue(session.ID, session.UserID, expiresAt)
	if err != nil {
		return nil, err
	}
	return &SignInResult{Session: session, Token: signed}, nil
}

// Logout はトークンが指すセッションを破棄する。
// トークンが不正な場合は既にログアウト済みとして扱う。
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil
	}

	if err := s.sessionRepo.DeleteByID(ctx, claims.SessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.logger.Info("user logged out", slog.String("user_id", claims.Subject))
	return nil
}

// CurrentSession はトークンから有効なセッションを取得する。
// トークンが不正、またはセッションが失効している場合はUNAUTHORIZEDを返す。
func (s *Service) CurrentSession(ctx context.Context, token string) (*model.Session, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, model.NewUnauthorizedError()
	}

	session, err := s.sessionRepo.FindByID(ctx, claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil || session.UserID != claims.Subject {
		return nil, model.NewUnauthorizedError()
	}
	return session, nil
}

// signIn はプロフィールを取得または作成したうえでセッションを発行する。
// メール認証のセッションはプロフィールの表示名をfull_nameとして持つ。
func (s *Service) signIn(ctx context.Context, userID, email string, md model.SessionMetadata) (*SignInResult, error) {
	profile, err := s.profiles.FetchOrCreate(ctx, userID, email, md)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize profile: %w", err)
	}
	if md.Provider == model.ProviderEmail {
		md.FullName = profile.Name
	}

	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := s.now()
	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		Email:     email,
		Metadata:  md,
		ExpiresAt: now.Add(s.maxAge()),
		CreatedAt: now,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	signed, err := s.tokens.Issue(session.ID, userID, session.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &SignInResult{Session: session, Token: signed}, nil
}

func (s *Service) maxAge() time.Duration {
	return time.Duration(s.config.SessionMaxAge) * time.Second
}

// normalizeEmail は小文字化したメールアドレスを返す。表示名付きの形式は受け付けない。
func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", model.NewInvalidEmailError()
	}
	return email, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
