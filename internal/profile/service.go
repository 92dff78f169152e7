// Package profile はユーザープロフィールのドメインロジックを提供する。
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/ddaytodo/internal/model"
	"github.com/hitoshi/ddaytodo/internal/repository"
	"github.com/hitoshi/ddaytodo/internal/security"
)

// MaxNameLength は表示名の最大文字数。
const MaxNameLength = 100

// URLValidator はアバターURLの検証インターフェース。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// Service はプロフィールのサービス層。
type Service struct {
	profileRepo repository.ProfileRepository
	sessionRepo repository.SessionRepository
	sanitizer   security.TextSanitizer
	urls        URLValidator
	logger      *slog.Logger
	now         func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	profileRepo repository.ProfileRepository,
	sessionRepo repository.SessionRepository,
	sanitizer security.TextSanitizer,
	urls URLValidator,
	logger *slog.Logger,
) *Service {
	return &Service{
		profileRepo: profileRepo,
		sessionRepo: sessionRepo,
		sanitizer:   sanitizer,
		urls:        urls,
		logger:      logger,
		now:         time.Now,
	}
}

// FetchOrCreate はプロフィールを取得する。
// 存在しない場合はセッションのメタデータから作成して取得し直す。
func (s *Service) FetchOrCreate(ctx context.Context, userID, email string, md model.SessionMetadata) (*model.Profile, error) {
	profile, err := s.profileRepo.FindByID(ctx, userID)
	if err != nil {
		s.logger.Error("プロフィールの取得に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if profile != nil {
		return profile, nil
	}

	now := s.now()
	created := &model.Profile{
		ID:        userID,
		Email:     email,
		Name:      s.nameFrom(md),
		AvatarURL: s.avatarFrom(userID, md),
		Provider:  md.Provider,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if created.Provider == "" {
		created.Provider = model.ProviderEmail
	}

	if err := s.profileRepo.Upsert(ctx, created); err != nil {
		s.logger.Error("プロフィールの作成に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("プロフィールの作成に失敗しました: %w", err)
	}
	s.logger.Info("プロフィールを作成しました",
		slog.String("user_id", userID),
		slog.String("provider", created.Provider),
	)

	profile, err = s.profileRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if profile == nil {
		return nil, model.NewUserNotFoundError()
	}
	return profile, nil
}

// nameFrom はfull_nameを優先して表示名を決める。
func (s *Service) nameFrom(md model.SessionMetadata) string {
	name := md.FullName
	if name == "" {
		name = md.Name
	}
	name = s.sanitizer.Clean(name)
	if utf8.RuneCountInString(name) > MaxNameLength {
		name = string([]rune(name)[:MaxNameLength])
	}
	return name
}

// avatarFrom はavatar_urlを優先してアバターURLを決める。検証に通らないURLは捨てる。
func (s *Service) avatarFrom(userID string, md model.SessionMetadata) string {
	avatar := md.AvatarURL
	if avatar == "" {
		avatar = md.Picture
	}
	if avatar == "" {
		return ""
	}
	if err := s.urls.ValidateURL(avatar); err != nil {
		s.logger.Warn("アバターURLを破棄しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return ""
	}
	return avatar
}

// Update は表示名を変更する。メール認証のプロフィールのみ変更できる。
// usersの更新後にセッション側のfull_nameを書き換える。2つの書き込みは同一トランザクションではない。
func (s *Service) Update(ctx context.Context, userID, newName string) (*model.Profile, error) {
	profile, err := s.profileRepo.FindByID(ctx, userID)
	if err != nil {
		s.logger.Error("プロフィールの取得に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if profile == nil {
		return nil, model.NewUserNotFoundError()
	}
	if !profile.IsEditable() {
		return nil, model.NewProfileReadOnlyError(profile.Provider)
	}

	name := s.sanitizer.Clean(newName)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return nil, model.NewInvalidNameError()
	}

	now := s.now()
	if err := s.profileRepo.UpdateName(ctx, userID, name, now); err != nil {
		s.logger.Error("プロフィールの更新に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("プロフィールの更新に失敗しました: %w", err)
	}
	profile.Name = name
	profile.UpdatedAt = now

	if _, err := s.sessionRepo.UpdateFullName(ctx, userID, name); err != nil {
		s.logger.Error("セッションへの表示名の反映に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return profile, model.NewProfileSessionSyncFailedError()
	}

	return profile, nil
}
