package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/ddaytodo/internal/middleware"
	"github.com/hitoshi/ddaytodo/internal/model"
)

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	FetchOrCreate(ctx context.Context, userID, email string, md model.SessionMetadata) (*model.Profile, error)
	Update(ctx context.Context, userID, newName string) (*model.Profile, error)
}

// ProfileHandler はプロフィールのHTTPハンドラー。
type ProfileHandler struct {
	service ProfileServiceInterface
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(service ProfileServiceInterface) *ProfileHandler {
	return &ProfileHandler{service: service}
}

type updateProfileRequest struct {
	Name string `json:"name"`
}

// Get はログイン中のユーザーのプロフィールを返す。未作成ならセッションから作成する。
// GET /api/profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok || session.UserID == "" {
		middleware.WriteUnauthorized(w)
		return
	}

	profile, err := h.service.FetchOrCreate(r.Context(), session.UserID, session.Email, session.Metadata)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toProfileResponse(profile))
}

// Update はプロフィール名を変更する。
// PUT /api/profile
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req updateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	profile, err := h.service.Update(r.Context(), userID, req.Name)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toProfileResponse(profile))
}
