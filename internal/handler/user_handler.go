package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"civicvoice/internal/auth"
	"civicvoice/internal/model"
	"civicvoice/internal/service"
)

// UserHandler serves public profiles, self-service profile edits and the
// follow graph.
type UserHandler struct {
	svc     service.UserService
	follows service.FollowService
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.UserService, follows service.FollowService) *UserHandler {
	return &UserHandler{svc: svc, follows: follows}
}

// UpdateProfileRequest carries the editable profile fields. Omitted fields are left unchanged.
type UpdateProfileRequest struct {
	FullName  *string  `json:"fullName" validate:"omitempty,min=1,max=255"`
	Bio       *string  `json:"bio" validate:"omitempty,max=500"`
	Interests []string `json:"interests" validate:"omitempty,dive,required"`
}

// GetUser godoc
// @Summary Get public profile
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} Response{data=model.User}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	user, err := h.svc.GetUser(c.Request().Context(), id)
	if err != nil {
		return err
	}
	counts, err := h.follows.Counts(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "user retrieved", echo.Map{
		"user":      user,
		"followers": counts.Followers,
		"following": counts.Following,
	})
}

// UpdateMe godoc
// @Summary Update own profile
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateProfileRequest true "Profile fields"
// @Success 200 {object} Response{data=model.User}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /users/me [put]
func (h *UserHandler) UpdateMe(c echo.Context) error {
	current, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	var req UpdateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	update := model.ProfileUpdate{FullName: req.FullName, Bio: req.Bio}
	if req.Interests != nil {
		update.Interests = model.Tags(req.Interests)
	}
	user, err := h.svc.UpdateProfile(c.Request().Context(), current.ID, update)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "profile updated", echo.Map{"user": user})
}

// Follow godoc
// @Summary Follow a user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} Response{data=service.FollowResult}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /users/{id}/follow [post]
func (h *UserHandler) Follow(c echo.Context) error {
	return h.changeFollow(c, h.follows.Follow, "user followed")
}

// Unfollow godoc
// @Summary Unfollow a user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} Response{data=service.FollowResult}
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /users/{id}/follow [delete]
func (h *UserHandler) Unfollow(c echo.Context) error {
	return h.changeFollow(c, h.follows.Unfollow, "user unfollowed")
}

func (h *UserHandler) changeFollow(c echo.Context, change func(ctx context.Context, followerID, followeeID uuid.UUID) (*service.FollowResult, error), message string) error {
	current, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	result, err := change(c.Request().Context(), current.ID, id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, message, result)
}

// Followers godoc
// @Summary Users following a user, most recent first
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} Response
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id}/followers [get]
func (h *UserHandler) Followers(c echo.Context) error {
	return h.listFollows(c, "followers", h.follows.Followers)
}

// Following godoc
// @Summary Users a user follows, most recent first
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} Response
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id}/following [get]
func (h *UserHandler) Following(c echo.Context) error {
	return h.listFollows(c, "following", h.follows.Following)
}

func (h *UserHandler) listFollows(c echo.Context, key string, list func(ctx context.Context, userID uuid.UUID, page service.Page) ([]model.User, int64, error)) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	page := pageFrom(c)
	users, total, err := list(c.Request().Context(), id, page)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, key+" retrieved", echo.Map{
		key:          users,
		"pagination": newPagination(page, total),
	})
}
