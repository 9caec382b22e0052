package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"civicvoice/internal/auth"
	apperrors "civicvoice/internal/errors"
	"civicvoice/internal/model"
	"civicvoice/internal/repository"
	"civicvoice/internal/service"
)

// AdminHandler serves analytics, user management and moderation.
type AdminHandler struct {
	analytics service.AnalyticsService
	users     service.UserService
	ledger    service.LedgerService
}

// NewAdminHandler creates an admin handler.
func NewAdminHandler(analytics service.AnalyticsService, users service.UserService, ledger service.LedgerService) *AdminHandler {
	return &AdminHandler{analytics: analytics, users: users, ledger: ledger}
}

// RoleRequest changes a user's role.
type RoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user moderator admin"`
}

// DeactivateRequest suspends a user.
type DeactivateRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// ModerateRequest resolves reports on a post.
type ModerateRequest struct {
	Action string `json:"action" validate:"required,oneof=approve reject"`
	Notes  string `json:"notes" validate:"max=500"`
}

// Dashboard godoc
// @Summary Admin dashboard statistics
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=service.DashboardStats}
// @Failure 403 {object} errors.ErrorResponse
// @Router /admin/dashboard [get]
func (h *AdminHandler) Dashboard(c echo.Context) error {
	stats, err := h.analytics.DashboardStats(c.Request().Context())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "dashboard retrieved", stats)
}

// Analytics godoc
// @Summary User and post analytics over a period
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param period query string false "all, 1d, 7d, 30d, 90d or 1y"
// @Success 200 {object} Response{data=service.UserAnalytics}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /admin/analytics [get]
func (h *AdminHandler) Analytics(c echo.Context) error {
	report, err := h.analytics.UserAnalytics(c.Request().Context(), c.QueryParam("period"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "analytics retrieved", report)
}

// Counters godoc
// @Summary Users whose stored totals disagree with their posts
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response
// @Failure 403 {object} errors.ErrorResponse
// @Router /admin/analytics/counters [get]
func (h *AdminHandler) Counters(c echo.Context) error {
	drift, err := h.analytics.CounterAudit(c.Request().Context())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "counter audit complete", echo.Map{"drift": drift})
}

// ListUsers godoc
// @Summary List users
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param search query string false "Matches email, username or name"
// @Param role query string false "Role"
// @Param active query bool false "Active flag"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} Response
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /admin/users [get]
func (h *AdminHandler) ListUsers(c echo.Context) error {
	page := pageFrom(c)
	filter := repository.UserFilter{
		Search: c.QueryParam("search"),
		Offset: page.Offset(),
		Limit:  page.Limit,
	}
	if raw := c.QueryParam("role"); raw != "" {
		role := model.Role(raw)
		if !role.Valid() {
			return apperrors.ErrInvalidRole
		}
		filter.Role = role
	}
	if raw := c.QueryParam("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return apperrors.ErrValidation
		}
		filter.Active = &active
	}

	users, total, err := h.users.ListUsers(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return respond(c, http.StatusOK, "users retrieved", echo.Map{
		"users":      users,
		"pagination": newPagination(page, total),
	})
}

// GetUser godoc
// @Summary Get any user
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} Response{data=model.User}
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/users/{id} [get]
func (h *AdminHandler) GetUser(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	user, err := h.users.GetUser(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "user retrieved", echo.Map{"user": user})
}

// SetRole godoc
// @Summary Change a user's role
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body RoleRequest true "Role"
// @Success 200 {object} Response{data=model.User}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/users/{id}/role [put]
func (h *AdminHandler) SetRole(c echo.Context) error {
	actor, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req RoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	user, err := h.users.SetRole(c.Request().Context(), actor.ID, id, model.Role(req.Role))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "role updated", echo.Map{"user": user})
}

// Deactivate godoc
// @Summary Deactivate a user
// @Description Existing tokens of the user stop working immediately.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body DeactivateRequest false "Reason"
// @Success 200 {object} Response{data=model.User}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/users/{id}/deactivate [put]
func (h *AdminHandler) Deactivate(c echo.Context) error {
	return h.setActive(c, false)
}

// Activate godoc
// @Summary Reactivate a user
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} Response{data=model.User}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/users/{id}/activate [put]
func (h *AdminHandler) Activate(c echo.Context) error {
	return h.setActive(c, true)
}

func (h *AdminHandler) setActive(c echo.Context, active bool) error {
	actor, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req DeactivateRequest
	if c.Request().ContentLength > 0 {
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}
	}
	user, err := h.users.SetActive(c.Request().Context(), actor.ID, id, active, req.Reason)
	if err != nil {
		return err
	}
	message := "user deactivated"
	if active {
		message = "user activated"
	}
	return respond(c, http.StatusOK, message, echo.Map{"user": user})
}

// ReportedPosts godoc
// @Summary Posts awaiting moderation
// @Tags moderation
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} Response
// @Failure 403 {object} errors.ErrorResponse
// @Router /moderation/reports [get]
func (h *AdminHandler) ReportedPosts(c echo.Context) error {
	page := pageFrom(c)
	posts, total, err := h.ledger.ListReported(c.Request().Context(), page)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "reported posts retrieved", echo.Map{
		"posts":      posts,
		"pagination": newPagination(page, total),
	})
}

// Moderate godoc
// @Summary Approve or reject a reported post
// @Tags moderation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Param request body ModerateRequest true "Decision"
// @Success 200 {object} Response{data=PostView}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /moderation/posts/{id} [put]
func (h *AdminHandler) Moderate(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req ModerateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	post, err := h.ledger.Moderate(c.Request().Context(), id, model.ModerationAction(req.Action), req.Notes)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "post moderated", echo.Map{"post": viewOf(post)})
}
