package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"civicvoice/internal/auth"
	"civicvoice/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Email     string   `json:"email" validate:"required,email"`
	Username  string   `json:"username" validate:"required,min=3,max=30"`
	Password  string   `json:"password" validate:"required"`
	FullName  string   `json:"fullName" validate:"required,max=255"`
	Interests []string `json:"interests" validate:"omitempty,dive,required"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} Response{data=service.AuthResult}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.authService.Register(c.Request().Context(), service.Registration{
		Email:     req.Email,
		Username:  req.Username,
		Password:  req.Password,
		FullName:  req.FullName,
		Interests: req.Interests,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "user registered successfully", result)
}

// Login godoc
// @Summary Login user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} Response{data=service.AuthResult}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "login successful", result)
}

// AdminLogin godoc
// @Summary Login as administrator
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} Response{data=service.AuthResult}
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /auth/admin/login [post]
func (h *AuthHandler) AdminLogin(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.authService.AdminLogin(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "admin login successful", result)
}

// Me godoc
// @Summary Current user's profile
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=model.User}
// @Failure 401 {object} errors.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	user.PasswordHash = ""
	return respond(c, http.StatusOK, "profile retrieved", echo.Map{"user": user})
}
