package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"civicvoice/internal/auth"
	apperrors "civicvoice/internal/errors"
	"civicvoice/internal/model"
	"civicvoice/internal/service"
)

// RatingHandler handles government-performance ratings.
type RatingHandler struct {
	ratings service.RatingService
}

// NewRatingHandler creates a rating handler.
func NewRatingHandler(ratings service.RatingService) *RatingHandler {
	return &RatingHandler{ratings: ratings}
}

// RatingRequest represents a rating submission. Score is a decimal string or number between 0 and 5.
type RatingRequest struct {
	Category string           `json:"category" validate:"required"`
	Score    *decimal.Decimal `json:"score" swaggertype:"string"`
}

// Submit godoc
// @Summary Rate a government performance category
// @Tags ratings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body RatingRequest true "Rating"
// @Success 200 {object} Response{data=model.Rating}
// @Failure 400 {object} errors.ErrorResponse
// @Router /ratings [post]
func (h *RatingHandler) Submit(c echo.Context) error {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	var req RatingRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ErrInvalidScore
	}
	if err := c.Validate(&req); err != nil {
		return apperrors.ErrInvalidCategory
	}
	if req.Score == nil {
		return apperrors.ErrInvalidScore
	}
	author := user.ID
	rating, err := h.ratings.Submit(c.Request().Context(), &author, model.RatingCategory(req.Category), *req.Score)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "rating submitted", echo.Map{"rating": rating})
}

// Summary godoc
// @Summary Average score per category
// @Tags ratings
// @Produce json
// @Success 200 {object} Response
// @Router /ratings [get]
func (h *RatingHandler) Summary(c echo.Context) error {
	summary, err := h.ratings.Summary(c.Request().Context())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "ratings retrieved", echo.Map{"ratings": summary})
}

// Mine godoc
// @Summary The caller's own ratings
// @Tags ratings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response
// @Failure 401 {object} errors.ErrorResponse
// @Router /ratings/me [get]
func (h *RatingHandler) Mine(c echo.Context) error {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	ratings, err := h.ratings.ForAuthor(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "ratings retrieved", echo.Map{"ratings": ratings})
}
