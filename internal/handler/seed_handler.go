package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"civicvoice/internal/seed"
)

// SeedHandler handles seed data endpoints.
type SeedHandler struct {
	seeder *seed.Seeder
}

// NewSeedHandler creates a new seed handler.
func NewSeedHandler(seeder *seed.Seeder) *SeedHandler {
	return &SeedHandler{seeder: seeder}
}

// Seed godoc
// @Summary Replace all data with the demo dataset
// @Description Only registered outside production.
// @Tags seed
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=seed.Result}
// @Failure 403 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /admin/seed [post]
func (h *SeedHandler) Seed(c echo.Context) error {
	res, err := h.seeder.Run(c.Request().Context())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "database seeded", res)
}
