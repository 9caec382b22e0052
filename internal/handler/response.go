package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "civicvoice/internal/errors"
	"civicvoice/internal/service"
)

// Response is the success envelope.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Pagination describes a page of a listing.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

func respond(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, Response{Success: true, Message: message, Data: data})
}

func newPagination(page service.Page, total int64) Pagination {
	page = page.Normalize()
	pages := total / int64(page.Limit)
	if total%int64(page.Limit) != 0 {
		pages++
	}
	return Pagination{Page: page.Page, Limit: page.Limit, Total: total, Pages: pages}
}

// pageFrom reads ?page= and ?limit=. Garbage values fall back to defaults.
func pageFrom(c echo.Context) service.Page {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	return service.Page{Page: page, Limit: limit}.Normalize()
}

func pathID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperrors.ErrInvalidID
	}
	return id, nil
}

// bindAndValidate decodes the request body into req and runs its validate tags.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperrors.ErrValidation
	}
	if err := c.Validate(req); err != nil {
		return &apperrors.DomainError{
			Kind:    apperrors.KindValidation,
			Code:    apperrors.ErrValidation.Code,
			Message: validationMessage(err),
		}
	}
	return nil
}

// validationMessage names the failing fields and rules, e.g.
// "invalid fields: email (email), fullName (required)".
func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperrors.ErrValidation.Message
	}
	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fe.Field()+" ("+fe.Tag()+")")
	}
	return "invalid fields: " + strings.Join(fields, ", ")
}

// ErrorHandler writes every failed request as the error envelope. Domain
// errors carry their own status; echo errors (unknown route, bad method)
// keep theirs. Anything else is logged and hidden behind INTERNAL_ERROR.
func ErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var httpErr *apperrors.HTTPError
		var echoErr *echo.HTTPError
		switch {
		case errors.As(err, &echoErr) && !isDomain(err):
			code := "HTTP_ERROR"
			switch echoErr.Code {
			case http.StatusNotFound:
				code = "NOT_FOUND"
			case http.StatusMethodNotAllowed:
				code = "METHOD_NOT_ALLOWED"
			case http.StatusBadRequest:
				code = apperrors.ErrValidation.Code
			}
			httpErr = apperrors.NewHTTPError(echoErr.Code, http.StatusText(echoErr.Code), code)
		default:
			httpErr = apperrors.MapErrorToHTTP(err)
		}

		if httpErr.StatusCode >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Int("status", httpErr.StatusCode),
				zap.Error(err),
			)
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(httpErr.StatusCode)
		} else {
			writeErr = c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
		}
		if writeErr != nil {
			logger.Warn("write error response", zap.Error(writeErr))
		}
	}
}

func isDomain(err error) bool {
	var domainErr *apperrors.DomainError
	return errors.As(err, &domainErr)
}
