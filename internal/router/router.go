package router

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"civicvoice/internal/auth"
	"civicvoice/internal/config"
	apperrors "civicvoice/internal/errors"
	"civicvoice/internal/handler"
)

// Handlers groups the HTTP handlers mounted by Register. Seed may be nil.
type Handlers struct {
	Auth   *handler.AuthHandler
	User   *handler.UserHandler
	Post   *handler.PostHandler
	Rating *handler.RatingHandler
	Admin  *handler.AdminHandler
	Seed   *handler.SeedHandler
}

// Register wires routes and middleware.
func Register(e *echo.Echo, cfg *config.Config, guard *auth.Guard, h Handlers, logger *zap.Logger) {
	e.HTTPErrorHandler = handler.ErrorHandler(logger)
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			)
			return nil
		},
	}))

	// Add validator
	e.Validator = NewValidator()

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// Bearer extraction; the guard verifies the token and then authorizes per route.
	authn := echojwt.WithConfig(echojwt.Config{
		TokenLookup:    "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: guard.ParseToken,
		ErrorHandler: func(c echo.Context, err error) error {
			if c.Request().Header.Get(echo.HeaderAuthorization) == "" {
				return apperrors.ErrNoToken
			}
			return apperrors.ErrInvalidToken
		},
	})
	secured := func(op auth.Operation) []echo.MiddlewareFunc {
		return []echo.MiddlewareFunc{authn, guard.Require(op)}
	}

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/register", h.Auth.Register)
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/admin/login", h.Auth.AdminLogin)
	api.GET("/users/:id", h.User.GetUser)
	api.GET("/users/:id/followers", h.User.Followers)
	api.GET("/users/:id/following", h.User.Following)
	api.GET("/posts", h.Post.ListPosts)
	api.GET("/posts/:id", h.Post.GetPost)
	api.GET("/posts/:id/engagement", h.Post.Engagement)
	api.GET("/posts/:id/comments", h.Post.ListComments)
	api.GET("/ratings", h.Rating.Summary)

	// Profile
	api.GET("/auth/me", h.Auth.Me, secured(auth.OpProfileView)...)
	api.PUT("/users/me", h.User.UpdateMe, secured(auth.OpProfileEdit)...)
	api.POST("/users/:id/follow", h.User.Follow, secured(auth.OpUserFollow)...)
	api.DELETE("/users/:id/follow", h.User.Unfollow, secured(auth.OpUserFollow)...)

	// Engagement
	api.POST("/posts", h.Post.CreatePost, secured(auth.OpPostCreate)...)
	api.POST("/posts/:id/like", h.Post.Like, secured(auth.OpPostLike)...)
	api.DELETE("/posts/:id/like", h.Post.Unlike, secured(auth.OpPostLike)...)
	api.POST("/posts/:id/comments", h.Post.AddComment, secured(auth.OpPostComment)...)
	api.POST("/posts/:id/report", h.Post.Report, secured(auth.OpPostReport)...)
	api.PUT("/posts/:id", h.Post.UpdatePost, secured(auth.OpPostEditOwn)...)
	api.DELETE("/posts/:id", h.Post.DeletePost, secured(auth.OpPostDeleteOwn)...)
	api.POST("/ratings", h.Rating.Submit, secured(auth.OpRatingSubmit)...)
	api.GET("/ratings/me", h.Rating.Mine, secured(auth.OpRatingSubmit)...)

	// Moderation
	api.GET("/moderation/reports", h.Admin.ReportedPosts, secured(auth.OpContentModerate)...)
	api.PUT("/moderation/posts/:id", h.Admin.Moderate, secured(auth.OpContentModerate)...)

	// Admin
	admin := api.Group("/admin")
	admin.GET("/dashboard", h.Admin.Dashboard, secured(auth.OpAnalyticsView)...)
	admin.GET("/analytics", h.Admin.Analytics, secured(auth.OpAnalyticsView)...)
	admin.GET("/analytics/counters", h.Admin.Counters, secured(auth.OpAnalyticsView)...)
	admin.GET("/users", h.Admin.ListUsers, secured(auth.OpUsersManage)...)
	admin.GET("/users/:id", h.Admin.GetUser, secured(auth.OpUsersManage)...)
	admin.PUT("/users/:id/role", h.Admin.SetRole, secured(auth.OpUsersManage)...)
	admin.PUT("/users/:id/deactivate", h.Admin.Deactivate, secured(auth.OpUsersManage)...)
	admin.PUT("/users/:id/activate", h.Admin.Activate, secured(auth.OpUsersManage)...)
	if h.Seed != nil && !cfg.IsProduction() {
		admin.POST("/seed", h.Seed.Seed, secured(auth.OpUsersManage)...)
	}
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator reports fields by their JSON names.
func NewValidator() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &CustomValidator{validator: v}
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
