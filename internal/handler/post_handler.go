package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"civicvoice/internal/auth"
	apperrors "civicvoice/internal/errors"
	"civicvoice/internal/model"
	"civicvoice/internal/service"
)

// PostHandler exposes the engagement ledger.
type PostHandler struct {
	ledger service.LedgerService
}

// NewPostHandler creates a post handler.
func NewPostHandler(ledger service.LedgerService) *PostHandler {
	return &PostHandler{ledger: ledger}
}

// CreatePostRequest represents a new post.
type CreatePostRequest struct {
	Content  string `json:"content" validate:"required,max=2000"`
	Category string `json:"category" validate:"omitempty"`
}

// UpdatePostRequest carries the editable post fields. Omitted fields are left unchanged.
type UpdatePostRequest struct {
	Content  *string `json:"content"`
	Category *string `json:"category"`
}

// CommentRequest represents a new comment.
type CommentRequest struct {
	Text string `json:"text" validate:"required,max=500"`
}

// ReportRequest represents a content report.
type ReportRequest struct {
	Reason      string `json:"reason" validate:"required"`
	Description string `json:"description" validate:"max=500"`
}

// PostView is a post with its derived engagement counts.
type PostView struct {
	*model.Post
	LikeCount    int `json:"likeCount"`
	CommentCount int `json:"commentCount"`
}

func viewOf(p *model.Post) PostView {
	return PostView{Post: p, LikeCount: p.LikeCount(), CommentCount: p.CommentCount()}
}

// CreatePost godoc
// @Summary Create a post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreatePostRequest true "Post"
// @Success 201 {object} Response{data=PostView}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /posts [post]
func (h *PostHandler) CreatePost(c echo.Context) error {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	var req CreatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	post, err := h.ledger.CreatePost(c.Request().Context(), user.ID, req.Content, model.Category(req.Category))
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "post created", echo.Map{"post": viewOf(post)})
}

// ListPosts godoc
// @Summary List public posts, newest first
// @Tags posts
// @Produce json
// @Param category query string false "Category"
// @Param author query string false "Author ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} Response
// @Failure 400 {object} errors.ErrorResponse
// @Router /posts [get]
func (h *PostHandler) ListPosts(c echo.Context) error {
	q := service.PostQuery{Category: model.Category(c.QueryParam("category")), Page: pageFrom(c)}
	if raw := c.QueryParam("author"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return apperrors.ErrInvalidID
		}
		q.AuthorID = id
	}
	posts, total, err := h.ledger.ListPosts(c.Request().Context(), q)
	if err != nil {
		return err
	}
	views := make([]PostView, 0, len(posts))
	for i := range posts {
		views = append(views, viewOf(&posts[i]))
	}
	return respond(c, http.StatusOK, "posts retrieved", echo.Map{
		"posts":      views,
		"pagination": newPagination(q.Page, total),
	})
}

// GetPost godoc
// @Summary Get a post with likes and comments
// @Tags posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} Response{data=PostView}
// @Failure 404 {object} errors.ErrorResponse
// @Router /posts/{id} [get]
func (h *PostHandler) GetPost(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	post, err := h.ledger.GetPost(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "post retrieved", echo.Map{"post": viewOf(post)})
}

// Engagement godoc
// @Summary Like and comment counts of a post
// @Tags posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} Response{data=service.EngagementSummary}
// @Failure 404 {object} errors.ErrorResponse
// @Router /posts/{id}/engagement [get]
func (h *PostHandler) Engagement(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	summary, err := h.ledger.EngagementSummary(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "engagement retrieved", summary)
}

// Like godoc
// @Summary Like a post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 200 {object} Response
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /posts/{id}/like [post]
func (h *PostHandler) Like(c echo.Context) error {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	count, err := h.ledger.Like(c.Request().Context(), id, user.ID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "post liked", echo.Map{"likeCount": count})
}

// Unlike godoc
// @Summary Remove a like
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 200 {object} Response
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /posts/{id}/like [delete]
func (h *PostHandler) Unlike(c echo.Context) error {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	count, err := h.ledger.Unlike(c.Request().Context(), id, user.ID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "post unliked", echo.Map{"likeCount": count})
}

// AddComment godoc
// @Summary Comment on a post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Param request body CommentRequest true "Comment"
// @Success 201 {object} Response
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /posts/{id}/comments [post]
func (h *PostHandler) AddComment(c echo.Context) error {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req CommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	comment, count, err := h.ledger.AddComment(c.Request().Context(), id, user.ID, req.Text)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "comment added", echo.Map{"comment": comment, "commentCount": count})
}

// ListComments godoc
// @Summary List comments, newest first
// @Tags posts
// @Produce json
// @Param id path string true "Post ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} Response
// @Failure 404 {object} errors.ErrorResponse
// @Router /posts/{id}/comments [get]
func (h *PostHandler) ListComments(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	page := pageFrom(c)
	comments, total, err := h.ledger.ListComments(c.Request().Context(), id, page)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "comments retrieved", echo.Map{
		"comments":   comments,
		"pagination": newPagination(page, total),
	})
}

// Report godoc
// @Summary Report a post for moderation
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Param request body ReportRequest true "Report"
// @Success 200 {object} Response
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /posts/{id}/report [post]
func (h *PostHandler) Report(c echo.Context) error {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req ReportRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.ledger.ReportPost(c.Request().Context(), id, user.ID, model.ReportReason(req.Reason), req.Description); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "post reported", nil)
}

// UpdatePost godoc
// @Summary Edit a post
// @Description Authors may edit their own posts; moderators and admins may edit any. Likes and comments are kept.
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Param request body UpdatePostRequest true "Fields to change"
// @Success 200 {object} Response{data=PostView}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /posts/{id} [put]
func (h *PostHandler) UpdatePost(c echo.Context) error {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req UpdatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	update := model.PostUpdate{Content: req.Content}
	if req.Category != nil {
		category := model.Category(*req.Category)
		update.Category = &category
	}
	post, err := h.ledger.UpdatePost(c.Request().Context(), id, user, update)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "post updated", echo.Map{"post": viewOf(post)})
}

// DeletePost godoc
// @Summary Delete a post
// @Description Authors may delete their own posts; moderators and admins may delete any.
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 200 {object} Response
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /posts/{id} [delete]
func (h *PostHandler) DeletePost(c echo.Context) error {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.ledger.DeletePost(c.Request().Context(), id, user); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "post deleted", nil)
}
