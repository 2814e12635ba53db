package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-directory/internal/domain/entity"
	"github.com/oksasatya/go-user-directory/internal/domain/rules"
	"github.com/oksasatya/go-user-directory/pkg/apperror"
	"github.com/oksasatya/go-user-directory/pkg/validation"
)

// UserService is the part of *application.Service the handler calls.
type UserService interface {
	Create(ctx context.Context, u *entity.User) (*entity.User, error)
	Update(ctx context.Context, id int64, u *entity.User) (*entity.User, bool, error)
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*entity.User, bool, error)
	Search(ctx context.Context, from, to civil.Date) ([]entity.User, error)
}

// UserHandler serves /users. Failures are attached with c.Error and written by
// middleware.ErrorMapper.
type UserHandler struct {
	Svc    UserService
	MinAge int
	Logger *logrus.Logger
	Today  func() civil.Date
}

func NewUserHandler(svc UserService, minAge int, logger *logrus.Logger) *UserHandler {
	return &UserHandler{
		Svc:    svc,
		MinAge: minAge,
		Logger: logger,
		Today:  func() civil.Date { return civil.DateOf(time.Now()) },
	}
}

type userRequest struct {
	Email       string     `json:"email" binding:"required,email"`
	FirstName   string     `json:"firstName" binding:"required,name"`
	LastName    string     `json:"lastName" binding:"required,name"`
	BirthDate   civil.Date `json:"birthDate" binding:"required"`
	Address     string     `json:"address" binding:"omitempty,max=255"`
	PhoneNumber string     `json:"phoneNumber" binding:"omitempty,phone"`
}

func (r userRequest) toEntity() *entity.User {
	return &entity.User{
		Email:       r.Email,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		BirthDate:   r.BirthDate,
		Address:     r.Address,
		PhoneNumber: r.PhoneNumber,
	}
}

func (h *UserHandler) bindUser(c *gin.Context) (*entity.User, bool) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(validation.FromBindError(err))
		return nil, false
	}
	return req.toEntity(), true
}

func userIDParam(c *gin.Context) (int64, bool) {
	raw := c.Param("userId")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		_ = c.Error(apperror.NewMalformed("Invalid user id : "+raw, err))
		return 0, false
	}
	return id, true
}

func dateQuery(c *gin.Context, name string) (civil.Date, bool) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		_ = c.Error(apperror.NewMalformed("Required request parameter '"+name+"' is not present", nil))
		return civil.Date{}, false
	}
	d, err := civil.ParseDate(raw)
	if err != nil {
		_ = c.Error(apperror.NewMalformed("Invalid date format : "+raw, err))
		return civil.Date{}, false
	}
	return d, true
}

// Create handles POST /users. 201 with an empty body.
func (h *UserHandler) Create(c *gin.Context) {
	u, ok := h.bindUser(c)
	if !ok {
		return
	}
	if err := rules.MinimumAge(u.BirthDate, h.Today(), h.MinAge); err != nil {
		_ = c.Error(err)
		return
	}
	if _, err := h.Svc.Create(c.Request.Context(), u); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusCreated)
}

// Update handles PUT /users/:userId. 200 with an empty body, also when the user
// was inserted under the upsert policy.
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}
	u, ok := h.bindUser(c)
	if !ok {
		return
	}
	_, created, err := h.Svc.Update(c.Request.Context(), id, u)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if created && h.Logger != nil {
		h.Logger.WithField("user_id", id).Info("update inserted missing user")
	}
	c.Status(http.StatusOK)
}

// Delete handles DELETE /users/:userId.
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}
	if err := h.Svc.Delete(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusOK)
}

// Get handles GET /users/:userId.
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}
	u, found, err := h.Svc.FindByID(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if !found {
		_ = c.Error(apperror.NotFoundf("User with id %d not found", id))
		return
	}
	c.JSON(http.StatusOK, u)
}

// Search handles GET /users/search. Plain text, one user per line, unless the
// client asks for JSON.
func (h *UserHandler) Search(c *gin.Context) {
	from, ok := dateQuery(c, "fromDate")
	if !ok {
		return
	}
	to, ok := dateQuery(c, "toDate")
	if !ok {
		return
	}
	users, err := h.Svc.Search(c.Request.Context(), from, to)
	if err != nil {
		_ = c.Error(err)
		return
	}
	switch c.NegotiateFormat(binding.MIMEPlain, binding.MIMEJSON) {
	case binding.MIMEJSON:
		c.JSON(http.StatusOK, users)
	default:
		c.String(http.StatusOK, "%s", entity.Users(users).String())
	}
}
