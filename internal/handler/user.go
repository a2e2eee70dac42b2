package handler

import (
	"net/http"
	"net/mail"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/model"
	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/repository"
)

type UserHandler struct {
	Users repository.Users
	Log   *zap.Logger
}

func NewUserHandler(users repository.Users, log *zap.Logger) *UserHandler {
	if users == nil {
		panic("nil user repository passed to NewUserHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &UserHandler{Users: users, Log: log}
}

// Create handles POST /v1/users. Emails are unique case-insensitively.
func (h *UserHandler) Create(c echo.Context) error {
	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Phone string `json:"phone"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" || email == "" {
		return badRequest(c, "name and email are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return badRequest(c, "invalid email")
	}

	u, err := h.Users.CreateUser(c.Request().Context(), model.User{
		Name:  name,
		Email: email,
		Phone: strings.TrimSpace(req.Phone),
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *UserHandler) List(c echo.Context) error {
	users, err := h.Users.ListUsers(c.Request().Context())
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if users == nil {
		users = []model.User{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": users})
}

func (h *UserHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	u, err := h.Users.GetUser(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, u)
}
