package auth

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/musicmoon/marketplace/internal/apperr"
	"github.com/musicmoon/marketplace/internal/identity"
	"github.com/musicmoon/marketplace/internal/logging"
)

// Handler exposes sign-up and sign-in endpoints.
type Handler struct {
	ids    *identity.Service
	svc    *Service
	logger *slog.Logger
}

// NewHandler constructs an auth HTTP handler.
func NewHandler(ids *identity.Service, svc *Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handler{ids: ids, svc: svc, logger: logger}
}

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Identity identity.Identity `json:"identity"`
	Token
}

// SignUp registers an identity and returns it with an access token.
func (h *Handler) SignUp(c *fiber.Ctx) error {
	var req signUpRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, err := h.ids.Register(c.UserContext(), identity.RegisterInput{
		Email: req.Email, Password: req.Password, Name: req.Name, Phone: req.Phone,
	})
	if err != nil {
		return fiber.NewError(apperr.Status(err), err.Error())
	}
	token, err := h.svc.Issue(user)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	h.logger.Info("auth.signup completed", slog.String("identity_id", user.ID), slog.Int("status", http.StatusCreated))
	return c.Status(http.StatusCreated).JSON(authResponse{Identity: user, Token: token})
}

// SignIn verifies credentials and returns an access token.
func (h *Handler) SignIn(c *fiber.Ctx) error {
	var req signInRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, err := h.ids.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		// Unknown email and wrong password look the same to the caller.
		if apperr.Status(err) == http.StatusNotFound {
			return fiber.NewError(http.StatusUnauthorized, "invalid credentials")
		}
		return fiber.NewError(apperr.Status(err), err.Error())
	}
	token, err := h.svc.Issue(user)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(authResponse{Identity: user, Token: token})
}
