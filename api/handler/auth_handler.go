package handler

import (
	"net/http"
	"time"

	"useraccount/internal/dto"
	"useraccount/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type AuthHandler struct {
	Service         *service.AuthService
	Validate        *validator.Validate
	Logger          logrus.FieldLogger
	ExposeResetLink bool
}

func NewAuthHandler(svc *service.AuthService, validate *validator.Validate, logger logrus.FieldLogger) *AuthHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AuthHandler{
		Service:  svc,
		Validate: validate,
		Logger:   logger,
	}
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req dto.RegisterRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := validate(h.Validate, req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	input := service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
		IPAddress:   stringPtr(c.RealIP()),
	}
	user, err := h.Service.Register(c.Request().Context(), input)
	if err != nil {
		return writeServiceError(c, h.Logger, err)
	}
	return writeSuccess(c, http.StatusCreated, dto.RegisterResponse{
		ID:      user.ID.String(),
		Message: "user has been created",
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req dto.LoginRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := validate(h.Validate, req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	input := service.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: stringPtr(c.RealIP()),
	}
	result, err := h.Service.Login(c.Request().Context(), input)
	if err != nil {
		return writeServiceError(c, h.Logger, err)
	}
	return writeSuccess(c, http.StatusOK, mapLoginResponse(result))
}

func (h *AuthHandler) Refresh(c echo.Context) error {
	var req dto.RefreshTokenRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := validate(h.Validate, req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	result, err := h.Service.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return writeServiceError(c, h.Logger, err)
	}
	return writeSuccess(c, http.StatusOK, mapLoginResponse(result))
}

func (h *AuthHandler) SendVerification(c echo.Context) error {
	var req dto.VerificationRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := validate(h.Validate, req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.Service.SendVerification(c.Request().Context(), req.Email); err != nil {
		return writeServiceError(c, h.Logger, err)
	}
	return writeSuccess(c, http.StatusOK, dto.MessageResponse{Message: "verification email has been sent"})
}

// VerifyEmail accepts the token either from the emailed link (GET ?token=)
// or from a JSON body.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	var req dto.VerifyEmailRequest
	if c.Request().Method == http.MethodGet {
		req.Token = c.QueryParam("token")
	} else if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := validate(h.Validate, req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.Service.VerifyEmail(c.Request().Context(), req.Token, stringPtr(c.RealIP())); err != nil {
		return writeServiceError(c, h.Logger, err)
	}
	return writeSuccess(c, http.StatusOK, dto.MessageResponse{Message: "email has been verified"})
}

func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req dto.ForgotPasswordRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := validate(h.Validate, req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	ticket, err := h.Service.ForgotPassword(c.Request().Context(), req.Email, stringPtr(c.RealIP()))
	if err != nil {
		return writeServiceError(c, h.Logger, err)
	}
	response := dto.ForgotPasswordResponse{Message: "password reset link has been sent to your email"}
	if h.ExposeResetLink {
		response.ResetLink = ticket.Link
	}
	return writeSuccess(c, http.StatusOK, response)
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req dto.ResetPasswordRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := validate(h.Validate, req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.Service.ResetPassword(c.Request().Context(), req.Token, req.NewPassword, stringPtr(c.RealIP())); err != nil {
		return writeServiceError(c, h.Logger, err)
	}
	return writeSuccess(c, http.StatusOK, dto.MessageResponse{Message: "password has been reset"})
}

func mapLoginResponse(result *service.LoginResult) dto.LoginResponse {
	return dto.LoginResponse{
		User:             dto.UserResponseFromEntity(result.User),
		Token:            result.AccessToken,
		ExpiresIn:        secondsUntil(result.AccessExpiresAt),
		RefreshToken:     result.RefreshToken,
		RefreshExpiresIn: secondsUntil(result.RefreshExpiresAt),
	}
}

func secondsUntil(t time.Time) int64 {
	seconds := int64(time.Until(t).Round(time.Second) / time.Second)
	if seconds < 0 {
		return 0
	}
	return seconds
}
