package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"useraccount/internal/dto"
	"useraccount/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const (
	statusSucceed = "succeed"
	statusFailed  = "failed"
)

type successEnvelope struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"statusCode"`
	Data       any             `json:"data,omitempty"`
	Pagination *dto.Pagination `json:"pagination,omitempty"`
}

type errorEnvelope struct {
	Status     string `json:"status"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

var errInvalidBody = errors.New("invalid request body")

func writeSuccess(c echo.Context, status int, data any) error {
	return c.JSON(status, successEnvelope{Status: statusSucceed, StatusCode: status, Data: data})
}

func writePage(c echo.Context, data any, pagination dto.Pagination) error {
	return c.JSON(http.StatusOK, successEnvelope{
		Status:     statusSucceed,
		StatusCode: http.StatusOK,
		Data:       data,
		Pagination: &pagination,
	})
}

func writeError(c echo.Context, status int, err error) error {
	return c.JSON(status, errorEnvelope{Status: statusFailed, StatusCode: status, Message: err.Error()})
}

// writeServiceError maps workflow errors to statuses. Anything unclassified
// is logged with its cause and reported as a generic internal error.
func writeServiceError(c echo.Context, logger logrus.FieldLogger, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrInvalidPhoto):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrEmailNotVerified),
		errors.Is(err, service.ErrInvalidToken):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrEmailAlreadyRegistered), errors.Is(err, service.ErrEmailAlreadyVerified):
		status = http.StatusConflict
	case errors.Is(err, service.ErrEmailNotRegistered), errors.Is(err, service.ErrUserNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		if logger == nil {
			logger = logrus.StandardLogger()
		}
		logger.WithError(err).WithFields(logrus.Fields{
			"method": c.Request().Method,
			"uri":    c.Request().RequestURI,
		}).Error("request failed")
		return writeError(c, status, service.ErrInternal)
	}
	return writeError(c, status, err)
}

// ErrorHandler renders errors returned to Echo (routing misses, middleware
// rejections, panics recovered upstream) in the failure envelope.
func ErrorHandler(logger logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status := http.StatusInternalServerError
		message := service.ErrInternal.Error()

		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			status = httpErr.Code
			if msg, ok := httpErr.Message.(string); ok {
				message = msg
			} else {
				message = http.StatusText(status)
			}
		} else {
			logger.WithError(err).WithField("uri", c.Request().RequestURI).Error("unhandled error")
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, errorEnvelope{Status: statusFailed, StatusCode: status, Message: message})
		}
		if writeErr != nil {
			logger.WithError(writeErr).Warn("error response not written")
		}
	}
}

func decodeJSON(c echo.Context, target any) error {
	decoder := json.NewDecoder(c.Request().Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return errInvalidBody
	}
	return nil
}

// NewValidator reports fields by their JSON name.
func NewValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		for _, tag := range []string{"json", "query"} {
			name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return field.Name
	})
	return validate
}

func validate(v *validator.Validate, payload any) error {
	if v == nil {
		return nil
	}
	err := v.Struct(payload)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, fieldMessage(fe))
	}
	return errors.New(strings.Join(messages, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "datetime":
		return fmt.Sprintf("%s must use the YYYY-MM-DD format", fe.Field())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

func stringPtr(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}
