package handler

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"useraccount/api/middleware"
	"useraccount/internal/dto"
	"useraccount/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const sniffLen = 512

type UserHandler struct {
	Service  *service.UserService
	Validate *validator.Validate
	Logger   logrus.FieldLogger
}

func NewUserHandler(svc *service.UserService, validate *validator.Validate, logger logrus.FieldLogger) *UserHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &UserHandler{Service: svc, Validate: validate, Logger: logger}
}

func (h *UserHandler) List(c echo.Context) error {
	var query dto.ListUsersQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &query); err != nil {
		return writeError(c, http.StatusBadRequest, errors.New("invalid query parameters"))
	}
	if err := validate(h.Validate, query); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}

	page, err := h.Service.ListUsers(c.Request().Context(), service.ListUsersInput{
		Limit:  query.Limit,
		Page:   query.Page,
		Sort:   query.Sort,
		SortBy: query.SortBy,
		Search: query.Search,
	})
	if err != nil {
		return writeServiceError(c, h.Logger, err)
	}

	return writePage(c, dto.UserResponsesFromEntities(page.Users), dto.Pagination{
		CurrentPage: page.Page,
		Limit:       page.Limit,
		TotalData:   page.Total,
		TotalPage:   page.TotalPages(),
	})
}

func (h *UserHandler) Me(c echo.Context) error {
	accountID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errors.New("unauthorized"))
	}
	user, err := h.Service.GetUser(c.Request().Context(), accountID.String())
	if err != nil {
		return writeServiceError(c, h.Logger, err)
	}
	return writeSuccess(c, http.StatusOK, dto.UserResponseFromEntity(user))
}

// Get answers an unknown id with 400, like a malformed one.
func (h *UserHandler) Get(c echo.Context) error {
	user, err := h.Service.GetUser(c.Request().Context(), c.Param("id"))
	if errors.Is(err, service.ErrUserNotFound) {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err != nil {
		return writeServiceError(c, h.Logger, err)
	}
	return writeSuccess(c, http.StatusOK, dto.UserResponseFromEntity(user))
}

func (h *UserHandler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return writeError(c, http.StatusBadRequest, errors.New("invalid user id"))
	}

	var req dto.UpdateUserRequest
	var photo *service.PhotoUpload
	if isMultipart(c.Request()) {
		form, err := c.MultipartForm()
		if err != nil {
			return writeError(c, http.StatusBadRequest, errInvalidBody)
		}
		req = updateRequestFromForm(form)
		var file io.Closer
		photo, file, err = photoFromForm(form)
		if err != nil {
			return writeError(c, http.StatusBadRequest, err)
		}
		if file != nil {
			defer file.Close()
		}
	} else if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := validate(h.Validate, req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}

	input := service.UpdateProfileInput{
		Name:        req.Name,
		Gender:      req.Gender,
		Address:     req.Address,
		PhoneNumber: req.PhoneNumber,
		Photo:       photo,
		IPAddress:   stringPtr(c.RealIP()),
	}
	if req.BirthDate != nil {
		birthDate, err := time.Parse(dto.DateLayout, *req.BirthDate)
		if err != nil {
			return writeError(c, http.StatusBadRequest, errors.New("birthDate must use the YYYY-MM-DD format"))
		}
		input.BirthDate = &birthDate
	}

	user, err := h.Service.UpdateProfile(c.Request().Context(), id, input)
	if err != nil {
		return writeServiceError(c, h.Logger, err)
	}
	return writeSuccess(c, http.StatusOK, dto.UserResponseFromEntity(user))
}

func (h *UserHandler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return writeError(c, http.StatusBadRequest, errors.New("invalid user id"))
	}
	if err := h.Service.DeleteUser(c.Request().Context(), id, stringPtr(c.RealIP())); err != nil {
		return writeServiceError(c, h.Logger, err)
	}
	return writeSuccess(c, http.StatusOK, dto.MessageResponse{Message: "user has been deleted"})
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
}

func updateRequestFromForm(form *multipart.Form) dto.UpdateUserRequest {
	field := func(name string) *string {
		values, ok := form.Value[name]
		if !ok || len(values) == 0 {
			return nil
		}
		value := values[0]
		return &value
	}
	return dto.UpdateUserRequest{
		Name:        field("name"),
		Gender:      field("gender"),
		BirthDate:   field("birthDate"),
		Address:     field("address"),
		PhoneNumber: field("phoneNumber"),
	}
}

// photoFromForm opens the uploaded photo and sniffs its content type from
// the first bytes instead of trusting the client header.
func photoFromForm(form *multipart.Form) (*service.PhotoUpload, io.Closer, error) {
	files := form.File["photo"]
	if len(files) == 0 {
		return nil, nil, nil
	}
	header := files[0]
	if header.Size > service.MaxPhotoSize {
		return nil, nil, service.ErrInvalidPhoto
	}
	file, err := header.Open()
	if err != nil {
		return nil, nil, errInvalidBody
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		_ = file.Close()
		return nil, nil, errInvalidBody
	}
	head = head[:n]

	return &service.PhotoUpload{
		Filename:    header.Filename,
		ContentType: http.DetectContentType(head),
		Size:        header.Size,
		Body:        io.MultiReader(bytes.NewReader(head), file),
	}, file, nil
}
