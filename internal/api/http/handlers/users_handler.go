package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dormdesk/maintenance-service/internal/api/dto"
	"github.com/dormdesk/maintenance-service/internal/domain"
	"github.com/dormdesk/maintenance-service/internal/service"
	"github.com/dormdesk/maintenance-service/internal/storage"
	apperrors "github.com/dormdesk/maintenance-service/pkg/util"
)

// UsersHandler manages account roster and profile endpoints.
type UsersHandler struct {
	service *service.UserService
	uploads *storage.Store
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService, uploads *storage.Store) *UsersHandler {
	return &UsersHandler{service: userService, uploads: uploads}
}

// ListUsers GET /users.
func (h *UsersHandler) ListUsers(c *fiber.Ctx) error {
	caller, err := requireCaller(c)
	if err != nil {
		return err
	}
	users, err := h.service.List(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponses(users)})
}

// ListTechnicians GET /technicians. Available to every authenticated role so
// residents can see who might pick up their ticket.
func (h *UsersHandler) ListTechnicians(c *fiber.Ctx) error {
	if _, err := requireCaller(c); err != nil {
		return err
	}
	techs, err := h.service.ListTechnicians(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponses(techs)})
}

// CreateUser POST /users. Admin provisioning of resident and technician
// accounts.
func (h *UsersHandler) CreateUser(c *fiber.Ctx) error {
	caller, err := requireCaller(c)
	if err != nil {
		return err
	}
	var req dto.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, err := h.service.Provision(c.UserContext(), caller, service.ProvisionInput{
		Username: req.Username,
		Password: req.Password,
		Name:     req.Name,
		Phone:    req.Phone,
		Role:     domain.Role(req.Role),
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// UpdateUser PUT /users/:id. Accepts multipart form data when an avatar is
// attached, or plain JSON otherwise; form-key presence marks a field as part
// of the patch.
func (h *UsersHandler) UpdateUser(c *fiber.Ctx) error {
	caller, err := requireCaller(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var patch service.UserPatch
	if isMultipart(c) {
		patch, err = h.parseMultipartUserPatch(c)
	} else {
		patch, err = parseJSONUserPatch(c)
	}
	if err != nil {
		return err
	}

	user, err := h.service.UpdateProfile(c.UserContext(), caller, id, patch)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

func parseJSONUserPatch(c *fiber.Ctx) (service.UserPatch, error) {
	var req dto.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return service.UserPatch{}, apperrors.NewValidationError("invalid payload", nil)
	}
	patch := service.UserPatch{
		Username: req.Username,
		Name:     req.Name,
		Password: req.Password,
		Phone:    req.Phone,
	}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		patch.Role = &role
	}
	return patch, nil
}

func (h *UsersHandler) parseMultipartUserPatch(c *fiber.Ctx) (service.UserPatch, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return service.UserPatch{}, apperrors.NewValidationError("invalid form payload", nil)
	}

	patch := service.UserPatch{
		Username: formValueKeepEmpty(form.Value, "username"),
		Name:     formValueKeepEmpty(form.Value, "name"),
		Password: formValueKeepEmpty(form.Value, "password"),
		// a present-but-blank phone clears the stored number
		Phone: formValueKeepEmpty(form.Value, "phone"),
	}
	if vals, ok := form.Value["role"]; ok && len(vals) > 0 {
		role := domain.Role(vals[0])
		patch.Role = &role
	}
	if files := form.File["avatar"]; len(files) > 0 {
		path, err := h.uploads.SaveMultipart(files[0])
		if err != nil {
			return service.UserPatch{}, apperrors.MapError(err)
		}
		patch.Avatar = &path
	}
	return patch, nil
}

// formValueKeepEmpty returns a pointer for any present key, including blank
// values; absence alone yields nil.
func formValueKeepEmpty(values map[string][]string, key string) *string {
	vals, ok := values[key]
	if !ok || len(vals) == 0 {
		return nil
	}
	return &vals[0]
}

func userResponses(users []domain.User) []dto.UserResponse {
	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, dto.NewUserResponse(&users[i]))
	}
	return items
}
