package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/auth"
)

// ManagementHandler answers the role protected management routes. Each
// response names the caller and the operation it was allowed to perform.
type ManagementHandler struct{}

// NewManagementHandler constructs handler.
func NewManagementHandler() *ManagementHandler {
	return &ManagementHandler{}
}

// Handle serves GET, POST, PUT and DELETE on /api/v1/management.
func (h *ManagementHandler) Handle(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	resp := fiber.Map{"operation": managementOperation(c.Method())}
	if principal != nil {
		resp["caller"] = principal.Subject
		resp["role"] = principal.Role
	}
	return c.JSON(resp)
}

func managementOperation(method string) string {
	switch method {
	case fiber.MethodGet:
		return "read"
	case fiber.MethodPost:
		return "create"
	case fiber.MethodPut:
		return "update"
	case fiber.MethodDelete:
		return "delete"
	}
	return "unknown"
}
