package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mokjang/youth-admin/internal/core/ports"
)

// TeacherHandler handles teacher profile administration.
type TeacherHandler struct {
	service ports.TeacherService
}

func NewTeacherHandler(service ports.TeacherService) *TeacherHandler {
	return &TeacherHandler{service: service}
}

// List handles GET /api/teachers.
//
// @Summary      List teachers
// @Tags         teachers
// @Produce      json
// @Success      200  {array}   domain.Teacher
// @Failure      401  {object}  errorResponse
// @Router       /api/teachers [get]
func (h *TeacherHandler) List(c echo.Context) error {
	teachers, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nonNil(teachers))
}

// Create handles POST /api/teachers. The account gets a temporary password
// and must change it on first login.
//
// @Summary      Create a teacher account
// @Tags         teachers
// @Accept       json
// @Produce      json
// @Param        body  body      createTeacherRequest  true  "Teacher details"
// @Success      201   {object}  domain.Teacher
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /api/teachers [post]
func (h *TeacherHandler) Create(c echo.Context) error {
	var req createTeacherRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	teacher, err := h.service.Create(c.Request().Context(), ports.CreateTeacherInput{
		Email:             req.Email,
		TemporaryPassword: req.TemporaryPassword,
		Name:              req.Name,
		Phone:             req.Phone,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, teacher)
}

// Update handles PATCH /api/teachers/:id, including approval.
//
// @Summary      Update a teacher
// @Tags         teachers
// @Accept       json
// @Produce      json
// @Param        id    path      string                true  "Teacher id"
// @Param        body  body      updateTeacherRequest  true  "Fields to change"
// @Success      200   {object}  domain.Teacher
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /api/teachers/{id} [patch]
func (h *TeacherHandler) Update(c echo.Context) error {
	var req updateTeacherRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	in, err := toUpdateTeacherInput(req)
	if err != nil {
		return err
	}
	teacher, err := h.service.Update(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, teacher)
}

// Delete handles DELETE /api/teachers/:id.
//
// @Summary      Delete a teacher and their account
// @Tags         teachers
// @Param        id   path  string  true  "Teacher id"
// @Success      204
// @Failure      404  {object}  errorResponse
// @Router       /api/teachers/{id} [delete]
func (h *TeacherHandler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
