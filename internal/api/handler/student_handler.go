package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mokjang/youth-admin/internal/core/ports"
)

type StudentHandler struct {
	service ports.StudentService
}

func NewStudentHandler(service ports.StudentService) *StudentHandler {
	return &StudentHandler{service: service}
}

// List handles GET /api/students, optionally filtered by ?mokjangId=.
//
// @Summary      List students
// @Tags         students
// @Produce      json
// @Param        mokjangId  query     string  false  "Only students of this mokjang"
// @Success      200        {array}   domain.Student
// @Router       /api/students [get]
func (h *StudentHandler) List(c echo.Context) error {
	students, err := h.service.List(c.Request().Context(), c.QueryParam("mokjangId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nonNil(students))
}

// Get handles GET /api/students/:id.
//
// @Summary      Get a student
// @Tags         students
// @Produce      json
// @Param        id   path      string  true  "Student id"
// @Success      200  {object}  domain.Student
// @Failure      404  {object}  errorResponse
// @Router       /api/students/{id} [get]
func (h *StudentHandler) Get(c echo.Context) error {
	student, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, student)
}

// Create handles POST /api/students.
//
// @Summary      Create a student
// @Tags         students
// @Accept       json
// @Produce      json
// @Param        body  body      studentRequest  true  "Student"
// @Success      201   {object}  domain.Student
// @Failure      400   {object}  errorResponse
// @Router       /api/students [post]
func (h *StudentHandler) Create(c echo.Context) error {
	var req studentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	student, err := h.service.Create(c.Request().Context(), toStudentInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, student)
}

// Update handles PATCH /api/students/:id.
//
// @Summary      Update a student
// @Tags         students
// @Accept       json
// @Produce      json
// @Param        id    path      string          true  "Student id"
// @Param        body  body      studentRequest  true  "Fields to change"
// @Success      200   {object}  domain.Student
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /api/students/{id} [patch]
func (h *StudentHandler) Update(c echo.Context) error {
	var req studentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	student, err := h.service.Update(c.Request().Context(), c.Param("id"), toStudentInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, student)
}

// Delete handles DELETE /api/students/:id.
//
// @Summary      Delete a student
// @Tags         students
// @Param        id   path  string  true  "Student id"
// @Success      204
// @Failure      404  {object}  errorResponse
// @Router       /api/students/{id} [delete]
func (h *StudentHandler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
