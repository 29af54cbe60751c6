package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mokjang/youth-admin/internal/core/ports"
)

type MokjangHandler struct {
	service ports.MokjangService
}

func NewMokjangHandler(service ports.MokjangService) *MokjangHandler {
	return &MokjangHandler{service: service}
}

// @Summary      List mokjangs
// @Tags         mokjangs
// @Produce      json
// @Success      200  {array}  domain.Mokjang
// @Router       /api/mokjangs [get]
func (h *MokjangHandler) List(c echo.Context) error {
	mokjangs, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nonNil(mokjangs))
}

// @Summary      Create a mokjang
// @Tags         mokjangs
// @Accept       json
// @Produce      json
// @Param        body  body      mokjangRequest  true  "Mokjang"
// @Success      201   {object}  domain.Mokjang
// @Failure      400   {object}  errorResponse
// @Router       /api/mokjangs [post]
func (h *MokjangHandler) Create(c echo.Context) error {
	var req mokjangRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	m, err := h.service.Create(c.Request().Context(), ports.MokjangInput{Name: req.Name, TeacherID: req.TeacherID})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, m)
}

// @Summary      Update a mokjang
// @Tags         mokjangs
// @Accept       json
// @Produce      json
// @Param        id    path      string          true  "Mokjang id"
// @Param        body  body      mokjangRequest  true  "Fields to change"
// @Success      200   {object}  domain.Mokjang
// @Failure      404   {object}  errorResponse
// @Router       /api/mokjangs/{id} [patch]
func (h *MokjangHandler) Update(c echo.Context) error {
	var req mokjangRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	m, err := h.service.Update(c.Request().Context(), c.Param("id"), ports.MokjangInput{Name: req.Name, TeacherID: req.TeacherID})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}

// Delete removes the group; its students stay, without a mokjang.
//
// @Summary      Delete a mokjang
// @Tags         mokjangs
// @Param        id   path  string  true  "Mokjang id"
// @Success      204
// @Router       /api/mokjangs/{id} [delete]
func (h *MokjangHandler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
