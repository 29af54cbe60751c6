package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mokjang/youth-admin/internal/core/domain"
	"github.com/mokjang/youth-admin/internal/core/ports"
)

type MinistryHandler struct {
	service ports.MinistryService
}

func NewMinistryHandler(service ports.MinistryService) *MinistryHandler {
	return &MinistryHandler{service: service}
}

// @Summary      List ministries
// @Tags         ministries
// @Produce      json
// @Success      200  {array}  domain.Ministry
// @Router       /api/ministries [get]
func (h *MinistryHandler) List(c echo.Context) error {
	ministries, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nonNil(ministries))
}

// @Summary      Create a ministry
// @Tags         ministries
// @Accept       json
// @Produce      json
// @Param        body  body      ministryRequest  true  "Ministry"
// @Success      201   {object}  domain.Ministry
// @Router       /api/ministries [post]
func (h *MinistryHandler) Create(c echo.Context) error {
	var req ministryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	m, err := h.service.Create(c.Request().Context(), ports.MinistryInput{Name: req.Name, Description: req.Description})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, m)
}

// @Summary      Update a ministry
// @Tags         ministries
// @Accept       json
// @Produce      json
// @Param        id    path      string           true  "Ministry id"
// @Param        body  body      ministryRequest  true  "Fields to change"
// @Success      200   {object}  domain.Ministry
// @Router       /api/ministries/{id} [patch]
func (h *MinistryHandler) Update(c echo.Context) error {
	var req ministryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	m, err := h.service.Update(c.Request().Context(), c.Param("id"), ports.MinistryInput{Name: req.Name, Description: req.Description})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}

// @Summary      Delete a ministry
// @Tags         ministries
// @Param        id   path  string  true  "Ministry id"
// @Success      204
// @Router       /api/ministries/{id} [delete]
func (h *MinistryHandler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// AddMember handles POST /api/ministries/:id/members.
//
// @Summary      Add a ministry member
// @Tags         ministries
// @Accept       json
// @Produce      json
// @Param        id    path      string         true  "Ministry id"
// @Param        body  body      memberRequest  true  "Member"
// @Success      200   {object}  domain.Ministry
// @Failure      404   {object}  errorResponse
// @Router       /api/ministries/{id}/members [post]
func (h *MinistryHandler) AddMember(c echo.Context) error {
	var req memberRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	m, err := h.service.AddMember(c.Request().Context(), c.Param("id"), domain.MemberKind(req.Kind), req.MemberID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}

// RemoveMember handles DELETE /api/ministries/:id/members/:kind/:memberId.
//
// @Summary      Remove a ministry member
// @Tags         ministries
// @Produce      json
// @Param        id        path      string  true  "Ministry id"
// @Param        kind      path      string  true  "student or teacher"
// @Param        memberId  path      string  true  "Member id"
// @Success      200       {object}  domain.Ministry
// @Router       /api/ministries/{id}/members/{kind}/{memberId} [delete]
func (h *MinistryHandler) RemoveMember(c echo.Context) error {
	m, err := h.service.RemoveMember(c.Request().Context(), c.Param("id"), domain.MemberKind(c.Param("kind")), c.Param("memberId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}
