package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/mokjang/youth-admin/internal/api/metrics"
	"github.com/mokjang/youth-admin/internal/core/ports"
)

type AttendanceHandler struct {
	service ports.AttendanceService
}

func NewAttendanceHandler(service ports.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: service}
}

// List handles GET /api/attendance?from=&to=. Both bounds are week start
// dates and may be omitted.
//
// @Summary      List attendance marks
// @Tags         attendance
// @Produce      json
// @Param        from  query     string  false  "First week (YYYY-MM-DD)"
// @Param        to    query     string  false  "Last week (YYYY-MM-DD)"
// @Success      200   {array}   domain.Attendance
// @Failure      400   {object}  errorResponse
// @Router       /api/attendance [get]
func (h *AttendanceHandler) List(c echo.Context) error {
	records, err := h.service.List(c.Request().Context(), c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nonNil(records))
}

// Mark handles POST /api/attendance. Marking the same student and week again
// replaces the earlier mark.
//
// @Summary      Record attendance
// @Tags         attendance
// @Accept       json
// @Produce      json
// @Param        body  body      markAttendanceRequest  true  "Mark"
// @Success      200   {object}  domain.Attendance
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /api/attendance [post]
func (h *AttendanceHandler) Mark(c echo.Context) error {
	userID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}
	var req markAttendanceRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	rec, err := h.service.Mark(c.Request().Context(), ports.MarkAttendanceInput{
		StudentID:  req.StudentID,
		Week:       req.Week,
		Present:    req.Present,
		RecordedBy: userID,
	})
	if err != nil {
		return err
	}
	metrics.AttendanceMarksTotal.WithLabelValues(strconv.FormatBool(rec.Present)).Inc()
	return c.JSON(http.StatusOK, rec)
}

// @Summary      Delete an attendance mark
// @Tags         attendance
// @Param        id   path  string  true  "Mark id"
// @Success      204
// @Router       /api/attendance/{id} [delete]
func (h *AttendanceHandler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
