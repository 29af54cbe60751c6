package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/mokjang/youth-admin/internal/api/metrics"
	"github.com/mokjang/youth-admin/internal/core/domain"
	"github.com/mokjang/youth-admin/internal/core/ports"
)

// SMSDispatcher is the interface the handler uses to hand queued messages to
// the delivery workers. EnqueueBatch returns how many were accepted.
type SMSDispatcher interface {
	EnqueueBatch(msgs []*domain.SMSMessage) int
}

// SMSQueuer records a batch before it is dispatched.
type SMSQueuer interface {
	Queue(ctx context.Context, input ports.SendSMSInput) (*ports.SendSMSResult, error)
	History(ctx context.Context, limit int) ([]*domain.SMSMessage, error)
}

// SMSHandler handles bulk SMS sends.
type SMSHandler struct {
	service    SMSQueuer
	dispatcher SMSDispatcher
}

func NewSMSHandler(service SMSQueuer, dispatcher SMSDispatcher) *SMSHandler {
	return &SMSHandler{service: service, dispatcher: dispatcher}
}

// Send handles POST /api/sms. The batch is recorded, then delivered in the
// background; the response only says how many messages were accepted.
//
// @Summary      Send a bulk SMS
// @Tags         sms
// @Accept       json
// @Produce      json
// @Param        body  body      sendSMSRequest  true  "Recipients and message"
// @Success      202   {object}  acceptedResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /api/sms [post]
func (h *SMSHandler) Send(c echo.Context) error {
	userID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}
	var req sendSMSRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.service.Queue(c.Request().Context(), ports.SendSMSInput{
		Recipients: toRecipients(req.Recipients),
		Message:    req.Message,
		SentBy:     userID,
	})
	if err != nil {
		return err
	}

	accepted := h.dispatcher.EnqueueBatch(result.Messages)
	metrics.SMSQueuedTotal.Add(float64(accepted))
	if accepted == 0 {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "sms delivery is shutting down")
	}
	return c.JSON(http.StatusAccepted, acceptedResponse{
		Accepted: accepted,
		BatchID:  result.BatchID,
	})
}

// History handles GET /api/sms?limit=.
//
// @Summary      SMS log
// @Tags         sms
// @Produce      json
// @Param        limit  query    int  false  "Maximum entries (default 100)"
// @Success      200    {array}  domain.SMSMessage
// @Router       /api/sms [get]
func (h *SMSHandler) History(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	msgs, err := h.service.History(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nonNil(msgs))
}
