package console

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/mokjang/youth-admin/internal/client/cache"
	"github.com/mokjang/youth-admin/internal/client/localstore"
	"github.com/mokjang/youth-admin/internal/client/session"
	"github.com/mokjang/youth-admin/internal/core/domain"
)

const smsLogLimit = 50

type smsData struct {
	Filter     domain.RecipientFilter
	Mokjangs   []domain.Mokjang
	Ministries []domain.Ministry
	Recipients []domain.Recipient
	Templates  []localstore.Entry
	History    []localstore.Entry
	Log        []domain.SMSMessage
	Message    string
}

func recipientFilter(get func(string) string) domain.RecipientFilter {
	return domain.RecipientFilter{
		MokjangID:      get("mokjang"),
		MinistryID:     get("ministry"),
		IncludeParents: get("parents") == "1",
	}
}

// selectRecipients reads the roster and applies f.
func (s *Server) selectRecipients(c echo.Context, ws *Workspace, d *smsData) error {
	var students []domain.Student
	g, ctx := errgroup.WithContext(c.Request().Context())
	fetchInto(ctx, g, ws, studentsKey, &students)
	fetchInto(ctx, g, ws, mokjangsKey, &d.Mokjangs)
	fetchInto(ctx, g, ws, ministriesKey, &d.Ministries)
	if err := g.Wait(); err != nil {
		return err
	}
	d.Recipients = domain.SelectRecipients(students, d.Ministries, d.Filter)
	return nil
}

func (s *Server) sms(c echo.Context, ws *Workspace, u *domain.SessionUser) error {
	d := smsData{Filter: recipientFilter(c.QueryParam), Message: c.QueryParam("template")}
	if err := s.selectRecipients(c, ws, &d); err != nil {
		return err
	}

	logKey := cache.Key(smsKey, url.Values{"limit": {fmt.Sprint(smsLogLimit)}})
	messages, err := cache.Get[[]domain.SMSMessage](c.Request().Context(), ws.Cache, logKey)
	if err != nil {
		return err
	}
	d.Log = messages

	if d.Templates, err = s.store.List(u.ID, localstore.KeyTemplates); err != nil {
		return err
	}
	if d.History, err = s.store.List(u.ID, localstore.KeyHistory); err != nil {
		return err
	}
	return s.render(c, ws, u, http.StatusOK, "sms.html", "Text messages", d, 0)
}

// sendSMS queues the message for the recipients the filter selects now, and
// records the send in the user's local history.
func (s *Server) sendSMS(c echo.Context, ws *Workspace, u *domain.SessionUser) error {
	d := smsData{Filter: recipientFilter(c.FormValue)}
	if err := s.selectRecipients(c, ws, &d); err != nil {
		return err
	}
	message := strings.TrimSpace(c.FormValue("message"))
	switch {
	case len(d.Recipients) == 0:
		ws.Flash("No students with a phone number match this selection.")
		return back(c, "/sms")
	case message == "":
		ws.Flash("Write a message first.")
		return back(c, "/sms")
	}

	body := map[string]any{"recipients": d.Recipients, "message": message}
	raw, err := ws.Cache.Mutate(c.Request().Context(), http.MethodPost, smsKey, body)
	if err != nil {
		if cache.StatusOf(err) == http.StatusUnauthorized {
			return err
		}
		ws.Flash(session.Message(err))
		return back(c, "/sms")
	}
	var accepted struct {
		Accepted int    `json:"accepted"`
		BatchID  string `json:"batchId"`
	}
	if err := json.Unmarshal(raw, &accepted); err != nil {
		return fmt.Errorf("decode sms response: %w", err)
	}

	if _, err := s.store.Add(u.ID, localstore.KeyHistory, localstore.Entry{
		Title:      accepted.BatchID,
		Body:       message,
		Recipients: accepted.Accepted,
	}); err != nil {
		s.log.Warn().Err(err).Str("user_id", u.ID).Msg("failed to record sms history")
	}
	ws.Flash(fmt.Sprintf("%d messages queued.", accepted.Accepted))
	return back(c, "/sms")
}

func (s *Server) saveTemplate(c echo.Context, ws *Workspace, u *domain.SessionUser) error {
	title := strings.TrimSpace(c.FormValue("title"))
	body := strings.TrimSpace(c.FormValue("body"))
	if title == "" || body == "" {
		ws.Flash("A template needs a title and a message.")
		return back(c, "/sms")
	}
	if _, err := s.store.Add(u.ID, localstore.KeyTemplates, localstore.Entry{Title: title, Body: body}); err != nil {
		return err
	}
	return back(c, "/sms")
}

func (s *Server) updateTemplate(c echo.Context, ws *Workspace, u *domain.SessionUser) error {
	title := strings.TrimSpace(c.FormValue("title"))
	body := strings.TrimSpace(c.FormValue("body"))
	if title == "" || body == "" {
		ws.Flash("A template needs a title and a message.")
		return back(c, "/sms")
	}
	_, err := s.store.Update(u.ID, localstore.KeyTemplates, localstore.Entry{ID: c.Param("id"), Title: title, Body: body})
	switch {
	case errors.Is(err, localstore.ErrNotFound):
		ws.Flash("That template no longer exists.")
	case err != nil:
		return err
	}
	return back(c, "/sms")
}

func (s *Server) deleteTemplate(c echo.Context, ws *Workspace, u *domain.SessionUser) error {
	if err := s.store.Delete(u.ID, localstore.KeyTemplates, c.Param("id")); err != nil {
		ws.Flash(err.Error())
	}
	return back(c, "/sms")
}
