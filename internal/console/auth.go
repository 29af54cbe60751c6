package console

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mokjang/youth-admin/internal/client/cache"
	"github.com/mokjang/youth-admin/internal/client/gate"
	"github.com/mokjang/youth-admin/internal/client/session"
)

type authForm struct {
	Next  string
	Email string
	Name  string
	Phone string
	Error string
}

func (s *Server) loginPage(c echo.Context) error {
	ws := workspaceOf(c)
	if st := s.currentSession(c, ws); st.User != nil {
		return c.Redirect(http.StatusSeeOther, localPath(c.QueryParam("next"), "/"))
	}
	return s.render(c, ws, nil, http.StatusOK, "login.html", "Sign in", authForm{Next: c.QueryParam("next")}, 0)
}

func (s *Server) login(c echo.Context) error {
	ws := workspaceOf(c)
	form := authForm{Next: c.FormValue("next"), Email: c.FormValue("email")}

	u, err := ws.Session.Login(c.Request().Context(), form.Email, c.FormValue("password"))
	if err != nil {
		form.Error = session.Message(err)
		return s.render(c, ws, nil, failureStatus(err), "login.html", "Sign in", form, 0)
	}
	ws.Gate(u)
	s.log.Info().Str("user_id", u.ID).Str("role", u.Role.String()).Msg("console login")
	return back(c, "/")
}

func (s *Server) registerPage(c echo.Context) error {
	ws := workspaceOf(c)
	return s.render(c, ws, nil, http.StatusOK, "register.html", "Create an account", authForm{}, 0)
}

func (s *Server) register(c echo.Context) error {
	ws := workspaceOf(c)
	form := authForm{Email: c.FormValue("email"), Name: c.FormValue("name"), Phone: c.FormValue("phone")}

	_, err := ws.Session.Register(c.Request().Context(), session.RegisterInput{
		Email:    form.Email,
		Password: c.FormValue("password"),
		Name:     form.Name,
		Phone:    form.Phone,
	})
	if err != nil {
		form.Error = session.Message(err)
		return s.render(c, ws, nil, failureStatus(err), "register.html", "Create an account", form, 0)
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) logout(c echo.Context) error {
	ws := workspaceOf(c)
	if err := ws.Session.Logout(c.Request().Context()); err != nil {
		ws.Flash(session.Message(err))
		return back(c, "/")
	}
	ws.unmountGate()
	return c.Redirect(http.StatusSeeOther, "/login")
}

// refreshSession refetches the user, so an approved teacher leaves the
// pending view without signing in again.
func (s *Server) refreshSession(c echo.Context) error {
	ws := workspaceOf(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), s.cfg.LoadWait)
	defer cancel()
	if st := ws.Session.Refresh(ctx); st.Err != nil {
		ws.Flash(session.Message(st.Err))
	}
	return back(c, "/")
}

func (s *Server) submitPassword(c echo.Context) error {
	ws := workspaceOf(c)
	u := ws.Session.Snapshot().User
	if u == nil {
		return c.Redirect(http.StatusSeeOther, "/login")
	}

	err := ws.Gate(u).Submit(c.Request().Context(), c.FormValue("newPassword"), c.FormValue("confirm"))
	var fe gate.FieldErrors
	switch {
	case err == nil:
		s.log.Info().Str("user_id", u.ID).Msg("forced password change completed")
	case errors.As(err, &fe):
		ws.setGateErrors(fe)
	case errors.Is(err, gate.ErrClosed):
		// already changed, e.g. a second tab
	case errors.Is(err, gate.ErrPending):
		ws.Flash("A password change is already in progress.")
	default:
		ws.Flash(session.Message(err))
	}
	return back(c, "/")
}

func (s *Server) dismissPassword(c echo.Context) error {
	ws := workspaceOf(c)
	if g := ws.Gate(ws.Session.Snapshot().User); g != nil {
		if err := g.Dismiss(c.FormValue("reason")); err != nil {
			s.log.Debug().Err(err).Msg("password gate dismissal refused")
		}
	}
	return back(c, "/")
}

func (s *Server) currentSession(c echo.Context, ws *Workspace) session.State {
	ctx, cancel := context.WithTimeout(c.Request().Context(), s.cfg.LoadWait)
	defer cancel()
	return ws.Session.Current(ctx)
}

// failureStatus is the status to re-render a form with after err.
func failureStatus(err error) int {
	if status := cache.StatusOf(err); status >= 400 && status < 500 {
		return status
	}
	return http.StatusBadGateway
}
