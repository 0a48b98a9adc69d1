package scribeline

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"

	"github.com/eringen/scribeline/bridge"
	"github.com/eringen/scribeline/usage"
)

const sessionName = "scribeline_session"

// Session cookie keys.
const (
	keyGuestID     = "guest_id"
	keyLoggedIn    = "logged_in"
	keyEmail       = "email"
	keyDisplayName = "display_name"
	keyPhotoURL    = "photo_url"
)

// maxSessionBody caps POST /api/session payloads.
const maxSessionBody = 16 << 10

func getSession(c echo.Context) (*sessions.Session, error) {
	return session.Get(sessionName, c)
}

// CurrentSession returns the login state last reported by the bridge.
func CurrentSession(c echo.Context) bridge.Session {
	sess, err := getSession(c)
	if err != nil {
		return bridge.Session{}
	}
	s := bridge.Session{}
	s.IsLoggedIn, _ = sess.Values[keyLoggedIn].(bool)
	s.Email, _ = sess.Values[keyEmail].(string)
	s.DisplayName, _ = sess.Values[keyDisplayName].(string)
	s.PhotoURL, _ = sess.Values[keyPhotoURL].(string)
	return s
}

func saveSession(c echo.Context, s bridge.Session) error {
	sess, err := getSession(c)
	if err != nil {
		return err
	}
	sess.Values[keyLoggedIn] = s.IsLoggedIn
	sess.Values[keyEmail] = s.Email
	sess.Values[keyDisplayName] = s.DisplayName
	sess.Values[keyPhotoURL] = s.PhotoURL
	return sess.Save(c.Request(), c.Response())
}

// guestID returns the visitor's anonymous id, assigning one on first use.
func guestID(c echo.Context) (string, error) {
	sess, err := getSession(c)
	if err != nil {
		return "", err
	}
	if id, ok := sess.Values[keyGuestID].(string); ok && id != "" {
		return id, nil
	}
	id := uuid.NewString()
	sess.Values[keyGuestID] = id
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return "", err
	}
	return id, nil
}

type sessionUpdate struct {
	Origin  string          `json:"origin"`
	Message json.RawMessage `json:"message"`
}

func (a *App) handleGetSession(c echo.Context) error {
	return c.JSON(http.StatusOK, CurrentSession(c))
}

// handlePostSession stores a status message the browser received from the
// bridge iframe. The message goes through the same guard the browser applies.
//
// The origin is copied by the page script from the postMessage event, so the
// server cannot verify it. Any client can claim to be logged in; the stored
// state only changes what the UI shows and lifts the guest quota. It is never
// used to authorize access to account data.
func (a *App) handlePostSession(c echo.Context) error {
	var req sessionUpdate
	if err := json.NewDecoder(http.MaxBytesReader(c.Response(), c.Request().Body, maxSessionBody)).Decode(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid session message")
	}
	s, ok := bridge.ParseStatus(a.Config.SessionOrigin, req.Origin, req.Message)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid session message")
	}
	if err := saveSession(c, s); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s)
}

func (a *App) handleUsage(c echo.Context) error {
	id, err := guestID(c)
	if err != nil {
		return err
	}
	summary, err := a.Usage.Summary(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

// viewerRemaining returns the guest's remaining uses, or nil for logged-in
// visitors and on storage errors.
func (a *App) viewerRemaining(c echo.Context, s bridge.Session) map[string]int {
	if s.IsLoggedIn {
		return nil
	}
	id, err := guestID(c)
	if err != nil {
		return nil
	}
	summary, err := a.Usage.Summary(c.Request().Context(), id)
	if err != nil {
		c.Logger().Errorf("usage summary: %v", err)
		return nil
	}
	return summary.Remaining
}

// sessionGate limits guests to the free plan and lets logged-in visitors
// through.
type sessionGate struct {
	tracker *usage.Tracker
}

func (g *sessionGate) Reserve(c echo.Context, feature string) (bool, error) {
	if CurrentSession(c).IsLoggedIn {
		return true, nil
	}
	id, err := guestID(c)
	if err != nil {
		return false, err
	}
	return g.tracker.Reserve(c.Request().Context(), id, feature)
}

// Release returns the use even when the client has gone away.
func (g *sessionGate) Release(c echo.Context, feature string) error {
	if CurrentSession(c).IsLoggedIn {
		return nil
	}
	id, err := guestID(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), 5*time.Second)
	defer cancel()
	return g.tracker.Release(ctx, id, feature)
}
