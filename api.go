/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Seednode/waterrock/console"
	"github.com/Seednode/waterrock/game"
	"github.com/Seednode/waterrock/store"
	"github.com/julienschmidt/httprouter"
)

const maxBodySize = 64 << 10

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	UserID   string `json:"userId"`
	Role     string `json:"role"`
	Username string `json:"username"`
	Admin    bool   `json:"admin"`
}

type commandRequest struct {
	Command string `json:"command"`
}

type commandResponse struct {
	Lines []console.Line `json:"lines"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func newLoginResponse(u game.User) loginResponse {
	return loginResponse{
		UserID:   u.ID,
		Role:     u.Role,
		Username: u.Username,
		Admin:    u.IsAdmin(),
	}
}

func writeJSON(cfg *Config, w http.ResponseWriter, r *http.Request, errs chan<- error, status int, label string, v any, startTime time.Time) {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	securityHeaders(cfg, w)

	writeBody(cfg, w, r, errs, status, label, append(data, '\n'), startTime)
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(v)
}

// statusFor maps game and store errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, game.ErrAuthDenied):
		return http.StatusUnauthorized
	case errors.Is(err, game.ErrLocked):
		return http.StatusLocked
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func serveLogin(cfg *Config, g *game.Game, logins *Logins, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		var req loginRequest
		if err := readJSON(w, r, &req); err != nil {
			writeJSON(cfg, w, r, errs, http.StatusBadRequest, "Login error", errorResponse{"Malformed request"}, startTime)

			return
		}

		user, err := g.Users.Authenticate(r.Context(), req.Password)
		switch {
		case errors.Is(err, game.ErrAuthDenied), errors.Is(err, game.ErrValidation):
			logf(cfg, "SERVE: Failed login from %s", realIP(r))

			writeJSON(cfg, w, r, errs, http.StatusUnauthorized, "Login error", errorResponse{"Invalid password"}, startTime)

			return
		case err != nil:
			errorf("login: %v", err)

			writeJSON(cfg, w, r, errs, statusFor(err), "Login error", errorResponse{"Login is unavailable. Please try again."}, startTime)

			return
		}

		setSessionCookie(cfg, w, logins.create(user))

		writeJSON(cfg, w, r, errs, http.StatusOK, "Login for "+user.ID, newLoginResponse(user), startTime)
	}
}

func serveLogout(cfg *Config, logins *Logins, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		if _, token, ok := logins.fromRequest(r); ok {
			logins.remove(token)
		}
		clearSessionCookie(cfg, w)

		writeJSON(cfg, w, r, errs, http.StatusOK, "Logout", struct{}{}, startTime)
	}
}

// serveSession reports who the session cookie belongs to, so a reloaded
// client can skip the login screen.
func serveSession(cfg *Config, logins *Logins, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		user, _, ok := logins.fromRequest(r)
		if !ok {
			writeJSON(cfg, w, r, errs, http.StatusUnauthorized, "Session", errorResponse{"Not logged in"}, startTime)

			return
		}

		writeJSON(cfg, w, r, errs, http.StatusOK, "Session for "+user.ID, newLoginResponse(user), startTime)
	}
}

// requireAdmin wraps h so only admin sessions reach it.
func requireAdmin(cfg *Config, logins *Logins, errs chan<- error, h func(http.ResponseWriter, *http.Request, game.User)) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		user, _, ok := logins.fromRequest(r)
		switch {
		case !ok:
			writeJSON(cfg, w, r, errs, http.StatusUnauthorized, "Admin error", errorResponse{"Not logged in"}, time.Now())
		case !user.IsAdmin():
			logf(cfg, "ADMIN: Refused %s from %s", user.ID, realIP(r))

			writeJSON(cfg, w, r, errs, http.StatusForbidden, "Admin error", errorResponse{"Admin access required"}, time.Now())
		default:
			h(w, r, user)
		}
	}
}

func serveAdminCommand(cfg *Config, con *console.Console, logins *Logins, errs chan<- error) httprouter.Handle {
	return requireAdmin(cfg, logins, errs, func(w http.ResponseWriter, r *http.Request, user game.User) {
		startTime := time.Now()

		var req commandRequest
		if err := readJSON(w, r, &req); err != nil {
			writeJSON(cfg, w, r, errs, http.StatusBadRequest, "Admin error", errorResponse{"Malformed request"}, startTime)

			return
		}

		lines := con.Run(r.Context(), req.Command)

		logf(cfg, "ADMIN: %s ran %q", user.ID, req.Command)

		writeJSON(cfg, w, r, errs, http.StatusOK, "Admin command", commandResponse{Lines: lines}, startTime)
	})
}

func serveAdminState(cfg *Config, g *game.Game, logins *Logins, errs chan<- error) httprouter.Handle {
	return requireAdmin(cfg, logins, errs, func(w http.ResponseWriter, r *http.Request, user game.User) {
		startTime := time.Now()

		if r.Method == http.MethodPost {
			var patch store.Fields
			if err := readJSON(w, r, &patch); err != nil {
				writeJSON(cfg, w, r, errs, http.StatusBadRequest, "Admin error", errorResponse{"Malformed request"}, startTime)

				return
			}

			if err := g.Gates.Patch(r.Context(), patch); err != nil {
				writeJSON(cfg, w, r, errs, statusFor(err), "Admin error", errorResponse{err.Error()}, startTime)

				return
			}

			logf(cfg, "ADMIN: %s patched admin state with %v", user.ID, patch)
		}

		fields, err := g.Gates.Fields(r.Context())
		if err != nil {
			writeJSON(cfg, w, r, errs, statusFor(err), "Admin error", errorResponse{err.Error()}, startTime)

			return
		}
		if fields == nil {
			fields = store.Fields{}
		}

		writeJSON(cfg, w, r, errs, http.StatusOK, "Admin state", fields, startTime)
	})
}
