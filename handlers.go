package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/example/authapi/internal/accounts"
	"github.com/example/authapi/internal/auth"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// decode reads a JSON body into v and validates it. It writes the error
// response itself and reports whether the handler may continue.
func (a *App) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return false
	}
	if err := a.validate.Struct(v); err != nil {
		writeErrorDetails(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request validation failed", describeValidation(err))
		return false
	}
	return true
}

func (a *App) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if !a.decode(w, r, &in) {
		return
	}
	out, err := a.Accounts.Register(r.Context(), accounts.Registration{
		Email:    in.Email,
		Username: in.Username,
		FullName: in.FullName,
		Password: in.Password,
	})
	if err != nil {
		a.writeAPIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (a *App) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if !a.decode(w, r, &in) {
		return
	}
	token, err := a.Accounts.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		a.writeAPIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, token)
}

func (a *App) HandleGetMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Accounts.GetSelf(auth.AccountFromContext(r.Context())))
}

func (a *App) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var in updateMeRequest
	if !a.decode(w, r, &in) {
		return
	}
	out, err := a.Accounts.UpdateSelf(r.Context(), auth.AccountFromContext(r.Context()), accounts.ProfileUpdate{
		Email:    in.Email,
		Username: in.Username,
		FullName: in.FullName,
		IsActive: in.IsActive,
	})
	if err != nil {
		a.writeAPIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *App) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	var in changePasswordRequest
	if !a.decode(w, r, &in) {
		return
	}
	err := a.Accounts.ChangePassword(r.Context(), auth.AccountFromContext(r.Context()), in.CurrentPassword, in.NewPassword)
	if err != nil {
		a.writeAPIError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Password changed successfully")
}

func (a *App) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if id, ok := auth.IdentityFromContext(r.Context()); ok {
		a.Auditor.Logout(r.Context(), id)
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Logged out successfully",
		"detail":  "Discard the access token on the client",
	})
}

// HandleSession reports the caller identity without requiring one.
func (a *App) HandleSession(w http.ResponseWriter, r *http.Request) {
	account := a.Gate.Identify(r.Context(), r.Header.Get("Authorization"))
	if account == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"authenticated": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"authenticated": true,
		"user":          account.Public(),
	})
}

func (a *App) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	skip, ok := queryInt(w, r, "skip", 0)
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "limit", defaultListLimit)
	if !ok {
		return
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	out, err := a.Accounts.List(r.Context(), skip, limit)
	if err != nil {
		a.writeAPIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *App) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	out, err := a.Accounts.Get(r.Context(), id)
	if err != nil {
		a.writeAPIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *App) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := a.Accounts.Delete(r.Context(), id); err != nil {
		a.writeAPIError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "User deleted successfully")
}

// HandleSetActive returns a handler that activates or deactivates the user in the path.
func (a *App) HandleSetActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		out, err := a.Accounts.SetActive(r.Context(), id, active)
		if err != nil {
			a.writeAPIError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (a *App) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) HandleReady(w http.ResponseWriter, r *http.Request) {
	if err := a.Store.Ping(r.Context()); err != nil {
		a.Log.WarnContext(r.Context(), "readiness check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]bool{"ready": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid user id")
		return 0, false
	}
	return id, true
}

func queryInt(w http.ResponseWriter, r *http.Request, key string, def int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeErrorDetails(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request validation failed", key+": must be a non-negative integer")
		return 0, false
	}
	return n, true
}
