package handler

import (
	"net/http"

	"github.com/MikhailRaia/codekeeper/internal/middleware"
	"github.com/MikhailRaia/codekeeper/internal/service"
)

type signupResponse struct {
	Status string     `json:"status"`
	Data   signupData `json:"data"`
}

type signupData struct {
	UserID string `json:"userId"`
}

type loginResponse struct {
	Status string `json:"status"`
	Token  string `json:"token"`
}

type profileResponse struct {
	Data profileData `json:"data"`
}

type profileData struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in service.SignupInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	u, err := h.users.Signup(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, signupResponse{
		Status: "success",
		Data:   signupData{UserID: u.ID},
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	token, err := h.users.Login(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.opts.TokenTTL.Seconds()),
	})

	writeJSON(w, http.StatusOK, loginResponse{Status: "success", Token: token})
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	u, err := h.users.Profile(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{Data: profileData{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
	}})
}
