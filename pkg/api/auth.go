package api

import (
	"net/http"

	"fleetworks/depot/pkg/api/httpx"
	"fleetworks/depot/pkg/auth"
	"fleetworks/depot/pkg/identity"

	"github.com/go-chi/chi/v5"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decode(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	res, err := h.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

type meResponse struct {
	identity.Actor
	User *auth.User `json:"user,omitempty"`
}

func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	actor := identity.ActorOrSystem(r.Context())
	resp := meResponse{Actor: actor}
	if actor.Type == identity.ActorUser {
		u, err := h.Auth.GetUser(r.Context(), actor.ID)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		resp.User = u
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *handlers) listUsers(w http.ResponseWriter, r *http.Request) {
	page, err := h.page(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	users, err := h.Auth.ListUsers(r.Context(), page)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list(users, page))
}

func (h *handlers) createUser(w http.ResponseWriter, r *http.Request) {
	var in auth.CreateUserInput
	if err := h.decode(w, r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	u, err := h.Auth.CreateUser(r.Context(), in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, u)
}

func (h *handlers) getUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.Auth.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u)
}

func (h *handlers) updateUser(w http.ResponseWriter, r *http.Request) {
	var in auth.UpdateUserInput
	if err := h.decode(w, r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	u, err := h.Auth.UpdateUser(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u)
}
