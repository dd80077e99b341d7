package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/placxborcx/Onboarding-MainPage/internal/api/problem"
	"github.com/placxborcx/Onboarding-MainPage/internal/signup"
)

// SignupService registers landing page signups.
type SignupService interface {
	Register(ctx context.Context, in signup.Input) (*signup.Signup, error)
}

type SignupHandler struct {
	Service SignupService
	Env     string
}

func NewSignupHandler(service SignupService, env string) *SignupHandler {
	return &SignupHandler{Service: service, Env: env}
}

type signupResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      string `json:"id"`
}

// Create handles POST /api/signup and /api/v1/signup.
func (h *SignupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in signup.Input
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&in); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			problem.Write(w, r, http.StatusRequestEntityTooLarge, problem.TypePayloadTooLarge, "Payload too large", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request body", err, h.Env,
			problem.WithDetail("name and email required"))
		return
	}

	created, err := h.Service.Register(r.Context(), in)
	switch {
	case err == nil:
	case errors.Is(err, signup.ErrInvalid):
		detail := strings.TrimPrefix(err.Error(), signup.ErrInvalid.Error()+": ")
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid signup", err, h.Env,
			problem.WithDetail(detail))
		return
	case errors.Is(err, signup.ErrDuplicate):
		problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "Already signed up", err, h.Env,
			problem.WithDetail("this email has already signed up"))
		return
	default:
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	writeJSON(w, http.StatusCreated, signupResponse{Success: true, Message: "Signed up", ID: created.ID})
}
