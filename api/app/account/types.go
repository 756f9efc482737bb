package account

import (
	"net/http"

	"github.com/go-chi/render"
)

type profileResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

func (*profileResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,minpwd"`
}

type statusResponse struct {
	Status string `json:"status"`
}

func (*statusResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}

func statusOK() *statusResponse {
	return &statusResponse{Status: "ok"}
}

type errorCode string

const errInvalidRequest errorCode = "invalid_request"
const errInvalidCredentials errorCode = "invalid_credentials"
const errWeakPassword errorCode = "weak_password"
const errUnauthorized errorCode = "unauthorized"
const errServerError errorCode = "server_error"

type errorResponse struct {
	Error            errorCode `json:"error"`
	ErrorDescription string    `json:"error_description,omitempty"`
	StatusCode       int       `json:"-"`
}

func (e *errorResponse) Render(_ http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

func createError(code errorCode, status int, description string) *errorResponse {
	return &errorResponse{
		Error:            code,
		ErrorDescription: description,
		StatusCode:       status,
	}
}
