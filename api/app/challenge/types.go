package challenge

import (
	"net/http"

	"github.com/go-chi/render"
)

type challengeResponse struct {
	CaptchaID string `json:"captcha_id"`
	Challenge string `json:"challenge"`
	ExpiresIn int    `json:"expires_in"`
}

func (*challengeResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}

type verifyRequest struct {
	CaptchaID string `json:"captcha_id"`
	Answer    string `json:"answer"`
}

type verifyResponse struct {
	Valid bool `json:"valid"`
}

func (*verifyResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}

type errorCode string

const errInvalidRequest errorCode = "invalid_request"
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
