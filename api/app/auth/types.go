package auth

import (
	"net/http"
	"strconv"

	"github.com/go-chi/render"
	"github.com/lcampe/guardian/tokens"
)

type signupRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,minpwd"`
}

type signupResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

func (*signupResponse) Render(_ http.ResponseWriter, r *http.Request) error {
	render.Status(r, http.StatusCreated)
	return nil
}

type loginRequest struct {
	Email         string `json:"email"    validate:"required,email"`
	Password      string `json:"password" validate:"required"`
	CaptchaID     string `json:"captcha_id"`
	CaptchaAnswer string `json:"captcha_answer"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"    validate:"required"`
	Password string `json:"password" validate:"required,minpwd"`
}

type tokenResponse struct {
	*tokens.TokenPair
}

func (*tokenResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}

type confirmedResponse struct {
	Email string `json:"email"`
}

func (*confirmedResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
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

// the credentials or the supplied token did not check out, no further
// detail is given on purpose
const errInvalidCredentials errorCode = "invalid_credentials"

// the request body failed decoding or validation
const errInvalidRequest errorCode = "invalid_request"

// the account is locked out after too many failures
const errAccountLocked errorCode = "account_locked"

// the originating address is frozen
const errOriginFrozen errorCode = "origin_frozen"

// the account exists but the email address was never verified
const errEmailNotVerified errorCode = "email_not_verified"

// a captcha solution is required for this attempt
const errCaptchaRequired errorCode = "captcha_required"

// the supplied captcha solution was wrong
const errCaptchaFailed errorCode = "captcha_failed"

// too many verification mails were requested
const errRateLimited errorCode = "rate_limited"

// the one time token was already used or has expired
const errTokenGone errorCode = "token_gone"

// no such one time token
const errUnknownToken errorCode = "unknown_token"

// the password does not meet the configured policy
const errWeakPassword errorCode = "weak_password"

// the email address is already registered
const errEmailTaken errorCode = "email_taken"

// the refresh token is invalid, expired or revoked
const errInvalidGrant errorCode = "invalid_grant"

const errServerError errorCode = "server_error"

type errorResponse struct {
	Error            errorCode `json:"error"`
	ErrorDescription string    `json:"error_description,omitempty"`
	RetryAfter       int       `json:"retry_after,omitempty"`
	StatusCode       int       `json:"-"`
}

func (e *errorResponse) Render(w http.ResponseWriter, r *http.Request) error {
	if e.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(e.RetryAfter))
	}
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

func createRetryError(
	code errorCode,
	status int,
	description string,
	retryAfter int,
) *errorResponse {
	return &errorResponse{
		Error:            code,
		ErrorDescription: description,
		RetryAfter:       retryAfter,
		StatusCode:       status,
	}
}
