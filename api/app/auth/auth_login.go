package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/lcampe/guardian/user"
	"go.uber.org/zap"
)

func (a *AuthRessource) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		a.respond(w, r, createError(errInvalidRequest, http.StatusBadRequest, ""))
		return
	}
	if err := a.validate.Struct(&req); err != nil {
		a.respond(
			w,
			r,
			createError(errInvalidRequest, http.StatusBadRequest, "email and password required"),
		)
		return
	}
	pair, err := a.signIn.SignIn(r.Context(), &user.LoginRequest{
		Email:         req.Email,
		Password:      req.Password,
		CaptchaID:     req.CaptchaID,
		CaptchaAnswer: req.CaptchaAnswer,
		IP:            clientIP(r),
		UserAgent:     r.UserAgent(),
	})
	if err != nil {
		a.respondLoginError(w, r, err)
		return
	}
	a.respond(w, r, &tokenResponse{pair})
}

// respondLoginError maps the signin outcomes, wrong email and wrong
// password are deliberately the same answer
func (a *AuthRessource) respondLoginError(w http.ResponseWriter, r *http.Request, err error) {
	var locked *user.LockedError
	switch {
	case errors.As(err, &locked):
		retry := int(time.Until(locked.Until).Seconds())
		if retry < 0 {
			retry = 0
		}
		a.respond(
			w,
			r,
			createRetryError(errAccountLocked, http.StatusLocked, "account is locked", retry),
		)
	case errors.Is(err, user.ErrIPFrozen):
		a.respond(
			w,
			r,
			createError(errOriginFrozen, http.StatusForbidden, "too many failed attempts"),
		)
	case errors.Is(err, user.ErrCaptchaRequired):
		a.respond(
			w,
			r,
			createError(
				errCaptchaRequired,
				http.StatusTooManyRequests,
				"solve a captcha and retry",
			),
		)
	case errors.Is(err, user.ErrCaptchaFailed):
		a.respond(w, r, createError(errCaptchaFailed, http.StatusUnauthorized, ""))
	case errors.Is(err, user.ErrNotConfirmed):
		a.respond(
			w,
			r,
			createError(errEmailNotVerified, http.StatusUnauthorized, "verify your email first"),
		)
	case errors.Is(err, user.ErrInvalidCredentials):
		a.respond(w, r, createError(errInvalidCredentials, http.StatusUnauthorized, ""))
	default:
		a.logger.Error("login failed unexpectedly", zap.Error(err))
		a.respond(w, r, createError(errServerError, http.StatusInternalServerError, ""))
	}
}
