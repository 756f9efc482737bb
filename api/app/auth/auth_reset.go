package auth

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/lcampe/guardian/user"
	"go.uber.org/zap"
)

// forgotPassword always answers 200, the mail only goes out when the
// address is known
func (a *AuthRessource) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		a.respond(w, r, createError(errInvalidRequest, http.StatusBadRequest, ""))
		return
	}
	if err := a.validate.Struct(&req); err != nil {
		a.respond(w, r, createError(errInvalidRequest, http.StatusBadRequest, "email required"))
		return
	}
	if err := a.users.TriggerPasswordReset(r.Context(), req.Email); err != nil {
		a.logger.Error("could not trigger password reset", zap.Error(err))
		a.respond(w, r, createError(errServerError, http.StatusInternalServerError, ""))
		return
	}
	a.respond(w, r, statusOK())
}

func (a *AuthRessource) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		a.respond(w, r, createError(errInvalidRequest, http.StatusBadRequest, ""))
		return
	}
	if err := a.validate.Struct(&req); err != nil {
		a.respond(
			w,
			r,
			createError(errInvalidRequest, http.StatusBadRequest, "token and password required"),
		)
		return
	}
	err := a.users.ResetPassword(r.Context(), req.Token, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrPasswordGuidelines):
			a.respond(
				w,
				r,
				createError(
					errWeakPassword,
					http.StatusBadRequest,
					"password does not meet the policy",
				),
			)
		case errors.Is(err, user.ErrEntityDoesNotExist):
			a.respond(
				w,
				r,
				createError(errUnknownToken, http.StatusBadRequest, "no such reset token"),
			)
		case errors.Is(err, user.ErrTokenUsed):
			a.respond(w, r, createError(errTokenGone, http.StatusGone, "reset link already used"))
		case errors.Is(err, user.ErrTokenExpired):
			a.respond(
				w,
				r,
				createError(errUnknownToken, http.StatusBadRequest, "reset link expired"),
			)
		default:
			a.logger.Error("could not reset password", zap.Error(err))
			a.respond(w, r, createError(errServerError, http.StatusInternalServerError, ""))
		}
		return
	}
	a.respond(w, r, statusOK())
}
