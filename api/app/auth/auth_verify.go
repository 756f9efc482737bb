package auth

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/lcampe/guardian/user"
	"go.uber.org/zap"
)

func (a *AuthRessource) verifyEmail(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		a.respond(w, r, createError(errInvalidRequest, http.StatusBadRequest, ""))
		return
	}
	email, err := a.users.ConfirmUser(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrEntityDoesNotExist):
			a.respond(
				w,
				r,
				createError(errUnknownToken, http.StatusBadRequest, "no such verification token"),
			)
		case errors.Is(err, user.ErrTokenUsed):
			a.respond(
				w,
				r,
				createError(errTokenGone, http.StatusGone, "verification link already used"),
			)
		case errors.Is(err, user.ErrTokenExpired):
			a.respond(
				w,
				r,
				createError(errUnknownToken, http.StatusBadRequest, "verification link expired"),
			)
		default:
			a.logger.Error("could not confirm user", zap.Error(err))
			a.respond(w, r, createError(errServerError, http.StatusInternalServerError, ""))
		}
		return
	}
	a.respond(w, r, &confirmedResponse{Email: email})
}

func (a *AuthRessource) resendVerification(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		a.respond(w, r, createError(errInvalidRequest, http.StatusBadRequest, ""))
		return
	}
	if err := a.validate.Struct(&req); err != nil {
		a.respond(w, r, createError(errInvalidRequest, http.StatusBadRequest, "email required"))
		return
	}
	err := a.users.ResendVerification(r.Context(), req.Email, clientIP(r))
	if err != nil {
		if errors.Is(err, user.ErrRateLimited) {
			a.respond(
				w,
				r,
				createError(
					errRateLimited,
					http.StatusTooManyRequests,
					"too many verification mails requested",
				),
			)
			return
		}
		a.logger.Error("could not resend verification", zap.Error(err))
		a.respond(w, r, createError(errServerError, http.StatusInternalServerError, ""))
		return
	}
	// same answer for unknown and already confirmed addresses
	a.respond(w, r, statusOK())
}
