package auth

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/lcampe/guardian/user"
	"go.uber.org/zap"
)

func (a *AuthRessource) register(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
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
	id, err := a.users.RegisterUser(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrEntityAlreadyExists):
			a.respond(
				w,
				r,
				createError(errEmailTaken, http.StatusBadRequest, "email already registered"),
			)
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
		default:
			a.logger.Error("could not register user", zap.Error(err))
			a.respond(w, r, createError(errServerError, http.StatusInternalServerError, ""))
		}
		return
	}
	a.respond(w, r, &signupResponse{UserID: id.String(), Email: req.Email})
}
