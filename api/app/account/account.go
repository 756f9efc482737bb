// Package account exposes the endpoints of the signed in user.
package account

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/lcampe/guardian/tokens"
	"github.com/lcampe/guardian/user"
	"go.uber.org/zap"
)

type AccountRessource struct {
	logger    *zap.Logger
	users     *user.Service
	rotator   *tokens.TokenRotator
	verifier  *tokens.TokenVerifier
	validate  *validator.Validate
	tokenAuth *jwtauth.JWTAuth
}

func NewAccountRessource(
	logger *zap.Logger,
	users *user.Service,
	rotator *tokens.TokenRotator,
	verifier *tokens.TokenVerifier,
	validate *validator.Validate,
	tokenAuth *jwtauth.JWTAuth,
) *AccountRessource {
	return &AccountRessource{
		logger:    logger,
		users:     users,
		rotator:   rotator,
		verifier:  verifier,
		validate:  validate,
		tokenAuth: tokenAuth,
	}
}

func (a *AccountRessource) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(jwtauth.Authenticator(a.tokenAuth))

	r.Get("/me", a.me)
	r.Post("/me/change-password", a.changePassword)
	r.Delete("/me", a.deleteAccount)

	return r
}

func (a *AccountRessource) respond(w http.ResponseWriter, r *http.Request, v render.Renderer) {
	if err := render.Render(w, r, v); err != nil {
		a.logger.Error("unable to render response", zap.Error(err))
	}
}

// claims revalidates the presented access token, the jwtauth middleware
// does not know about the revocation blacklist
func (a *AccountRessource) claims(r *http.Request) (*tokens.SessionClaims, error) {
	raw := jwtauth.TokenFromHeader(r)
	return a.verifier.ValidateAccessToken(r.Context(), raw)
}

func (a *AccountRessource) me(w http.ResponseWriter, r *http.Request) {
	claims, err := a.claims(r)
	if err != nil {
		a.respond(w, r, createError(errUnauthorized, http.StatusUnauthorized, ""))
		return
	}
	a.respond(w, r, &profileResponse{
		UserID: claims.UserID().String(),
		Email:  claims.Email(),
	})
}

func (a *AccountRessource) changePassword(w http.ResponseWriter, r *http.Request) {
	claims, err := a.claims(r)
	if err != nil {
		a.respond(w, r, createError(errUnauthorized, http.StatusUnauthorized, ""))
		return
	}
	var req changePasswordRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		a.respond(w, r, createError(errInvalidRequest, http.StatusBadRequest, ""))
		return
	}
	if err := a.validate.Struct(&req); err != nil {
		a.respond(
			w,
			r,
			createError(
				errInvalidRequest,
				http.StatusBadRequest,
				"current_password and new_password required",
			),
		)
		return
	}
	err = a.users.ChangePassword(r.Context(), claims.UserID(), req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrInvalidCredentials):
			// the caller is authenticated, a wrong current password is
			// a bad request, not a failed authentication
			a.respond(
				w,
				r,
				createError(errInvalidCredentials, http.StatusBadRequest, ""),
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
			a.logger.Error("could not change password", zap.Error(err))
			a.respond(w, r, createError(errServerError, http.StatusInternalServerError, ""))
		}
		return
	}
	// every session was revoked, the client has to sign in again
	a.respond(w, r, statusOK())
}

func (a *AccountRessource) deleteAccount(w http.ResponseWriter, r *http.Request) {
	claims, err := a.claims(r)
	if err != nil {
		a.respond(w, r, createError(errUnauthorized, http.StatusUnauthorized, ""))
		return
	}
	if err := a.users.DeleteUser(r.Context(), claims.UserID()); err != nil {
		if errors.Is(err, user.ErrEntityDoesNotExist) {
			a.respond(w, r, createError(errUnauthorized, http.StatusUnauthorized, ""))
			return
		}
		a.logger.Error("could not delete account", zap.Error(err))
		a.respond(w, r, createError(errServerError, http.StatusInternalServerError, ""))
		return
	}
	render.NoContent(w, r)
}
