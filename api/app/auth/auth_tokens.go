package auth

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	"github.com/lcampe/guardian/tokens"
	"go.uber.org/zap"
)

func (a *AuthRessource) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		a.respond(w, r, createError(errInvalidRequest, http.StatusBadRequest, ""))
		return
	}
	if err := a.validate.Struct(&req); err != nil {
		a.respond(
			w,
			r,
			createError(errInvalidRequest, http.StatusBadRequest, "refresh_token required"),
		)
		return
	}
	claims, err := a.verifier.ParseRefreshToken(req.RefreshToken)
	if err != nil {
		a.respond(w, r, createError(errInvalidGrant, http.StatusUnauthorized, ""))
		return
	}
	email, ok := a.users.EmailByID(r.Context(), claims.UserID())
	if !ok {
		a.respond(w, r, createError(errInvalidGrant, http.StatusUnauthorized, ""))
		return
	}
	pair, err := a.rotator.Rotate(r.Context(), req.RefreshToken, deviceInfo(r), email)
	if err != nil {
		switch {
		case errors.Is(err, tokens.ErrTokenRevoked),
			errors.Is(err, tokens.ErrTokenExpired),
			errors.Is(err, tokens.ErrTokenNotFound),
			errors.Is(err, tokens.ErrInvalidToken),
			errors.Is(err, tokens.ErrWrongTokenType):
			a.respond(
				w,
				r,
				createError(errInvalidGrant, http.StatusUnauthorized, "refresh token rejected"),
			)
		default:
			a.logger.Error("could not rotate refresh token", zap.Error(err))
			a.respond(w, r, createError(errServerError, http.StatusInternalServerError, ""))
		}
		return
	}
	a.respond(w, r, &tokenResponse{pair})
}

// logout blacklists the presented access token and, when supplied,
// revokes the refresh token as well
func (a *AuthRessource) logout(w http.ResponseWriter, r *http.Request) {
	raw := jwtauth.TokenFromHeader(r)
	claims, err := a.verifier.ValidateAccessToken(r.Context(), raw)
	if err != nil {
		a.respond(w, r, createError(errInvalidGrant, http.StatusUnauthorized, ""))
		return
	}
	// the body is optional, but a present and broken one is rejected
	// before any token is touched
	var req logoutRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
		a.respond(w, r, createError(errInvalidRequest, http.StatusBadRequest, ""))
		return
	}
	if err := a.rotator.BlacklistAccessToken(r.Context(), claims); err != nil {
		a.logger.Error("could not blacklist access token", zap.Error(err))
		a.respond(w, r, createError(errServerError, http.StatusInternalServerError, ""))
		return
	}
	if req.RefreshToken != "" {
		if err := a.rotator.RevokeRefreshToken(r.Context(), req.RefreshToken); err != nil {
			// the access token is gone already, a dud refresh token is
			// not worth failing the logout over
			a.logger.Warn("could not revoke refresh token on logout", zap.Error(err))
		}
	}
	a.respond(w, r, statusOK())
}
