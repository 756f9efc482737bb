// Package auth exposes the public authentication endpoints: signup,
// login, token refresh and the one time token flows.
package auth

import (
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/lcampe/guardian/tokens"
	"github.com/lcampe/guardian/user"
	"go.uber.org/zap"
)

type AuthRessource struct {
	logger    *zap.Logger
	signIn    *user.SigninService
	users     *user.Service
	rotator   *tokens.TokenRotator
	verifier  *tokens.TokenVerifier
	validate  *validator.Validate
	tokenAuth *jwtauth.JWTAuth
}

func NewAuthRessource(
	logger *zap.Logger,
	signIn *user.SigninService,
	users *user.Service,
	rotator *tokens.TokenRotator,
	verifier *tokens.TokenVerifier,
	validate *validator.Validate,
	tokenAuth *jwtauth.JWTAuth,
) *AuthRessource {
	return &AuthRessource{
		logger:    logger,
		signIn:    signIn,
		users:     users,
		rotator:   rotator,
		verifier:  verifier,
		validate:  validate,
		tokenAuth: tokenAuth,
	}
}

func (a *AuthRessource) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Post("/register", a.register)
	r.Post("/login", a.login)
	r.Post("/refresh", a.refresh)

	r.Get("/verify-email/{token}", a.verifyEmail)
	r.Post("/resend-verification", a.resendVerification)
	r.Post("/forgot-password", a.forgotPassword)
	r.Post("/reset-password", a.resetPassword)

	r.Group(func(ri chi.Router) {
		ri.Use(jwtauth.Authenticator(a.tokenAuth))
		ri.Post("/logout", a.logout)
	})

	return r
}

func (a *AuthRessource) respond(w http.ResponseWriter, r *http.Request, v render.Renderer) {
	if err := render.Render(w, r, v); err != nil {
		a.logger.Error("unable to render response", zap.Error(err))
	}
}

// clientIP relies on the RealIP middleware having fixed up RemoteAddr
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func deviceInfo(r *http.Request) *string {
	ua := r.UserAgent()
	if ua == "" {
		return nil
	}
	return &ua
}
