package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lcampe/guardian/api/app/account"
	"github.com/lcampe/guardian/api/app/auth"
	"github.com/lcampe/guardian/api/app/challenge"
	"github.com/lcampe/guardian/api/app/meta"
	"github.com/lcampe/guardian/captcha"
	"github.com/lcampe/guardian/config"
	"github.com/lcampe/guardian/tokens"
	"github.com/lcampe/guardian/user"

	"go.uber.org/zap"
)

var validate *validator.Validate
var tokenAuth *jwtauth.JWTAuth

func corsOptions(cfg *config.CORSConfiguration) cors.Options {
	opts := cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}
	if cfg == nil {
		return opts
	}
	if len(cfg.AllowedOrigins) > 0 {
		opts.AllowedOrigins = cfg.AllowedOrigins
	}
	if len(cfg.AllowedMethods) > 0 {
		opts.AllowedMethods = cfg.AllowedMethods
	}
	opts.AllowCredentials = cfg.AllowCredentials
	return opts
}

func compose(logger *zap.Logger,
	cfg *config.Configuration,
	issuer *tokens.TokenIssuer,
	verifier *tokens.TokenVerifier,
	rotator *tokens.TokenRotator,
	signInService *user.SigninService,
	userService *user.Service,
	captchaService *captcha.Service) (*chi.Mux, error) {
	validate = validator.New()

	err := validate.RegisterValidation("minpwd", func(fl validator.FieldLevel) bool {
		if cfg.Behaviour.PasswordMinLength <= 0 {
			return true
		}
		return len(fl.Field().String()) >= cfg.Behaviour.PasswordMinLength
	})
	if err != nil {
		logger.Error("Could not create minpwd validation", zap.Error(err))
	}
	// use same settings as issuer (duh)
	tokenAuth = jwtauth.New(issuer.Alg(), issuer.PrivateKey(), issuer.PublicKey())

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	r.Use(loggerMiddleware(logger))

	r.Use(middleware.Recoverer)

	r.Use(middleware.Timeout(50 * time.Second))
	r.Use(cors.Handler(corsOptions(cfg.CORS)))
	r.Use(jwtauth.Verifier(tokenAuth))

	if cfg.DebugMode() {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("running in debug mode - no auto redirects to site"))
		})
	} else {
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, cfg.Behaviour.Site, http.StatusFound)
		})
	}

	authRessource := auth.NewAuthRessource(
		logger.Named("auth_ressource"),
		signInService,
		userService,
		rotator,
		verifier,
		validate,
		tokenAuth,
	)
	accountRessource := account.NewAccountRessource(
		logger.Named("account_ressource"),
		userService,
		rotator,
		verifier,
		validate,
		tokenAuth,
	)
	challengeRessource := challenge.NewChallengeRessource(
		logger.Named("challenge_ressource"),
		captchaService,
	)
	metaRessource := meta.NewMetaRessource(logger.Named("meta_ressource"), cfg.Behaviour, issuer)

	r.Mount("/auth", authRessource.Router())

	r.Mount("/users", accountRessource.Router())

	r.Mount("/captcha", challengeRessource.Router())

	r.Mount("/.well-known", metaRessource.Router())

	return r, nil
}
