package cmd

import (
	"github.com/lcampe/guardian/api"
	"github.com/lcampe/guardian/captcha"
	"github.com/lcampe/guardian/security"
	"github.com/lcampe/guardian/tokens"
	"github.com/lcampe/guardian/user"
	"github.com/lcampe/guardian/verification"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var serveCommand = cobra.Command{
	Use:   "serve",
	Short: "starts the http server",
	Long:  `Starts a http server and serves the service`,
	Run: func(cmd *cobra.Command, args []string) {
		//this is our composite root

		//setup datastore
		dataStore := mustResolveUsableDataStore()

		//setup token issuer
		issuer := tokens.NewIssuer(TopLevelLogger.Named("token_issuer"), LoadedConfig.JWT, dataStore)

		//setup mailer
		mailer := mustResolveMailer()

		//events dispatcher
		dispatcher := bootstrapDispatcher(dataStore.Auditor())

		//adaptive defense + quotas
		guard := security.NewService(dataStore, TopLevelLogger.Named("security_service"), LoadedConfig.Security, dispatcher)
		limiter := security.NewMailLimiter(dataStore, TopLevelLogger.Named("mail_limiter"), LoadedConfig.Limits)

		//captcha challenges
		captchaService := captcha.NewService(TopLevelLogger.Named("captcha_service"), LoadedConfig.Captcha, resolveCaptchaStore())

		//one time tokens
		oneTimeTokens := verification.NewService(dataStore, TopLevelLogger.Named("verification_service"), LoadedConfig.Behaviour)

		//setup token verifier + rotator
		verifier := tokens.NewTokenVerifier(TopLevelLogger.Named("token_verifier"), issuer, dataStore)
		rotator := tokens.NewRotator(dataStore, issuer, verifier, dispatcher, TopLevelLogger.Named("token_rotator"))

		//setup business services
		userService := user.New(dataStore, TopLevelLogger.Named("user_service"), LoadedConfig, mailer, dispatcher, oneTimeTokens, limiter, rotator)
		signInService := user.NewSignInService(dataStore, TopLevelLogger.Named("signin_service"), LoadedConfig, guard, captchaService, issuer, dispatcher)

		server, err := api.NewServer(LoadedConfig, TopLevelLogger.Named("server"),
			issuer,
			verifier,
			rotator,
			signInService,
			userService,
			captchaService,
		)
		if err != nil {
			TopLevelLogger.Fatal("Failed to create server", zap.Error(err))
		}
		if err := server.Start(); err != nil {
			TopLevelLogger.Fatal("Server stopped with error", zap.Error(err))
		}
		TopLevelLogger.Info("Shutdown complete")
	},
}

func init() {
	viper.SetDefault("port", "3000")
	viper.SetDefault("log_level", "debug")
}
