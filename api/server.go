package api

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/lcampe/guardian/captcha"
	"github.com/lcampe/guardian/config"
	"github.com/lcampe/guardian/tokens"
	"github.com/lcampe/guardian/user"
	"go.uber.org/zap"
)

type Server struct {
	server *http.Server
	log    *zap.Logger
}

func NewServer(
	cfg *config.Configuration,
	logger *zap.Logger,
	issuer *tokens.TokenIssuer,
	verifier *tokens.TokenVerifier,
	rotator *tokens.TokenRotator,
	signInService *user.SigninService,
	userService *user.Service,
	captchaService *captcha.Service) (*Server, error) {
	api, err := compose(logger.Named("api"),
		cfg,
		issuer,
		verifier,
		rotator,
		signInService,
		userService,
		captchaService)
	if err != nil {
		return nil, err
	}
	bind := net.JoinHostPort(cfg.Server.Address, strconv.Itoa(cfg.Server.Port))
	srv := http.Server{
		Addr:              bind,
		Handler:           api,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return &Server{
		server: &srv,
		log:    logger,
	}, nil
}

// Start runs ListenAndServe on the http.Server with graceful shutdown.
func (srv *Server) Start() error {
	srv.log.Info("starting server")
	go func() {
		if err := srv.server.ListenAndServe(); err != http.ErrServerClosed {
			panic(err)
		}
	}()
	srv.log.Info("listening", zap.String("addr", srv.server.Addr))

	quit := make(chan os.Signal, 1)
	//nolint
	signal.Notify(quit, os.Interrupt)
	sig := <-quit
	srv.log.Info("shutting down", zap.String("signal", sig.String()))

	if err := srv.server.Shutdown(context.Background()); err != nil {
		srv.log.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	srv.log.Info("graceful shutdown completed")
	return nil
}
