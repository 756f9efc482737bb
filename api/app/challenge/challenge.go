// Package challenge exposes the captcha endpoints. The service hands
// out the challenge text, rendering it is the client's business.
package challenge

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/lcampe/guardian/captcha"
	"go.uber.org/zap"
)

type ChallengeRessource struct {
	logger  *zap.Logger
	service *captcha.Service
}

func NewChallengeRessource(logger *zap.Logger, service *captcha.Service) *ChallengeRessource {
	return &ChallengeRessource{logger: logger, service: service}
}

func (c *ChallengeRessource) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Get("/generate", c.generate)
	r.Post("/verify", c.verify)

	return r
}

func (c *ChallengeRessource) respond(w http.ResponseWriter, r *http.Request, v render.Renderer) {
	if err := render.Render(w, r, v); err != nil {
		c.logger.Error("unable to render response", zap.Error(err))
	}
}

func (c *ChallengeRessource) generate(w http.ResponseWriter, r *http.Request) {
	challenge, err := c.service.Generate(r.Context())
	if err != nil {
		c.respond(w, r, createError(errServerError, http.StatusInternalServerError, ""))
		return
	}
	c.respond(w, r, &challengeResponse{
		CaptchaID: challenge.ID,
		Challenge: challenge.Answer,
		ExpiresIn: int(time.Until(challenge.ExpiresAt).Seconds()),
	})
}

// verify burns the challenge either way, a wrong answer requires a
// fresh one
func (c *ChallengeRessource) verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		c.respond(w, r, createError(errInvalidRequest, http.StatusBadRequest, ""))
		return
	}
	if req.CaptchaID == "" || req.Answer == "" {
		c.respond(
			w,
			r,
			createError(errInvalidRequest, http.StatusBadRequest, "captcha_id and answer required"),
		)
		return
	}
	ok, err := c.service.Verify(r.Context(), req.CaptchaID, req.Answer)
	if err != nil {
		c.respond(w, r, createError(errServerError, http.StatusInternalServerError, ""))
		return
	}
	c.respond(w, r, &verifyResponse{Valid: ok})
}
