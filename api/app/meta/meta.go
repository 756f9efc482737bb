// Package meta contains the .well-known endpoints
package meta

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/lcampe/guardian/config"
	"github.com/lcampe/guardian/tokens"
	"go.uber.org/zap"
)

type MetaRessource struct {
	log    *zap.Logger
	cfg    *config.BehaviourConfiguration
	issuer *tokens.TokenIssuer
}

func (m *MetaRessource) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Get("/jwks.json", m.jwks)
	r.Get("/service-configuration", m.serviceConfiguration)
	return r
}

// jwks publishes the verification keys, symmetric setups yield an
// empty key set
func (m *MetaRessource) jwks(w http.ResponseWriter, _ *http.Request) {
	set, err := m.issuer.AsPublicOnlyJWKSet()
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	b, err := json.Marshal(set)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
}

func (m *MetaRessource) serviceConfiguration(w http.ResponseWriter, r *http.Request) {
	meta := &serviceMetaData{
		Issuer:             m.issuer.Issuer(),
		JWKSUri:            fmt.Sprintf("%s/.well-known/jwks.json", m.cfg.ServiceDomain),
		TokenEndpoint:      fmt.Sprintf("%s/auth/login", m.cfg.ServiceDomain),
		RefreshEndpoint:    fmt.Sprintf("%s/auth/refresh", m.cfg.ServiceDomain),
		RevocationEndpoint: fmt.Sprintf("%s/auth/logout", m.cfg.ServiceDomain),
	}
	err := render.Render(w, r, meta)
	if err != nil {
		m.log.Error("unable to render response", zap.Error(err))
	}
}

func NewMetaRessource(
	log *zap.Logger,
	cfg *config.BehaviourConfiguration,
	issuer *tokens.TokenIssuer,
) *MetaRessource {
	return &MetaRessource{log: log, cfg: cfg, issuer: issuer}
}
