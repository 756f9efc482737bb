package meta

import (
	"net/http"
	"testing"

	"github.com/lcampe/guardian/config"
	"github.com/lcampe/guardian/tokens"
	"github.com/steinfletcher/apitest"
	"go.uber.org/zap"
)

func testRessource() *MetaRessource {
	bcfg := &config.BehaviourConfiguration{
		ServiceDomain: "http://example.com",
	}
	tcfg := &config.JWTConfiguration{
		Issuer:         "example",
		Algorithm:      "HS512",
		HMACSigningKey: "a-very-long-test-secret-that-is-not-weak",
	}
	issuer := tokens.NewIssuer(zap.NewNop(), tcfg, nil)
	return NewMetaRessource(zap.NewNop(), bcfg, issuer)
}

func TestServiceConfigurationEndpoint(t *testing.T) {
	m := testRessource()
	apitest.New().
		HandlerFunc(m.serviceConfiguration).
		Get("/service-configuration").
		Expect(t).
		Body(`{"issuer":"example","jwks_uri":"http://example.com/.well-known/jwks.json","token_endpoint":"http://example.com/auth/login","refresh_endpoint":"http://example.com/auth/refresh","revocation_endpoint":"http://example.com/auth/logout"}`).
		Status(http.StatusOK).
		End()
}

func TestJWKSEndpointSymmetricKeysStayPrivate(t *testing.T) {
	m := testRessource()
	apitest.New().
		HandlerFunc(m.jwks).
		Get("/jwks.json").
		Expect(t).
		Body(`{"keys":[]}`).
		Status(http.StatusOK).
		End()
}
