package meta

import "net/http"

type serviceMetaData struct {
	Issuer             string `json:"issuer"`
	JWKSUri            string `json:"jwks_uri"`
	TokenEndpoint      string `json:"token_endpoint"`
	RefreshEndpoint    string `json:"refresh_endpoint"`
	RevocationEndpoint string `json:"revocation_endpoint"`
}

func (*serviceMetaData) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}
