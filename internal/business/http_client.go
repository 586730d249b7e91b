package business

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/openkcm/common-sdk/pkg/commoncfg"

	"github.com/openkcm/holdings-portal/internal/config"
)

// loadHTTPClient builds the client used against the identity provider
// together with the client secret, if the configured client auth uses one.
func loadHTTPClient(cfg *config.Identity) (*http.Client, string, error) {
	switch cfg.ClientAuth.Type {
	case config.ClientAuthMTLS:
		if cfg.ClientAuth.MTLS == nil {
			return nil, "", errors.New("mTLS client auth without mTLS config")
		}

		tlsConfig, err := commoncfg.LoadMTLSConfig(cfg.ClientAuth.MTLS)
		if err != nil {
			return nil, "", fmt.Errorf("loading mTLS config: %w", err)
		}

		return &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy:           http.ProxyFromEnvironment,
				TLSClientConfig: tlsConfig,
			},
		}, "", nil
	case config.ClientAuthClientSecret:
		secret, err := commoncfg.LoadValueFromSourceRef(cfg.ClientAuth.ClientSecret)
		if err != nil {
			return nil, "", fmt.Errorf("loading client secret: %w", err)
		}

		return &http.Client{Timeout: cfg.Timeout}, string(secret), nil
	case config.ClientAuthNone, "":
		return &http.Client{Timeout: cfg.Timeout}, "", nil
	default:
		return nil, "", errors.New("unknown Client Auth type")
	}
}

func apiHTTPClient(cfg *config.API) *http.Client {
	return &http.Client{Timeout: cfg.Timeout}
}
