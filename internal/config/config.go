// Package config defines the necessary types to configure the application.
// An example config file config.yaml is provided in the repository.
package config

import (
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
)

type Config struct {
	commoncfg.BaseConfig `mapstructure:",squash" yaml:",inline"`

	HTTP     HTTPServer `yaml:"http"`
	Identity Identity   `yaml:"identity"`
	API      API        `yaml:"api"`
	Storage  Storage    `yaml:"storage"`
	Cookies  Cookies    `yaml:"cookies"`

	Database Database `yaml:"database"`
	ValKey   ValKey   `yaml:"valkey"`
	Migrate  Migrate  `yaml:"migrate"`
}

type HTTPServer struct {
	Address         string        `yaml:"address" default:":8080"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"5s"`
}

// Identity configures the OAuth2 identity provider.
type Identity struct {
	// Domain is either a bare host name (https is implied) or an absolute URL.
	Domain      string        `yaml:"domain" validate:"required"`
	ClientID    string        `yaml:"clientID" validate:"required"`
	RedirectURI string        `yaml:"redirectURI" validate:"required,url"`
	LogoutURI   string        `yaml:"logoutURI" validate:"required,url"`
	Timeout     time.Duration `yaml:"timeout" default:"10s"`
	ClientAuth  ClientAuth    `yaml:"clientAuth"`
}

const (
	ClientAuthNone         = "none"
	ClientAuthClientSecret = "client_secret"
	ClientAuthMTLS         = "mtls"
)

// ClientAuth configures how the portal authenticates at the token endpoint.
// The default is a public client relying on PKCE alone.
type ClientAuth struct {
	Type         string              `yaml:"type" default:"none" validate:"omitempty,oneof=none client_secret mtls"`
	ClientSecret commoncfg.SourceRef `yaml:"clientSecret"`
	MTLS         *commoncfg.MTLS     `yaml:"mTLS"`
}

// API configures the holdings backend.
type API struct {
	BaseURL string        `yaml:"baseURL" validate:"required,url"`
	Timeout time.Duration `yaml:"timeout" default:"15s"`
}

type StorageBackend string

const (
	StorageMemory   StorageBackend = "memory"
	StorageValKey   StorageBackend = "valkey"
	StoragePostgres StorageBackend = "postgres"
)

// Storage selects the backends of the durable and transient browser storage.
type Storage struct {
	Durable         StorageBackend `yaml:"durable" default:"valkey" validate:"omitempty,oneof=memory valkey postgres"`
	Transient       StorageBackend `yaml:"transient" default:"memory" validate:"omitempty,oneof=memory valkey postgres"`
	TransientTTL    time.Duration  `yaml:"transientTTL" default:"10m" validate:"gt=0"`
	CleanupInterval time.Duration  `yaml:"cleanupInterval" default:"1m" validate:"gt=0"`
}

// Uses reports whether either storage is served by backend b.
func (s Storage) Uses(b StorageBackend) bool {
	return s.Durable == b || s.Transient == b
}

// Cookies configures the cookies identifying a browser.
// Device keys the durable storage, Tab the transient one.
type Cookies struct {
	Device CookieTemplate `yaml:"device"`
	Tab    CookieTemplate `yaml:"tab"`
}

type CookieSameSite string

const (
	CookieSameSiteNone   CookieSameSite = "None"
	CookieSameSiteLax    CookieSameSite = "Lax"
	CookieSameSiteStrict CookieSameSite = "Strict"
)

type CookieTemplate struct {
	Name     string         `yaml:"name"`
	MaxAge   int            `yaml:"maxAge"`
	Path     string         `yaml:"path"`
	Domain   string         `yaml:"domain"`
	Secure   bool           `yaml:"secure"`
	SameSite CookieSameSite `yaml:"sameSite" validate:"omitempty,oneof=None Lax Strict"`
	HTTPOnly bool           `yaml:"httpOnly"`
}

type Database struct {
	Name     string              `yaml:"name"`
	Port     string              `yaml:"port"`
	Host     commoncfg.SourceRef `yaml:"host"`
	User     commoncfg.SourceRef `yaml:"user"`
	Password commoncfg.SourceRef `yaml:"password"`
	SSLMode  string              `yaml:"sslMode"`
}

type ValKey struct {
	Host      commoncfg.SourceRef `yaml:"host"`
	User      commoncfg.SourceRef `yaml:"user"`
	Password  commoncfg.SourceRef `yaml:"password"`
	Prefix    string              `yaml:"prefix" default:"holdings-portal"`
	SecretRef commoncfg.SecretRef `yaml:"secretRef"`
}

// Migrate selects the migrations to apply. Empty means the embedded ones,
// file://<dir> reads them from a directory.
type Migrate struct {
	Source string `yaml:"source"`
}
