package config

import (
	"net/http"
	"time"
)

const (
	DefaultDeviceCookieName = "__Host-Http-Device"
	DefaultTabCookieName    = "__Host-Http-Tab"

	// defaultDeviceMaxAge is the longest lifetime browsers accept for a cookie.
	defaultDeviceMaxAge = 400 * 24 * time.Hour

	DefaultTransientTTL    = 10 * time.Minute
	DefaultCleanupInterval = time.Minute
)

// ApplyDefaults fills the values that cannot be expressed by default tags.
func (c *Config) ApplyDefaults() {
	if c.Cookies.Device.Name == "" {
		c.Cookies.Device = CookieTemplate{
			Name:     DefaultDeviceCookieName,
			MaxAge:   int(defaultDeviceMaxAge / time.Second),
			Path:     "/",
			Secure:   true,
			SameSite: CookieSameSiteLax,
			HTTPOnly: true,
		}
	}

	if c.Cookies.Tab.Name == "" {
		c.Cookies.Tab = CookieTemplate{
			Name:     DefaultTabCookieName,
			Path:     "/",
			Secure:   true,
			SameSite: CookieSameSiteLax,
			HTTPOnly: true,
		}
	}

	if c.Storage.Durable == "" {
		c.Storage.Durable = StorageValKey
	}

	if c.Storage.Transient == "" {
		c.Storage.Transient = StorageMemory
	}

	if c.Storage.TransientTTL == 0 {
		c.Storage.TransientTTL = DefaultTransientTTL
	}

	if c.Storage.CleanupInterval == 0 {
		c.Storage.CleanupInterval = DefaultCleanupInterval
	}

	if c.Identity.ClientAuth.Type == "" {
		c.Identity.ClientAuth.Type = ClientAuthNone
	}
}

// FromRequest reads the cookie described by the template.
func (ct *CookieTemplate) FromRequest(r *http.Request) (string, bool) {
	c, err := r.Cookie(ct.Name)
	if err != nil {
		return "", false
	}

	return c.Value, true
}
