package config

import "net/http"

func (s CookieSameSite) mode() http.SameSite {
	switch s {
	case CookieSameSiteNone:
		return http.SameSiteNoneMode
	case CookieSameSiteLax:
		return http.SameSiteLaxMode
	case CookieSameSiteStrict:
		return http.SameSiteStrictMode
	default:
		return http.SameSiteDefaultMode
	}
}

// ToCookie returns a cookie carrying value with the template's attributes.
func (ct *CookieTemplate) ToCookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     ct.Name,
		Value:    value,
		MaxAge:   ct.MaxAge,
		Path:     ct.Path,
		Domain:   ct.Domain,
		Secure:   ct.Secure,
		HttpOnly: ct.HTTPOnly,
		SameSite: ct.SameSite.mode(),
	}
}

// Expired returns a cookie that makes the browser drop the template's cookie.
func (ct *CookieTemplate) Expired() *http.Cookie {
	c := ct.ToCookie("")
	c.MaxAge = -1

	return c
}
