package auth

import (
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Placement is the cookie attribute set computed for one request. The same
// value must be used for setting and clearing: browsers match cookies on
// {name, domain, path}, and a clear with different attributes is silently
// ignored, stranding the stale cookie until it expires on its own.
type Placement struct {
	Domain   string
	Path     string
	Secure   bool
	SameSite http.SameSite
}

// CookiePolicy decides cookie attributes from the request's declared
// origin. Three deployment shapes are supported: localhost development, a
// wildcard hosting-platform subdomain, and a production custom domain.
type CookiePolicy struct {
	// PlatformSuffix is the hosting platform's shared parent domain,
	// e.g. "vercel.app", matched against preview deploy hosts.
	PlatformSuffix string
	// RootDomain is the registrable production domain, e.g. "learnhub.com".
	// Subdomains share the cookie through it. Empty disables the branch.
	RootDomain string

	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// PlacementFor computes the attribute set for a request. The Origin header
// wins over Host: cross-site browser calls carry the frontend's origin,
// which is the site the cookie must be scoped for.
func (p CookiePolicy) PlacementFor(r *http.Request) Placement {
	host := requestHost(r)
	switch {
	case host == "localhost" || host == "127.0.0.1":
		// Browsers reject a Domain attribute on localhost, and Secure
		// cookies never stick on plain http.
		return Placement{Path: "/", Secure: false, SameSite: http.SameSiteLaxMode}
	case p.PlatformSuffix != "" && hasDomainSuffix(host, p.PlatformSuffix):
		return Placement{Domain: "." + p.PlatformSuffix, Path: "/", Secure: true, SameSite: http.SameSiteNoneMode}
	case p.RootDomain != "" && hasDomainSuffix(host, p.RootDomain):
		return Placement{Domain: "." + p.RootDomain, Path: "/", Secure: true, SameSite: http.SameSiteNoneMode}
	default:
		// Unknown host: host-only cookie with cross-site delivery enabled.
		// Never guess a domain; a wrong one means the cookie is never sent.
		return Placement{Path: "/", Secure: true, SameSite: http.SameSiteNoneMode}
	}
}

// SetAuthCookies attaches both tokens to the response using one placement.
func (p CookiePolicy) SetAuthCookies(w http.ResponseWriter, pl Placement, accessToken, refreshToken string) {
	p.SetAccessCookie(w, pl, accessToken)
	http.SetCookie(w, authCookie(RefreshTokenCookie, refreshToken, pl, int(p.RefreshTTL.Seconds())))
}

// SetAccessCookie attaches only the access token; the refresh flow renews
// the access cookie without reissuing the refresh token.
func (p CookiePolicy) SetAccessCookie(w http.ResponseWriter, pl Placement, accessToken string) {
	http.SetCookie(w, authCookie(AccessTokenCookie, accessToken, pl, int(p.AccessTTL.Seconds())))
}

// ClearAuthCookies erases both tokens. It must receive the placement
// derived from the same request that set them; the {domain, path, sameSite}
// triple has to match exactly.
func (p CookiePolicy) ClearAuthCookies(w http.ResponseWriter, pl Placement) {
	http.SetCookie(w, authCookie(AccessTokenCookie, "", pl, -1))
	http.SetCookie(w, authCookie(RefreshTokenCookie, "", pl, -1))
}

func authCookie(name, value string, pl Placement, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Domain:   pl.Domain,
		Path:     pl.Path,
		MaxAge:   maxAge,
		Secure:   pl.Secure,
		HttpOnly: true,
		SameSite: pl.SameSite,
	}
}

func requestHost(r *http.Request) string {
	if origin := r.Header.Get("Origin"); origin != "" && origin != "null" {
		if u, err := url.Parse(origin); err == nil && u.Hostname() != "" {
			return strings.ToLower(u.Hostname())
		}
	}
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(host)
}

// hasDomainSuffix reports whether host is suffix itself or a subdomain of it.
func hasDomainSuffix(host, suffix string) bool {
	suffix = strings.TrimPrefix(strings.ToLower(suffix), ".")
	return host == suffix || strings.HasSuffix(host, "."+suffix)
}
