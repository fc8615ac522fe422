package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/learnhub/learnhub/internal/auth"
	_ "github.com/learnhub/learnhub/testing"
)

func newTestPolicy() auth.CookiePolicy {
	return auth.CookiePolicy{
		PlatformSuffix: "vercel.app",
		RootDomain:     "learnhub.com",
		AccessTTL:      7 * 24 * time.Hour,
		RefreshTTL:     30 * 24 * time.Hour,
	}
}

func requestWithHost(host, origin string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/students/login", nil)
	req.Host = host
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	return req
}

func TestPlacementForDeploymentShapes(t *testing.T) {
	policy := newTestPolicy()
	cases := []struct {
		name   string
		host   string
		origin string
		want   auth.Placement
	}{
		{
			name: "localhost",
			host: "localhost:3000",
			want: auth.Placement{Path: "/", Secure: false, SameSite: http.SameSiteLaxMode},
		},
		{
			name: "loopback ip",
			host: "127.0.0.1:8080",
			want: auth.Placement{Path: "/", Secure: false, SameSite: http.SameSiteLaxMode},
		},
		{
			name: "platform wildcard",
			host: "learnhub-git-main.vercel.app",
			want: auth.Placement{Domain: ".vercel.app", Path: "/", Secure: true, SameSite: http.SameSiteNoneMode},
		},
		{
			name: "production subdomain",
			host: "api.learnhub.com",
			want: auth.Placement{Domain: ".learnhub.com", Path: "/", Secure: true, SameSite: http.SameSiteNoneMode},
		},
		{
			name: "unknown host falls back cross-site capable",
			host: "evil.example.net",
			want: auth.Placement{Path: "/", Secure: true, SameSite: http.SameSiteNoneMode},
		},
		{
			name:   "origin header wins over host",
			host:   "api.learnhub.com",
			origin: "https://preview.vercel.app",
			want:   auth.Placement{Domain: ".vercel.app", Path: "/", Secure: true, SameSite: http.SameSiteNoneMode},
		},
		{
			name:   "localhost origin during development",
			host:   "api.learnhub.com",
			origin: "http://localhost:3000",
			want:   auth.Placement{Path: "/", Secure: false, SameSite: http.SameSiteLaxMode},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := policy.PlacementFor(requestWithHost(tc.host, tc.origin))
			if got != tc.want {
				t.Fatalf("placement = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func findCookie(t *testing.T, cookies []*http.Cookie, name string) *http.Cookie {
	t.Helper()
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %q not set", name)
	return nil
}

func TestSetAuthCookiesAttributes(t *testing.T) {
	policy := newTestPolicy()
	placement := policy.PlacementFor(requestWithHost("app.vercel.app", ""))

	res := httptest.NewRecorder()
	policy.SetAuthCookies(res, placement, "access-jwt", "refresh-jwt")
	cookies := res.Result().Cookies()

	access := findCookie(t, cookies, auth.AccessTokenCookie)
	if access.Value != "access-jwt" || !access.HttpOnly || !access.Secure {
		t.Fatalf("access cookie = %+v", access)
	}
	if access.MaxAge != int((7 * 24 * time.Hour).Seconds()) {
		t.Fatalf("access max-age = %d, want 7 days", access.MaxAge)
	}

	refresh := findCookie(t, cookies, auth.RefreshTokenCookie)
	if refresh.MaxAge != int((30 * 24 * time.Hour).Seconds()) {
		t.Fatalf("refresh max-age = %d, want 30 days", refresh.MaxAge)
	}
	if refresh.Domain != ".vercel.app" || refresh.Path != "/" {
		t.Fatalf("refresh scope = %q %q", refresh.Domain, refresh.Path)
	}
}

// The attribute triple used to clear a cookie must match the one used to
// set it, for every deployment shape, or the browser keeps the cookie.
func TestSetClearSymmetry(t *testing.T) {
	policy := newTestPolicy()
	hosts := []string{"localhost:3000", "app.vercel.app", "www.learnhub.com", "somewhere.example.org"}
	for _, host := range hosts {
		t.Run(host, func(t *testing.T) {
			placement := policy.PlacementFor(requestWithHost(host, ""))

			setRes := httptest.NewRecorder()
			policy.SetAuthCookies(setRes, placement, "a", "r")
			clearRes := httptest.NewRecorder()
			policy.ClearAuthCookies(clearRes, placement)

			setCookies := setRes.Result().Cookies()
			clearCookies := clearRes.Result().Cookies()
			for _, name := range []string{auth.AccessTokenCookie, auth.RefreshTokenCookie} {
				set := findCookie(t, setCookies, name)
				clear := findCookie(t, clearCookies, name)
				if set.Domain != clear.Domain || set.Path != clear.Path || set.SameSite != clear.SameSite {
					t.Fatalf("%s: set {%q %q %v} != clear {%q %q %v}", name,
						set.Domain, set.Path, set.SameSite,
						clear.Domain, clear.Path, clear.SameSite)
				}
				if clear.MaxAge >= 0 {
					t.Fatalf("%s: clear max-age = %d, want negative", name, clear.MaxAge)
				}
				if clear.Value != "" {
					t.Fatalf("%s: clear value = %q, want empty", name, clear.Value)
				}
			}
		})
	}
}
