package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/learnhub/learnhub/internal/auth"
	_ "github.com/learnhub/learnhub/testing"
)

func newGuard(source auth.AccountSource) (auth.Guard, *auth.Codec) {
	codec := newTestCodec()
	return auth.Guard{Resolver: auth.NewResolver(codec, source)}, codec
}

func okHandler(t *testing.T, kind auth.Kind, captured **auth.Principal) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = auth.PrincipalFromContext(r.Context(), kind)
		w.WriteHeader(http.StatusOK)
	})
}

func decodeEnvelope(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestGuardMissingToken(t *testing.T) {
	guard, _ := newGuard(&stubSource{accounts: map[string]*auth.Account{}})
	var principal *auth.Principal
	handler := guard.Require(auth.KindStudent)(okHandler(t, auth.KindStudent, &principal))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/profile", nil))

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", res.Code)
	}
	body := decodeEnvelope(t, res)
	if body["success"] != false {
		t.Fatalf("success = %v, want false", body["success"])
	}
	if principal != nil {
		t.Fatal("handler must not run without a principal")
	}
}

func TestGuardFailureIndistinguishable(t *testing.T) {
	blocked := activeStudent("s2")
	blocked.Status = auth.StatusBlocked
	source := &stubSource{accounts: map[string]*auth.Account{"s2": blocked}}
	guard, codec := newGuard(source)
	handler := guard.Require(auth.KindStudent)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	blockedToken := issueFor(t, codec, blocked, auth.KindStudent)
	cases := map[string]string{
		"garbage token":   "Bearer garbage",
		"blocked account": "Bearer " + blockedToken,
	}
	var messages []string
	for name, header := range cases {
		req := httptest.NewRequest(http.MethodGet, "/profile", nil)
		req.Header.Set("Authorization", header)
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		if res.Code != http.StatusUnauthorized {
			t.Fatalf("%s: status = %d, want 401", name, res.Code)
		}
		messages = append(messages, decodeEnvelope(t, res)["message"].(string))
	}
	if messages[0] != messages[1] {
		t.Fatalf("failure messages differ: %q vs %q", messages[0], messages[1])
	}
}

func TestGuardAcceptsCookieThenHeader(t *testing.T) {
	student := activeStudent("s1")
	source := &stubSource{accounts: map[string]*auth.Account{"s1": student}}
	guard, codec := newGuard(source)
	token := issueFor(t, codec, student, auth.KindStudent)

	var principal *auth.Principal
	handler := guard.Require(auth.KindStudent)(okHandler(t, auth.KindStudent, &principal))

	// Cookie path.
	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.AddCookie(&http.Cookie{Name: auth.AccessTokenCookie, Value: token})
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK || principal == nil || principal.ID != "s1" {
		t.Fatalf("cookie auth failed: status=%d principal=%+v", res.Code, principal)
	}

	// Header path.
	principal = nil
	req = httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK || principal == nil || principal.ID != "s1" {
		t.Fatalf("header auth failed: status=%d principal=%+v", res.Code, principal)
	}
}

func TestGuardKindScopedContext(t *testing.T) {
	admin := activeAdmin("a1")
	source := &stubSource{accounts: map[string]*auth.Account{"a1": admin}}
	guard, codec := newGuard(source)
	token := issueFor(t, codec, admin, auth.KindAdmin)

	handler := guard.Require(auth.KindAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.PrincipalFromContext(r.Context(), auth.KindAdmin) == nil {
			t.Error("admin principal missing from context")
		}
		if auth.PrincipalFromContext(r.Context(), auth.KindStudent) != nil {
			t.Error("student context key must stay empty under the admin guard")
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)
}

func TestRequireRoleOrdering(t *testing.T) {
	guard, _ := newGuard(&stubSource{accounts: map[string]*auth.Account{}})
	gate := guard.RequireRole(auth.KindAdmin, auth.RoleSuperAdmin)
	var reached bool
	handler := gate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { reached = true }))

	// No principal in context at all: 401, not 403.
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/admins", nil))
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("no principal: status = %d, want 401", res.Code)
	}

	// Principal with the wrong role: 403.
	principal := &auth.Principal{ID: "a1", Kind: auth.KindAdmin, Role: auth.RoleModerator}
	req := httptest.NewRequest(http.MethodGet, "/admins", nil)
	req = req.WithContext(auth.ContextWithPrincipal(context.Background(), principal))
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusForbidden {
		t.Fatalf("wrong role: status = %d, want 403", res.Code)
	}
	if reached {
		t.Fatal("handler must not run for a forbidden role")
	}

	// Matching role passes through.
	principal.Role = auth.RoleSuperAdmin
	req = httptest.NewRequest(http.MethodGet, "/admins", nil)
	req = req.WithContext(auth.ContextWithPrincipal(context.Background(), principal))
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK || !reached {
		t.Fatalf("matching role: status = %d, reached = %v", res.Code, reached)
	}
}

func TestRequirePermissionChecksPrincipalOnly(t *testing.T) {
	guard, _ := newGuard(&stubSource{accounts: map[string]*auth.Account{}})
	gate := guard.RequirePermission(auth.KindAdmin, "coupons:write")
	handler := gate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/coupons", nil))
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("no principal: status = %d, want 401", res.Code)
	}

	// Permission sets are not enforced yet: any admin principal passes,
	// even without the named permission.
	principal := &auth.Principal{ID: "a1", Kind: auth.KindAdmin, Role: auth.RoleAdmin}
	req := httptest.NewRequest(http.MethodPost, "/coupons", nil)
	req = req.WithContext(auth.ContextWithPrincipal(context.Background(), principal))
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("admin principal: status = %d, want 200", res.Code)
	}
}

func TestExtractTokenPrefersCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: auth.AccessTokenCookie, Value: "from-cookie"})
	req.Header.Set("Authorization", "Bearer from-header")
	if got := auth.ExtractToken(req); got != "from-cookie" {
		t.Fatalf("ExtractToken = %q, want from-cookie", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer from-header")
	if got := auth.ExtractToken(req); got != "from-header" {
		t.Fatalf("ExtractToken = %q, want from-header", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	if got := auth.ExtractToken(req); got != "" {
		t.Fatalf("ExtractToken = %q, want empty", got)
	}
}
