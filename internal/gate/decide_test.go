package gate

import (
	"net/http"
	"testing"
)

func loggedIn(v bool) func() bool {
	return func() bool { return v }
}

func TestDecideNoLoginActionWithoutSession(t *testing.T) {
	registry := NewRegistry()
	registry.Register("article", ControllerPolicy{NoLogin: []string{"view"}})

	d := Decide(Request{
		Method:   http.MethodGet,
		Route:    &RouteMeta{Controller: "article", Action: "view"},
		LoggedIn: loggedIn(false),
	}, registry, nil)
	if !d.Allowed() {
		t.Fatalf("expected allow, got %+v", d)
	}
}

func TestDecideProtectedActionWithoutSession(t *testing.T) {
	registry := NewRegistry()
	registry.Register("article", ControllerPolicy{NoLogin: []string{"view"}})

	d := Decide(Request{
		Method:   http.MethodPost,
		Route:    &RouteMeta{Controller: "article", Action: "edit"},
		LoggedIn: loggedIn(false),
	}, registry, nil)
	if d.Outcome != OutcomeDeny || d.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 deny, got %+v", d)
	}
	if d.Message != MessageLoginRequired {
		t.Fatalf("message = %q", d.Message)
	}
}

func TestDecideWildcard(t *testing.T) {
	registry := NewRegistry()
	registry.Register("public", ControllerPolicy{NoLogin: []string{AllActions}})

	d := Decide(Request{
		Method:   http.MethodPost,
		Route:    &RouteMeta{Controller: "public", Action: "anything"},
		LoggedIn: loggedIn(false),
	}, registry, nil)
	if !d.Allowed() {
		t.Fatalf("expected allow, got %+v", d)
	}
}

func TestDecideActionMatchIsExact(t *testing.T) {
	registry := NewRegistry()
	registry.Register("article", ControllerPolicy{NoLogin: []string{"view"}})

	d := Decide(Request{
		Method:   http.MethodGet,
		Route:    &RouteMeta{Controller: "article", Action: "viewAll"},
		LoggedIn: loggedIn(false),
	}, registry, nil)
	if d.Allowed() {
		t.Fatal("prefix of a no-login action must not be allowed")
	}
}

func TestDecideLoggedIn(t *testing.T) {
	registry := NewRegistry()
	registry.Register("article", ControllerPolicy{})

	d := Decide(Request{
		Method:   http.MethodPost,
		Route:    &RouteMeta{Controller: "article", Action: "edit"},
		LoggedIn: loggedIn(true),
	}, registry, nil)
	if !d.Allowed() {
		t.Fatalf("expected allow, got %+v", d)
	}
}

func TestDecideDataLimitMisconfigured(t *testing.T) {
	registry := NewRegistry()
	registry.Register("article", ControllerPolicy{DataLimit: DataLimitPolicy{Enabled: true}})

	d := Decide(Request{
		Method:   http.MethodGet,
		Route:    &RouteMeta{Controller: "article", Action: "select"},
		LoggedIn: loggedIn(true),
	}, registry, nil)
	if d.Outcome != OutcomeDeny || d.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 deny, got %+v", d)
	}
}

func TestDecideUnknownController(t *testing.T) {
	d := Decide(Request{
		Method:   http.MethodGet,
		Route:    &RouteMeta{Controller: "ghost", Action: "index"},
		LoggedIn: loggedIn(true),
	}, NewRegistry(), nil)
	if d.Code != http.StatusNotFound || d.Message != MessageControllerNotFound {
		t.Fatalf("expected 404 deny, got %+v", d)
	}
}

func TestDecideFunctionRoutes(t *testing.T) {
	registry := NewRegistry()

	if d := Decide(Request{Method: http.MethodGet, LoggedIn: loggedIn(false)}, registry, nil); !d.Allowed() {
		t.Fatalf("unmatched route should be allowed, got %+v", d)
	}

	d := Decide(Request{
		Method:   http.MethodGet,
		Route:    &RouteMeta{NoLogin: true},
		LoggedIn: loggedIn(false),
	}, registry, nil)
	if !d.Allowed() {
		t.Fatalf("no-login route should be allowed, got %+v", d)
	}

	d = Decide(Request{
		Method:   http.MethodGet,
		Route:    &RouteMeta{},
		LoggedIn: loggedIn(false),
	}, registry, nil)
	if d.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 deny, got %+v", d)
	}
}

func TestDecideExcludedAppAndPreflight(t *testing.T) {
	registry := NewRegistry()
	excluded := map[string]struct{}{"admin": {}}

	d := Decide(Request{
		App:      "admin",
		Method:   http.MethodPost,
		Route:    &RouteMeta{App: "admin", Controller: "ghost"},
		LoggedIn: loggedIn(false),
	}, registry, excluded)
	if !d.Allowed() {
		t.Fatalf("excluded app should be allowed, got %+v", d)
	}

	d = Decide(Request{
		Method:   http.MethodOptions,
		Route:    &RouteMeta{Controller: "ghost"},
		LoggedIn: loggedIn(false),
	}, registry, nil)
	if d.Outcome != OutcomePreflight {
		t.Fatalf("expected preflight, got %+v", d)
	}
}

func TestDecideRecoversPanic(t *testing.T) {
	registry := NewRegistry()
	registry.Register("article", ControllerPolicy{})

	d := Decide(Request{
		Method:   http.MethodGet,
		Route:    &RouteMeta{Controller: "article", Action: "index"},
		LoggedIn: func() bool { panic("session backend unavailable") },
	}, registry, nil)
	if d.Code != http.StatusInternalServerError || d.Message != "session backend unavailable" {
		t.Fatalf("expected 500 deny, got %+v", d)
	}
}
