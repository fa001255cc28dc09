package flagsmith

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/matt-riley/flagdgo/internal/flagmodel"
)

func TestResolver_ResolveBool_Found(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Environment-Key") != "env-key" {
			t.Fatalf("missing environment key header")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"enabled": true, "feature_state_value": null, "feature": {"name": "welcome-banner"}}]`))
	}))
	defer srv.Close()

	r := New(Config{BaseURL: srv.URL, EnvironmentKey: "env-key"})
	details := r.ResolveBool("welcome-banner", flagmodel.EvaluationContext{TargetingKey: "user-1"})
	if details.Reason != flagmodel.ReasonStatic || !details.Value {
		t.Fatalf("unexpected result: %+v", details)
	}
}

func TestResolver_ResolveString_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	r := New(Config{BaseURL: srv.URL, EnvironmentKey: "env-key"})
	details := r.ResolveString("missing", flagmodel.EvaluationContext{})
	if details.Reason != flagmodel.ReasonError || details.ErrorCode != flagmodel.ErrorFlagNotFound {
		t.Fatalf("unexpected result: %+v", details)
	}
}

func TestResolver_ResolveInt64_TypeMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"enabled": true, "feature_state_value": "not-a-number", "feature": {"name": "max-retries"}}]`))
	}))
	defer srv.Close()

	r := New(Config{BaseURL: srv.URL, EnvironmentKey: "env-key"})
	details := r.ResolveInt64("max-retries", flagmodel.EvaluationContext{})
	if details.ErrorCode != flagmodel.ErrorTypeMismatch {
		t.Fatalf("unexpected result: %+v", details)
	}
}
