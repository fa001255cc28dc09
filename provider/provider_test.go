package provider

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/matt-riley/flagdgo/internal/cache"
	"github.com/matt-riley/flagdgo/internal/flagmodel"
	"github.com/matt-riley/flagdgo/internal/metrics"
	syncpkg "github.com/matt-riley/flagdgo/internal/sync"
)

// fakeConnector is a minimal in-memory sync.Connector for exercising
// Provider without a real transport.
type fakeConnector struct {
	initPayload syncpkg.Payload
	initErr     error
	payloads    chan syncpkg.Payload
	shutdownErr error
	shutdown    chan struct{}
}

func newFakeConnector(initPayload syncpkg.Payload) *fakeConnector {
	return &fakeConnector{
		initPayload: initPayload,
		payloads:    make(chan syncpkg.Payload, 8),
		shutdown:    make(chan struct{}),
	}
}

func (f *fakeConnector) Init(ctx context.Context) error {
	if f.initErr != nil {
		return f.initErr
	}
	f.payloads <- f.initPayload
	return nil
}

func (f *fakeConnector) Payloads() <-chan syncpkg.Payload { return f.payloads }

func (f *fakeConnector) Shutdown() error {
	close(f.shutdown)
	return f.shutdownErr
}

const sampleDoc = `{
	"flags": {
		"welcome-banner": {
			"state": "ENABLED",
			"defaultVariant": "on",
			"variants": {"on": true, "off": false}
		},
		"greeting": {
			"state": "ENABLED",
			"defaultVariant": "default",
			"variants": {"default": "hello", "enterprise": "welcome back"},
			"targeting": {"if": [{"==": [{"var": "plan"}, "enterprise"]}, "enterprise", null]}
		}
	}
}`

func TestProvider_ResolveBool_StaticFlag(t *testing.T) {
	fc := newFakeConnector(syncpkg.Payload{Kind: syncpkg.PayloadData, Body: sampleDoc})
	p, err := New(context.Background(), fc)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Shutdown(context.Background())

	details := p.ResolveBool("welcome-banner", flagmodel.EvaluationContext{TargetingKey: "user-1"})
	if details.Reason != flagmodel.ReasonStatic || details.Value != true {
		t.Fatalf("unexpected result: %+v", details)
	}
}

func TestProvider_ResolveString_TargetingMatch(t *testing.T) {
	fc := newFakeConnector(syncpkg.Payload{Kind: syncpkg.PayloadData, Body: sampleDoc})
	p, err := New(context.Background(), fc)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Shutdown(context.Background())

	ctx := flagmodel.EvaluationContext{TargetingKey: "user-1", Fields: map[string]any{"plan": "enterprise"}}
	details := p.ResolveString("greeting", ctx)
	if details.Reason != flagmodel.ReasonTargetingMatch || details.Value != "welcome back" {
		t.Fatalf("unexpected result: %+v", details)
	}
}

func TestProvider_ResolveBool_CachedOnSecondCall(t *testing.T) {
	fc := newFakeConnector(syncpkg.Payload{Kind: syncpkg.PayloadData, Body: sampleDoc})
	p, err := New(context.Background(), fc)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Shutdown(context.Background())

	evalCtx := flagmodel.EvaluationContext{TargetingKey: "user-1"}
	first := p.ResolveBool("welcome-banner", evalCtx)
	if first.Reason != flagmodel.ReasonStatic {
		t.Fatalf("unexpected first result: %+v", first)
	}
	second := p.ResolveBool("welcome-banner", evalCtx)
	if second.Reason != flagmodel.ReasonCached || second.Value != true {
		t.Fatalf("expected a cached hit, got: %+v", second)
	}
}

func TestProvider_ResolveBool_FlagNotFoundIsNotCached(t *testing.T) {
	fc := newFakeConnector(syncpkg.Payload{Kind: syncpkg.PayloadData, Body: sampleDoc})
	p, err := New(context.Background(), fc)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Shutdown(context.Background())

	evalCtx := flagmodel.EvaluationContext{TargetingKey: "user-1"}
	details := p.ResolveBool("does-not-exist", evalCtx)
	if details.Reason != flagmodel.ReasonError || details.ErrorCode != flagmodel.ErrorFlagNotFound {
		t.Fatalf("unexpected result: %+v", details)
	}
	if _, ok := p.cache.Get("does-not-exist", evalCtx); ok {
		t.Fatal("an error result must not be cached")
	}
}

func TestProvider_New_FailsWhenConnectorNeverReady(t *testing.T) {
	fc := newFakeConnector(syncpkg.Payload{})
	fc.initErr = context.DeadlineExceeded

	_, err := New(context.Background(), fc)
	if err == nil {
		t.Fatal("expected New to fail when the connector cannot initialise")
	}
}

func TestProvider_BackgroundSyncReplacesStore(t *testing.T) {
	fc := newFakeConnector(syncpkg.Payload{Kind: syncpkg.PayloadData, Body: sampleDoc})
	p, err := New(context.Background(), fc)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Shutdown(context.Background())

	updated := `{"flags":{"welcome-banner":{"state":"DISABLED","defaultVariant":"on","variants":{"on":true,"off":false}}}}`
	fc.payloads <- syncpkg.Payload{Kind: syncpkg.PayloadData, Body: updated}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if d := p.ResolveBool("welcome-banner", flagmodel.EvaluationContext{}); d.Reason == flagmodel.ReasonDisabled {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("store was never updated by the background sync actor")
}

func TestProvider_Shutdown_StopsConnector(t *testing.T) {
	fc := newFakeConnector(syncpkg.Payload{Kind: syncpkg.PayloadData, Body: sampleDoc})
	p, err := New(context.Background(), fc)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	select {
	case <-fc.shutdown:
	default:
		t.Fatal("Shutdown did not signal the connector")
	}
}

func TestProvider_WithMetricsRecordsEvaluations(t *testing.T) {
	fc := newFakeConnector(syncpkg.Payload{Kind: syncpkg.PayloadData, Body: sampleDoc})
	m := metrics.New()
	p, err := New(context.Background(), fc, WithMetrics(m))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Shutdown(context.Background())

	evalCtx := flagmodel.EvaluationContext{TargetingKey: "user-1"}
	p.ResolveBool("welcome-banner", evalCtx)
	p.ResolveBool("welcome-banner", evalCtx)

	if got := testutil.ToFloat64(m.StoreInstallsTotal); got != 1 {
		t.Errorf("store installs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CacheMissesTotal); got != 1 {
		t.Errorf("cache misses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CacheHitsTotal); got != 1 {
		t.Errorf("cache hits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.EvaluationsTotal.WithLabelValues("CACHED")); got != 1 {
		t.Errorf("CACHED evaluations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.EvaluationsTotal.WithLabelValues("STATIC")); got != 1 {
		t.Errorf("STATIC evaluations = %v, want 1", got)
	}
}

func TestProvider_WithCacheOption(t *testing.T) {
	fc := newFakeConnector(syncpkg.Payload{Kind: syncpkg.PayloadData, Body: sampleDoc})
	p, err := New(context.Background(), fc, WithCache(cache.PolicyMem, 0, time.Minute))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Shutdown(context.Background())

	if d := p.ResolveBool("welcome-banner", flagmodel.EvaluationContext{}); d.Value != true {
		t.Fatalf("unexpected result: %+v", d)
	}
}
