package telemetry

import (
	"math"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestClampRatio(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{-1, 0},
		{0, 0},
		{0.25, 0.25},
		{1, 1},
		{7, 1},
		{math.NaN(), 0},
	}
	for _, c := range cases {
		if got := clampRatio(c.in); got != c.want {
			t.Errorf("clampRatio(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestNewSampler_Description(t *testing.T) {
	cases := map[float64]string{
		0:   "AlwaysOffSampler",
		1:   "AlwaysOnSampler",
		0.5: "TraceIDRatioBased{0.5}",
		3:   "AlwaysOnSampler",
	}
	for ratio, want := range cases {
		desc := newSampler(ratio).Description()
		if !strings.HasPrefix(desc, "ParentBased{root:"+want) {
			t.Errorf("sampler(%v) = %q, want root %s", ratio, desc, want)
		}
	}
}

func TestNewResource_Version(t *testing.T) {
	res := newResource(Options{ServiceName: "yote-products", Version: "1.2.3"})

	got := map[attribute.Key]string{}
	for _, kv := range res.Attributes() {
		got[kv.Key] = kv.Value.Emit()
	}
	if got["service.name"] != "yote-products" || got["service.version"] != "1.2.3" {
		t.Fatalf("attributes = %v", got)
	}

	res = newResource(Options{ServiceName: "svc"})
	for _, kv := range res.Attributes() {
		if kv.Key == "service.version" {
			t.Fatalf("empty version must not be set")
		}
	}
}
