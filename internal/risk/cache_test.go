package risk_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargowatch/cargowatch/internal/risk"
)

func TestCache_PutGet(t *testing.T) {
	cache := risk.NewCache(time.Minute)
	departure := time.Date(2026, 1, 15, 6, 0, 0, 0, time.UTC)

	assert.Nil(t, cache.Get("route-1", departure))

	assessment := &risk.RouteAssessment{RouteID: "route-1", DepartureTime: departure}
	cache.Put("route-1", departure, assessment)

	assert.Same(t, assessment, cache.Get("route-1", departure))
	assert.Nil(t, cache.Get("route-2", departure), "keys include route id")
	assert.Nil(t, cache.Get("route-1", departure.Add(time.Hour)), "keys include departure")
}

func TestCache_ReplacesWholeEntry(t *testing.T) {
	cache := risk.NewCache(time.Minute)
	departure := time.Now()

	first := &risk.RouteAssessment{Overall: risk.Assessment{OverallRisk: 10}}
	second := &risk.RouteAssessment{Overall: risk.Assessment{OverallRisk: 90}}

	cache.Put("route-1", departure, first)
	cache.Put("route-1", departure, second)

	got := cache.Get("route-1", departure)
	require.NotNil(t, got)
	assert.Same(t, second, got)
}

func TestCache_Expiry(t *testing.T) {
	cache := risk.NewCache(10 * time.Millisecond)
	departure := time.Now()

	cache.Put("route-1", departure, &risk.RouteAssessment{})
	require.NotNil(t, cache.Get("route-1", departure))

	time.Sleep(20 * time.Millisecond)
	assert.Nil(t, cache.Get("route-1", departure))
}

func TestCache_Invalidate(t *testing.T) {
	cache := risk.NewCache(time.Minute)
	departure := time.Now()

	cache.Put("route-1", departure, &risk.RouteAssessment{})
	cache.Invalidate("route-1", departure)

	assert.Nil(t, cache.Get("route-1", departure))
}
