package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Render cache outcomes.
const (
	renderCacheHit      = "hit"
	renderCacheMiss     = "miss"
	renderCacheError    = "error"
	renderCacheDisabled = "disabled"
)

var rendersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "address_renders_total",
	Help: "Formatted address requests by render cache outcome.",
}, []string{"cache"})
