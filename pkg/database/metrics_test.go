package database

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolStatsCollector_Describe(t *testing.T) {
	c := NewPoolStatsCollector(nil, "address")

	ch := make(chan *prometheus.Desc, 16)
	c.Describe(ch)
	close(ch)

	var descs []string
	for d := range ch {
		descs = append(descs, d.String())
	}
	all := strings.Join(descs, "\n")

	require.Len(t, descs, 8)
	for _, name := range []string{
		"db_pool_acquired_connections",
		"db_pool_idle_connections",
		"db_pool_total_connections",
		"db_pool_max_connections",
		"db_pool_acquire_count_total",
		"db_pool_acquire_duration_seconds_total",
		"db_pool_empty_acquire_count_total",
		"db_pool_canceled_acquire_count_total",
	} {
		assert.Contains(t, all, `fqName: "`+name+`"`)
	}
}

func TestRegisterPoolMetrics(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()

	require.NoError(t, RegisterPoolMetrics(reg, nil, "address"))

	err := RegisterPoolMetrics(reg, nil, "address")
	var already prometheus.AlreadyRegisteredError
	assert.ErrorAs(t, err, &already)
}
