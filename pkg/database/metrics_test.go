package database

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func describeAll(c prometheus.Collector) string {
	ch := make(chan *prometheus.Desc, 32)
	c.Describe(ch)
	close(ch)

	var sb strings.Builder
	for d := range ch {
		sb.WriteString(d.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

func TestPoolStatsCollector_Describe(t *testing.T) {
	c := NewPoolStatsCollector(nil, "recipe-service")
	var _ prometheus.Collector = c

	descs := describeAll(c)
	require.Equal(t, 8, strings.Count(descs, "\n"))

	for _, name := range []string{
		"db_pool_acquired_connections",
		"db_pool_idle_connections",
		"db_pool_total_connections",
		"db_pool_max_connections",
		"db_pool_acquire_count_total",
		"db_pool_acquire_duration_seconds_total",
		"db_pool_canceled_acquire_count_total",
		"db_pool_empty_acquire_count_total",
	} {
		assert.Contains(t, descs, `"`+name+`"`)
	}
}

func TestTxRetriesCollector_Describe(t *testing.T) {
	assert.Contains(t, describeAll(TxRetriesCollector()), "db_tx_retries_total")
}

func TestRegisterPoolMetrics_TwiceOnSeparateRegistries(t *testing.T) {
	require.NoError(t, RegisterPoolMetrics(prometheus.NewRegistry(), nil, "a"))
	require.NoError(t, RegisterPoolMetrics(prometheus.NewRegistry(), nil, "b"))
}
