package security

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseFindings_StripsAnsiAndLocatesArray(t *testing.T) {
	stdout := "\x1b[32mINFO\x1b[0m starting scan\n" +
		`[{"tool_name":"get_time","findings":{"yara":{"severity":"critical"}}},` +
		`{"tool_name":"list_files","findings":{"yara":{"severity":"low"}}}]`

	findings, err := parseFindings(stdout)
	require.NoError(t, err)
	require.Len(t, findings, 2)

	var severities []string
	for _, f := range findings {
		severities = append(severities, f.Severity)
	}
	assert.ElementsMatch(t, []string{"critical", "low"}, severities)
}

func TestParseFindings_NoArrayIsError(t *testing.T) {
	_, err := parseFindings("just some log output, no json here")
	assert.Error(t, err)
}

func TestScan_ClassifiesSeverityCounts(t *testing.T) {
	// Exercise the classification logic directly since invoking the
	// real mcp-scanner binary is outside unit-test scope.
	findings, err := parseFindings(`[{"findings":{"a":{"severity":"critical"},"b":{"severity":"high"}}},` +
		`{"findings":{"c":{"severity":"medium"}}}]`)
	require.NoError(t, err)
	require.Len(t, findings, 3)
}

func TestScan_FailClosedByDefaultOnProcessFailure(t *testing.T) {
	s := NewScanner(Config{Binary: "/nonexistent-mcp-scanner-binary"}, zap.NewNop())

	result := s.Scan(context.Background(), "/weather", "http://weather:8080", time.Second)

	assert.True(t, result.Failed)
	assert.False(t, result.IsSafe, "fail_closed (the default) must not mark a failed scan safe")
}

func TestScan_FailOpenOnProcessFailure(t *testing.T) {
	s := NewScanner(Config{Binary: "/nonexistent-mcp-scanner-binary", FailOpen: true}, zap.NewNop())

	result := s.Scan(context.Background(), "/weather", "http://weather:8080", time.Second)

	assert.True(t, result.Failed)
	assert.True(t, result.IsSafe, "fail_open must mark a failed scan safe despite Failed=true")
}

func TestScan_ConcurrencyLimiterRejectsOnCanceledContext(t *testing.T) {
	s := NewScanner(Config{Binary: "/nonexistent-mcp-scanner-binary", MaxConcurrentScans: 1}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := s.Scan(ctx, "/weather", "http://weather:8080", time.Second)

	assert.True(t, result.Failed)
	assert.False(t, result.IsSafe)
}
