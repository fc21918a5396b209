package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveConfigDefaults(t *testing.T) {
	cfg, err := ResolveConfig()
	require.NoError(t, err)

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "dbbridge", cfg.ServiceName)
	assert.Equal(t, "localhost:4317", cfg.OTLPEndpoint)
	assert.Equal(t, 1.0, cfg.TraceSamplingRate)
}

func TestResolveConfigOverrides(t *testing.T) {
	t.Setenv("DBBRIDGE_OTEL_ENABLED", "true")
	t.Setenv("DBBRIDGE_OTEL_SERVICE_NAME", "dbbridge-staging")
	t.Setenv("DBBRIDGE_OTEL_ENDPOINT", "collector:4317")
	t.Setenv("DBBRIDGE_OTEL_TRACE_SAMPLING_RATIO", "2.5")

	cfg, err := ResolveConfig()
	require.NoError(t, err)

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "dbbridge-staging", cfg.ServiceName)
	assert.Equal(t, "collector:4317", cfg.OTLPEndpoint)

	// Ratios clamp into [0, 1].
	assert.Equal(t, 1.0, cfg.TraceSamplingRate)
}

func TestResolveConfigEnvSubstitution(t *testing.T) {
	t.Setenv("TEAM", "data-eng")
	t.Setenv("DBBRIDGE_OTEL_SERVICE_NAME", "{{ env.TEAM }}-dbbridge")

	cfg, err := ResolveConfig()
	require.NoError(t, err)
	assert.Equal(t, "data-eng-dbbridge", cfg.ServiceName)
}

func TestResolveConfigMissingEnvVar(t *testing.T) {
	t.Setenv("DBBRIDGE_OTEL_SERVICE_NAME", "{{ env.NOPE_NOT_SET }}-dbbridge")

	_, err := ResolveConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOPE_NOT_SET")
}

func TestRedactAttributeValue(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{key: "db.connection.name", want: "visible"},
		{key: "db.password", want: "[REDACTED]"},
		{key: "DSN", want: "[REDACTED]"},
		{key: "api_key", want: "[REDACTED]"},
		{key: "http.route", want: "visible"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, RedactAttributeValue(tt.key, "visible"))
		})
	}
}

func TestStringifyAttrsRedacts(t *testing.T) {
	out := StringifyAttrs(map[string]any{
		"db.connection.name": "dwh",
		"dsn":                "db1:1521/SVC",
		"attempts":           3,
		"success":            true,
	})

	assert.Equal(t, "dwh", out["db.connection.name"])
	assert.Equal(t, "[REDACTED]", out["dsn"])
	assert.Equal(t, "3", out["attempts"])
	assert.Equal(t, "true", out["success"])
}
