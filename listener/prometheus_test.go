// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package listener

import (
	"net/http/httptest"
	"testing"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	for input, expected := range map[string]string{
		"":                   "",
		"datagrams_received": "datagrams_received",
		"storj.io/udplisten": "storj_io_udplisten",
		"9lives":             "_9lives",
		"a-b c":              "a_b_c",
	} {
		require.Equal(t, expected, sanitize(input), input)
	}
}

func TestPrometheusEndpoint(t *testing.T) {
	registry := monkit.NewRegistry()
	registry.ScopeNamed("storj.io/udplisten/listener").Counter("datagrams_received").Inc(3)

	endpoint := NewPrometheusEndpoint(registry)

	rec := httptest.NewRecorder()
	endpoint.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	require.Contains(t, body, "# TYPE datagrams_received gauge\n")
	require.Contains(t, body, `datagrams_received{scope="storj.io/udplisten/listener",field="value"} 3`)
}
