// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package listener

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/spacemonkeygo/monkit/v3"
)

// PrometheusEndpoint exposes a monkit registry in the Prometheus text format.
type PrometheusEndpoint struct {
	registry *monkit.Registry
}

var _ http.Handler = (*PrometheusEndpoint)(nil)

// NewPrometheusEndpoint creates an endpoint for registry.
func NewPrometheusEndpoint(registry *monkit.Registry) *PrometheusEndpoint {
	return &PrometheusEndpoint{registry: registry}
}

type sample struct {
	labels string
	value  float64
}

// ServeHTTP writes every series as a gauge. Samples of one measurement are
// written as a single group, and groups are sorted by name.
func (p *PrometheusEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	groups := map[string][]sample{}
	p.registry.Stats(func(key monkit.SeriesKey, field string, val float64) {
		var labels []string
		for tag, tagVal := range key.Tags.All() {
			labels = append(labels, fmt.Sprintf("%s=%q", sanitize(tag), tagVal))
		}
		labels = append(labels, fmt.Sprintf("field=%q", field))

		name := sanitize(key.Measurement)
		groups[name] = append(groups[name], sample{labels: strings.Join(labels, ","), value: val})
	})

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	for _, name := range names {
		_, _ = fmt.Fprintf(w, "# TYPE %s gauge\n", name)
		for _, s := range groups[name] {
			_, _ = fmt.Fprintf(w, "%s{%s} %g\n", name, s.labels, s.value)
		}
	}
}

// sanitize turns val into a valid metric or label name.
func sanitize(val string) string {
	var b strings.Builder
	for i, r := range val {
		if i == 0 && r >= '0' && r <= '9' {
			b.WriteByte('_')
		}
		if r < 128 && (r == '_' || r >= '0' && r <= '9' || (r|0x20) >= 'a' && (r|0x20) <= 'z') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
