// Package metrics holds the Prometheus registry shared by tidy components.
// A CLI process has no scrape endpoint, so the registry is written to a
// node-exporter textfile when the process exits.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry collects every tidy metric. It is separate from the default
// registerer so tests and embedders see only tidy series.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(collectors.NewGoCollector())
}

// WriteTextfile atomically writes the current registry to path in the
// Prometheus text exposition format.
func WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
