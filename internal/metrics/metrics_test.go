package metrics

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terraincognita07/medjournal/internal/services"
)

func counterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			matched := true
			for _, pair := range metric.GetLabel() {
				if want, ok := labels[pair.GetName()]; ok && want != pair.GetValue() {
					matched = false
				}
			}
			if matched {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestNotifyCountsChangesByKind(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := New(registry)

	journalID := uuid.New()
	metrics.Notify(services.JournalChange{JournalID: journalID, Kind: services.ChangeIntakes})
	metrics.Notify(services.JournalChange{JournalID: journalID, Kind: services.ChangeIntakes})
	metrics.Notify(services.JournalChange{JournalID: journalID, Kind: services.ChangeEntries})

	assert.Equal(t, 2.0, counterValue(t, registry, "medjournal_journal_changes_total", map[string]string{"kind": "intakes"}))
	assert.Equal(t, 1.0, counterValue(t, registry, "medjournal_journal_changes_total", map[string]string{"kind": "entries"}))
}

func TestObserveRequestAndExport(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := New(registry)

	metrics.ObserveRequest("GET", "/api/journals/:journal/quick-log", 200, 20*time.Millisecond)
	metrics.ObserveExport("csv")

	assert.Equal(t, 1.0, counterValue(t, registry, "medjournal_http_requests_total", map[string]string{"status": "200"}))
	assert.Equal(t, 1.0, counterValue(t, registry, "medjournal_exports_total", map[string]string{"format": "csv"}))
}
