package updater

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Check outcomes, labeled by terminal status.
	updateChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chatterino",
		Subsystem: "updates",
		Name:      "checks_total",
		Help:      "Update checks performed, by result",
	}, []string{"result"})

	// Install outcomes, labeled by terminal status.
	updateInstalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chatterino",
		Subsystem: "updates",
		Name:      "installs_total",
		Help:      "Update installs attempted, by result",
	}, []string{"result"})

	updateStatusGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "chatterino",
		Subsystem: "updates",
		Name:      "status",
		Help:      "Current updater status (1 for the active status, 0 otherwise)",
	}, []string{"status"})
)

func recordStatus(s Status) {
	for _, known := range []Status{
		StatusIdle, StatusSearching, StatusNoUpdateAvailable,
		StatusUpdateAvailable, StatusSearchFailed, StatusDownloading,
		StatusDownloadFailed, StatusWriteFileFailed, StatusLaunchFailed,
	} {
		v := 0.0
		if known == s {
			v = 1.0
		}
		updateStatusGauge.WithLabelValues(string(known)).Set(v)
	}
}
