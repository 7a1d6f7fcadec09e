package metrics

import "github.com/prometheus/client_golang/prometheus"

// Label values of applied rendezvous updates.
const (
	Add    = "add"
	Remove = "remove"
)

// Collectors for rendezvous client metrics.
var (
	RendezvousConnectsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rendezvous_connects_total",
		Help: "Cumulative number of connections established to a rendezvous server.",
	})
	RendezvousUpdatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rendezvous_updates_total",
		Help: "Cumulative number of add / remove updates applied to the rendezvous table.",
	}, []string{"kind"})
	RendezvousProcesses = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rendezvous_processes",
		Help: "Current number of processes in the rendezvous table.",
	})
)

// RendezvousClientCollectors returns the collectors maintained by a
// rendezvous client, for registration with a prometheus.Registerer.
func RendezvousClientCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		RendezvousConnectsTotal,
		RendezvousUpdatesTotal,
		RendezvousProcesses,
	}
}
