// Package metrics serves the Prometheus scrape endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Config struct {
	Path string
}

type Provider struct {
	handler http.Handler
}

// Init wires the process collectors into the default registry, which
// is also where the observability package registers its collectors.
func Init(_ Config) *Provider {
	// Re-registering on restart-in-tests is fine: AlreadyRegisteredError
	// is the only possible failure and is ignored.
	_ = prometheus.Register(collectors.NewGoCollector())
	_ = prometheus.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &Provider{
		handler: promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{}),
	}
}

func (p *Provider) Handler() http.Handler { return p.handler }
