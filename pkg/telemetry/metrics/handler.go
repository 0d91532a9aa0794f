package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	scrapeTimeout      = 10 * time.Second
	maxScrapesInFlight = 4
)

// Handler serves the collector's registry in the Prometheus exposition
// format. Scrapes are themselves counted in
// promhttp_metric_handler_requests_total on the same registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(c.registry, promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics:   true,
		ErrorHandling:       promhttp.ContinueOnError,
		Timeout:             scrapeTimeout,
		MaxRequestsInFlight: maxScrapesInFlight,
		Registry:            c.registry,
	}))
}
