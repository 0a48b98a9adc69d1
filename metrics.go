package scribeline

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type siteMetrics struct {
	wordpressFailures prometheus.Counter
}

func newSiteMetrics(reg prometheus.Registerer) *siteMetrics {
	m := &siteMetrics{
		wordpressFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scribeline_wordpress_fetch_failures_total",
			Help: "WordPress GraphQL requests that failed and returned no data.",
		}),
	}
	reg.MustRegister(
		m.wordpressFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (a *App) metricsHandler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))
}
