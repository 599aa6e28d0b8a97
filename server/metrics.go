/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

/*
Metrics holds the Prometheus metrics of a server. All metrics are registered
with a registry which is owned by the server.
*/
type Metrics struct {
	Registry       *prometheus.Registry     // Registry of all metrics
	reloads        *prometheus.CounterVec   // Reloads by result
	reloadDuration *prometheus.HistogramVec // Duration of reloads
	snapshotBytes  *prometheus.GaugeVec     // Size of the last snapshot of a graph
	queries        *prometheus.CounterVec   // Executed queries by kind and result
}

/*
NewMetrics creates and registers all metrics of a server.
*/
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eliasgraph_reloads_total",
			Help: "Total reloads of graphs",
		}, []string{"result"}),
		reloadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "eliasgraph_reload_duration_seconds",
			Help:    "Duration of graph reloads",
			Buckets: prometheus.DefBuckets,
		}, []string{"result"}),
		snapshotBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "eliasgraph_snapshot_size_bytes",
			Help: "Size of the last written snapshot of a graph",
		}, []string{"graph"}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eliasgraph_queries_total",
			Help: "Total executed queries",
		}, []string{"kind", "result"}),
	}

	m.Registry.MustRegister(m.reloads)
	m.Registry.MustRegister(m.reloadDuration)
	m.Registry.MustRegister(m.snapshotBytes)
	m.Registry.MustRegister(m.queries)

	return m
}

/*
Handler returns an HTTP handler which exposes the metrics.
*/
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func (m *Metrics) onReload(d time.Duration, err error) {
	r := result(err)
	m.reloads.WithLabelValues(r).Inc()
	m.reloadDuration.WithLabelValues(r).Observe(d.Seconds())
}

func (m *Metrics) onQuery(readOnly bool, err error) {
	kind := "write"
	if readOnly {
		kind = "read"
	}
	m.queries.WithLabelValues(kind, result(err)).Inc()
}

func (m *Metrics) onSnapshot(graph string, size int) {
	m.snapshotBytes.WithLabelValues(graph).Set(float64(size))
}

func (m *Metrics) onDelete(graph string) {
	m.snapshotBytes.DeleteLabelValues(graph)
}

/*
result returns the result label of an operation.
*/
func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
