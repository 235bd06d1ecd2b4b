// Package prometheus exposes engine counters as a prometheus.Collector.
//
// Values are read from a MetricsSnapshot at scrape time; nothing is
// recorded twice.
package prometheus
