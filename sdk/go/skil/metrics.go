// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package skil

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type clientMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// observe records one request outcome. It is a no-op unless
// c.Registry is set.
func (c *Client) observe(endpoint string, resp *http.Response, err error, elapsed time.Duration) {
	m := c.clientMetrics()
	if m == nil {
		return
	}
	code := "error"
	if err == nil && resp != nil {
		code = strconv.Itoa(resp.StatusCode)
	}
	m.requests.WithLabelValues(endpoint, code).Inc()
	m.duration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

func (c *Client) clientMetrics() *clientMetrics {
	if c.Registry == nil {
		return nil
	}
	c.metricsOnce.Do(func() {
		m := &clientMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "skil",
				Subsystem: "client",
				Name:      "requests_total",
				Help:      "Number of API requests sent, by endpoint and response status.",
			}, []string{"endpoint", "code"}),
			duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "skil",
				Subsystem: "client",
				Name:      "request_duration_seconds",
				Help:      "API request latency, by endpoint.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"endpoint"}),
		}
		c.Registry.MustRegister(m.requests, m.duration)
		c.metrics = m
	})
	return c.metrics
}
