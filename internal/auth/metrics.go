// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import "github.com/prometheus/client_golang/prometheus"

// Login results.
const (
	LoginSuccess            = "success"
	LoginInvalidCredentials = "invalid_credentials"
	LoginError              = "error"
)

// LoginAttempts counts login attempts by result.
// Use RegisterMetrics to register this with a Prometheus registry.
var LoginAttempts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gatehouse_logins_total",
		Help: "Total number of login attempts",
	},
	[]string{"result"},
)

// PasswordResetRequests counts reset requests that produced a token.
var PasswordResetRequests = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "gatehouse_password_reset_requests_total",
		Help: "Total number of password reset tokens issued",
	},
)

// RegisterMetrics registers auth metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(LoginAttempts)
	reg.MustRegister(PasswordResetRequests)
}

func recordLogin(result string) {
	LoginAttempts.WithLabelValues(result).Inc()
}
