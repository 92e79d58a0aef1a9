package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Logins = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pulseops", Name: "auth_logins_total", Help: "Login attempts by mode (password, demo, oauth) and outcome."},
		[]string{"mode", "outcome"},
	)
	Registrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pulseops", Name: "auth_registrations_total", Help: "Registration attempts by mode and outcome."},
		[]string{"mode", "outcome"},
	)
	ProfilesProvisioned = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pulseops", Name: "profiles_provisioned_total", Help: "Default profiles created per role."},
		[]string{"role"},
	)
	ProvisioningFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "pulseops", Name: "profile_provisioning_failures_total", Help: "Provisioning attempts that failed and were swallowed by reconciliation."},
	)
	CallbackOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pulseops", Name: "oauth_callback_total", Help: "OAuth callback resolutions by final state."},
		[]string{"state"},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pulseops", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pulseops", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(Logins)
	reg.MustRegister(Registrations)
	reg.MustRegister(ProfilesProvisioned)
	reg.MustRegister(ProvisioningFailures)
	reg.MustRegister(CallbackOutcomes)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
}
