package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var (
	LoginSuccessTotal     prometheus.Counter
	LoginFailureTotal     prometheus.Counter
	TokenPairsIssuedTotal prometheus.Counter
	TokensRefreshedTotal  prometheus.Counter
	SessionsRevokedTotal  prometheus.Counter
	LoginCodesIssuedTotal prometheus.Counter
)

// InitCustomMetrics initializes and registers the auth metrics. Call once
// at startup before serving traffic.
func InitCustomMetrics(reg prometheus.Registerer) {
	LoginSuccessTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "runestone_logins_success_total",
		Help: "Total number of successful logins.",
	})
	LoginFailureTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "runestone_logins_failure_total",
		Help: "Total number of failed logins.",
	})
	TokenPairsIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "runestone_token_pairs_issued_total",
		Help: "Total number of access/refresh token pairs issued.",
	})
	TokensRefreshedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "runestone_tokens_refreshed_total",
		Help: "Total number of access tokens rotated via refresh.",
	})
	SessionsRevokedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "runestone_sessions_revoked_total",
		Help: "Total number of sessions deleted by revocation.",
	})
	LoginCodesIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "runestone_login_codes_issued_total",
		Help: "Total number of one-time login codes emailed.",
	})

	if reg == nil {
		log.Error().Msg("Prometheus registry is nil, cannot register custom metrics.")
		return
	}
	for _, c := range []prometheus.Collector{
		LoginSuccessTotal, LoginFailureTotal, TokenPairsIssuedTotal,
		TokensRefreshedTotal, SessionsRevokedTotal, LoginCodesIssuedTotal,
	} {
		if err := reg.Register(c); err != nil {
			log.Warn().Err(err).Msg("Failed to register metric")
		}
	}
	log.Info().Msg("Custom Prometheus metrics registered.")
}
