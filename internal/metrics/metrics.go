package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Provisioning metrics. Defined in a standalone package so the reconcile,
// ban and gate packages can record outcomes without importing each other.

var (
	RegistrationOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "admin_registration_outcomes_total",
		Help: "Terminal results of admin register-or-recover attempts",
	}, []string{"result"})

	BanDenials = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "admin_ban_denials_total",
		Help: "Sign-in or recovery attempts denied because the account is banned",
	})

	ProfileSyncFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "profile_sync_failures_total",
		Help: "Best-effort profile merge-writes that timed out or failed",
	})

	PanelUnlocks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "panel_unlock_attempts_total",
		Help: "Panel unlock attempts by result",
	}, []string{"result"})
)

// Register registers the provisioning metrics on the given registry, or
// the default one if nil.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		RegistrationOutcomes,
		BanDenials,
		ProfileSyncFailures,
		PanelUnlocks,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
