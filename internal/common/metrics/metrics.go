package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CommandsHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalbox_commands_handled_total",
			Help: "Total number of commands handled by the bot",
		},
		[]string{"command", "surface"},
	)

	CommandsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalbox_commands_failed_total",
			Help: "Total number of commands that ended in an error",
		},
		[]string{"command", "error_code"},
	)

	RemindersScheduled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "signalbox_reminders_scheduled_total",
			Help: "Total number of reminders scheduled",
		},
	)

	RemindersFired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "signalbox_reminders_fired_total",
			Help: "Total number of reminder timers that fired",
		},
	)

	ApplicationsDecided = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalbox_applications_decided_total",
			Help: "Total number of application decisions by moderators",
		},
		[]string{"decision"},
	)

	PersistenceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalbox_persistence_failures_total",
			Help: "Total number of swallowed store write failures",
		},
		[]string{"store"},
	)

	WhitelistCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalbox_whitelist_calls_total",
			Help: "Total number of RCON whitelist calls by outcome",
		},
		[]string{"outcome"},
	)
)
