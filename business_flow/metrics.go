package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	documentsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docflow_documents_created_total",
			Help: "Documents created, partitioned by type",
		},
		[]string{"type"},
	)

	documentTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docflow_document_transitions_total",
			Help: "Document status transitions, partitioned by type and statuses",
		},
		[]string{"type", "from", "to"},
	)

	documentViewsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docflow_document_views_total",
			Help: "Views recorded through tracking links",
		},
	)

	signatureResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docflow_signature_responses_total",
			Help: "Signature responses, partitioned by outcome",
		},
		[]string{"outcome"},
	)

	signatureRemindersTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docflow_signature_reminders_total",
			Help: "Signature reminders sent",
		},
	)

	// ReminderItems is refreshed by the reminder scheduler
	ReminderItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "docflow_reminder_items",
			Help: "Items currently needing attention, partitioned by kind",
		},
		[]string{"kind"},
	)
)
