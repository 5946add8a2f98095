// Package metrics exposes runtime counters via expvar.
package metrics

import "expvar"

var (
	SubmitsTotal           = expvar.NewInt("submits_total")
	SubmitFailures         = expvar.NewInt("submit_failures")
	ResamplingsStarted     = expvar.NewInt("resamplings_started")
	ResamplingsCompleted   = expvar.NewInt("resamplings_completed")
	ResamplingsFailed      = expvar.NewInt("resamplings_failed")
	RetrievalsTotal        = expvar.NewInt("retrievals_total")
	NotificationsPublished = expvar.NewInt("notifications_published")
	PresignsIssued         = expvar.NewInt("presigns_issued")
)
