package usecase

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventsIngested = promauto.NewCounter(prometheus.CounterOpts{
	Name: "slowmode_events_ingested_total",
	Help: "Number of human messages recorded into the event cache",
})

var ticksTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "slowmode_ticks_total",
	Help: "Number of controller sweeps",
})

var adjustmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "slowmode_adjustments_total",
	Help: "Number of slowmode changes written by the controller",
}, []string{"direction"})

var writeErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "slowmode_write_errors_total",
	Help: "Number of failed channel reads or writes",
}, []string{"kind"})

var reportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "slowmode_reports_total",
	Help: "Number of activity reports by outcome",
}, []string{"result"})

var overridesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "slowmode_overrides_total",
	Help: "Number of override control presses by outcome",
}, []string{"result"})

var surveysTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "slowmode_surveys_total",
	Help: "Number of calibration surveys by outcome",
}, []string{"result"})
