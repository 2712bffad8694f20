package otel

import (
	"context"
	"errors"
	"fmt"

	"github.com/dia-accounts/dia"
	"github.com/dia-accounts/dia/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// Source is satisfied by *dia.Engine.
type Source interface {
	MetricsSnapshot() dia.MetricsSnapshot
	AuditDropped() uint64
}

type counter struct {
	id         dia.MetricID
	instrument metric.Int64ObservableCounter
}

type histogram struct {
	id      dia.MetricID
	buckets [8]metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

type Exporter struct {
	source       Source
	registration metric.Registration
	counters     []counter
	histograms   []histogram
	auditDropped metric.Int64ObservableCounter
}

// New registers the engine instruments on meter. Close unregisters them.
func New(meter metric.Meter, source Source) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{
		source:     source,
		counters:   make([]counter, 0, len(internaldefs.CounterDefs)),
		histograms: make([]histogram, 0, len(internaldefs.HistogramDefs)),
	}
	observables := make([]metric.Observable, 0, len(internaldefs.CounterDefs)+9*len(internaldefs.HistogramDefs)+1)

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", def.Name, err)
		}
		e.counters = append(e.counters, counter{id: def.ID, instrument: ins})
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		h := histogram{id: def.ID}
		for i, suffix := range internaldefs.HistogramBoundSuffix {
			name := def.Name + "_bucket_le_" + suffix
			ins, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative bucket count of "+def.Name+"."))
			if err != nil {
				return nil, fmt.Errorf("create bucket gauge %s: %w", name, err)
			}
			h.buckets[i] = ins
			observables = append(observables, ins)
		}
		ins, err := meter.Int64ObservableGauge(def.Name+"_count", metric.WithDescription("Sample count of "+def.Name+"."))
		if err != nil {
			return nil, fmt.Errorf("create count gauge %s_count: %w", def.Name, err)
		}
		h.count = ins
		observables = append(observables, ins)
		e.histograms = append(e.histograms, h)
	}

	dropped, err := meter.Int64ObservableCounter(internaldefs.AuditDroppedName, metric.WithDescription(internaldefs.AuditDroppedHelp))
	if err != nil {
		return nil, fmt.Errorf("create counter %s: %w", internaldefs.AuditDroppedName, err)
	}
	e.auditDropped = dropped
	observables = append(observables, dropped)

	registration, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = registration
	return e, nil
}

func (e *Exporter) observe(_ context.Context, observer metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	for _, c := range e.counters {
		observer.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]))
	}
	for _, h := range e.histograms {
		raw, ok := snapshot.Histograms[h.id]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		for i, v := range cumulative {
			observer.ObserveInt64(h.buckets[i], int64(v))
		}
		observer.ObserveInt64(h.count, int64(cumulative[len(cumulative)-1]))
	}
	observer.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
