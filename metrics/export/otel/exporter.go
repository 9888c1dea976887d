package otel

import (
	"context"
	"errors"
	"fmt"

	goCred "github.com/MrEthical07/goCred"
	"github.com/MrEthical07/goCred/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrNilMeter is returned when no meter is supplied.
	ErrNilMeter = errors.New("nil meter")
	// ErrNilSource is returned when no engine or snapshot source is supplied.
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() goCred.MetricsSnapshot
	AuditDropped() uint64
}

type counter struct {
	id  goCred.MetricID
	ins metric.Int64ObservableCounter
}

// histogram reports cumulative bucket counts on one gauge, one point per
// "le" attribute, next to a total count gauge.
type histogram struct {
	id      goCred.MetricID
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
	les     []metric.ObserveOption
}

// Exporter observes engine snapshots on every collection.
type Exporter struct {
	source       metricsSource
	registration metric.Registration
	counters     []counter
	histograms   []histogram
	auditDropped metric.Int64ObservableCounter
}

// NewExporter binds engine metrics to meter.
func NewExporter(meter metric.Meter, engine *goCred.Engine) (*Exporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewExporterFromSource(meter, engine)
}

// NewExporterFromSource binds any snapshot source to meter.
func NewExporterFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{source: source}
	observables, err := e.instrument(meter)
	if err != nil {
		return nil, err
	}

	reg, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = reg
	return e, nil
}

func (e *Exporter) instrument(meter metric.Meter) ([]metric.Observable, error) {
	var observables []metric.Observable

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", def.Name, err)
		}
		e.counters = append(e.counters, counter{id: def.ID, ins: ins})
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		buckets, err := meter.Int64ObservableGauge(def.Name+"_bucket",
			metric.WithDescription(def.Help+" Cumulative count per upper bound."),
		)
		if err != nil {
			return nil, fmt.Errorf("histogram %s: %w", def.Name, err)
		}
		count, err := meter.Int64ObservableGauge(def.Name+"_count",
			metric.WithDescription(def.Help+" Total samples."),
		)
		if err != nil {
			return nil, fmt.Errorf("histogram %s: %w", def.Name, err)
		}

		les := make([]metric.ObserveOption, len(internaldefs.HistogramUpperBounds)+1)
		for i := range les {
			les[i] = metric.WithAttributeSet(attribute.NewSet(attribute.String("le", internaldefs.BucketLabel(i))))
		}
		e.histograms = append(e.histograms, histogram{id: def.ID, buckets: buckets, count: count, les: les})
		observables = append(observables, buckets, count)
	}

	dropped, err := meter.Int64ObservableCounter(internaldefs.AuditDroppedName,
		metric.WithDescription(internaldefs.AuditDroppedHelp),
	)
	if err != nil {
		return nil, fmt.Errorf("counter %s: %w", internaldefs.AuditDroppedName, err)
	}
	e.auditDropped = dropped
	return append(observables, dropped), nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()
	for _, c := range e.counters {
		o.ObserveInt64(c.ins, int64(snap.Counters[c.id]))
	}
	for _, h := range e.histograms {
		cum := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[h.id]))
		for i, opt := range h.les {
			o.ObserveInt64(h.buckets, int64(cum[i]), opt)
		}
		o.ObserveInt64(h.count, int64(cum[len(cum)-1]))
	}
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the callback. Instruments stay registered with the
// meter but stop reporting.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
