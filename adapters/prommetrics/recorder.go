package prommetrics

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder exposes ingestion counters and latency histograms through a
// prometheus registry. Metric families are created lazily on first use; a
// given metric name must always be recorded with the same tag keys.
type Recorder struct {
	mu         sync.Mutex
	registerer prometheus.Registerer
	namespace  string
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
}

type Option func(*Recorder)

func WithNamespace(namespace string) Option {
	return func(r *Recorder) {
		r.namespace = strings.TrimSpace(namespace)
	}
}

func New(registerer prometheus.Registerer, opts ...Option) *Recorder {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	recorder := &Recorder{
		registerer: registerer,
		counters:   map[string]*prometheus.CounterVec{},
		histograms: map[string]*prometheus.HistogramVec{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(recorder)
	}
	return recorder
}

func (r *Recorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	if r == nil || value <= 0 {
		return
	}
	vec := r.counterVec(name, labelKeys(tags))
	if vec == nil {
		return
	}
	vec.With(prometheus.Labels(normalizeTags(tags))).Add(float64(value))
}

func (r *Recorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	if r == nil {
		return
	}
	vec := r.histogramVec(name, labelKeys(tags))
	if vec == nil {
		return
	}
	vec.With(prometheus.Labels(normalizeTags(tags))).Observe(value)
}

func (r *Recorder) counterVec(name string, labels []string) *prometheus.CounterVec {
	r.mu.Lock()
	defer r.mu.Unlock()

	metricName := sanitizeMetricName(name)
	if vec, ok := r.counters[metricName]; ok {
		return vec
	}
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      metricName,
	}, labels)
	registered, ok := register(r.registerer, vec)
	if !ok {
		return nil
	}
	if existing, ok := registered.(*prometheus.CounterVec); ok {
		vec = existing
	}
	r.counters[metricName] = vec
	return vec
}

func (r *Recorder) histogramVec(name string, labels []string) *prometheus.HistogramVec {
	r.mu.Lock()
	defer r.mu.Unlock()

	metricName := sanitizeMetricName(name)
	if vec, ok := r.histograms[metricName]; ok {
		return vec
	}
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Name:      metricName,
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
	}, labels)
	registered, ok := register(r.registerer, vec)
	if !ok {
		return nil
	}
	if existing, ok := registered.(*prometheus.HistogramVec); ok {
		vec = existing
	}
	r.histograms[metricName] = vec
	return vec
}

func register(registerer prometheus.Registerer, collector prometheus.Collector) (prometheus.Collector, bool) {
	if err := registerer.Register(collector); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return already.ExistingCollector, true
		}
		return nil, false
	}
	return collector, true
}

func labelKeys(tags map[string]string) []string {
	if len(tags) == 0 {
		return nil
	}
	keys := make([]string, 0, len(tags))
	for key := range tags {
		keys = append(keys, sanitizeMetricName(key))
	}
	sort.Strings(keys)
	return keys
}

func normalizeTags(tags map[string]string) map[string]string {
	if len(tags) == 0 {
		return map[string]string{}
	}
	normalized := make(map[string]string, len(tags))
	for key, value := range tags {
		normalized[sanitizeMetricName(key)] = value
	}
	return normalized
}

func sanitizeMetricName(name string) string {
	var builder strings.Builder
	builder.Grow(len(name))
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == ':':
			builder.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				builder.WriteRune('_')
			}
			builder.WriteRune(r)
		default:
			builder.WriteRune('_')
		}
	}
	return builder.String()
}
