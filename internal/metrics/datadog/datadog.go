// Package datadog implements a Datadog backend for the internal/metrics
// package.
//
// Observations are buffered in memory and submitted on a ticker (default
// once per minute) so long-running watch loops produce a time series rather
// than one spike at exit; Close performs a final flush for short one-shot
// sync runs. Buffers are reset on Flush even when submission fails, so a
// Datadog outage never blocks the sync path.
package datadog

import (
	"context"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"csvsync/internal/metrics"
)

// Options controls backend configuration.
type Options struct {
	// JobName becomes tag "job:<name>" on every metric; "csvsync" when empty.
	JobName string

	// Tags are extra Datadog tags (e.g. "env:prod").
	Tags []string

	// FlushEvery controls submission frequency; 60s when <= 0.
	FlushEvery time.Duration

	// Unexported test seams: deterministic clock/ticker and a fake submitter
	// so unit tests never touch the network.
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker
	submitter submitter
}

// submitter is the minimal slice of the Datadog SDK the backend needs,
// stubbed in tests.
type submitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// Backend implements metrics.Backend for Datadog.
type Backend struct {
	api submitter
	ctx context.Context

	flushEvery time.Duration
	stopCh     chan struct{}
	doneCh     chan struct{}

	baseTags  []string
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker

	mu       sync.Mutex
	counters map[string]float64
	samples  map[string][]float64
}

var _ metrics.Backend = (*Backend)(nil)

// NewBackend constructs the backend and starts its flush loop. Datadog
// credentials come from the environment (DD_API_KEY), as the SDK's default
// context expects; network errors surface from Flush, not from here.
func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	job := opts.JobName
	if job == "" {
		job = "csvsync"
	}
	flushEvery := opts.FlushEvery
	if flushEvery <= 0 {
		flushEvery = 60 * time.Second
	}

	baseTags := append([]string{envTag(), "job:" + job}, opts.Tags...)

	nowFn := opts.now
	if nowFn == nil {
		nowFn = time.Now
	}
	newTicker := opts.newTicker
	if newTicker == nil {
		newTicker = time.NewTicker
	}
	sub := opts.submitter
	if sub == nil {
		client := dd.NewAPIClient(dd.NewConfiguration())
		sub = datadogV2.NewMetricsApi(client)
	}

	b := &Backend{
		api:        sub,
		ctx:        dd.NewDefaultContext(parent),
		flushEvery: flushEvery,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		baseTags:   baseTags,
		now:        nowFn,
		newTicker:  newTicker,
		counters:   map[string]float64{},
		samples:    map[string][]float64{},
	}
	go b.loop()
	return b, nil
}

func envTag() string {
	for _, k := range []string{"ENV", "DD_ENV"} {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return "env:" + v
		}
	}
	return "env:unknown"
}

func (b *Backend) loop() {
	defer close(b.doneCh)

	t := b.newTicker(b.flushEvery)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			_ = b.Flush()
		case <-b.stopCh:
			return
		}
	}
}

// Close stops the flush loop and submits one final time. Close once.
func (b *Backend) Close() error {
	close(b.stopCh)
	<-b.doneCh
	return b.Flush()
}

func (b *Backend) IncCounter(name string, tags ...string) {
	b.AddCounter(name, 1, tags...)
}

func (b *Backend) AddCounter(name string, delta float64, tags ...string) {
	if delta <= 0 {
		return
	}
	k := key(name, tags)

	b.mu.Lock()
	b.counters[k] += delta
	b.mu.Unlock()
}

func (b *Backend) ObserveDuration(name string, seconds float64, tags ...string) {
	if seconds < 0 {
		return
	}
	k := key(name, tags)

	b.mu.Lock()
	b.samples[k] = append(b.samples[k], seconds)
	b.mu.Unlock()
}

// key encodes name plus sorted tags; decoded again in buildSeries.
func key(name string, tags []string) string {
	if len(tags) == 0 {
		return name
	}
	sorted := append([]string(nil), tags...)
	sort.Strings(sorted)
	return name + "\x00" + strings.Join(sorted, "\x00")
}

func splitKey(k string) (name string, tags []string) {
	parts := strings.Split(k, "\x00")
	return parts[0], parts[1:]
}

// Flush submits buffered metrics and resets the buffers, even on submission
// failure.
func (b *Backend) Flush() error {
	b.mu.Lock()
	counters, samples := b.counters, b.samples
	b.counters = map[string]float64{}
	b.samples = map[string][]float64{}
	b.mu.Unlock()

	if len(counters) == 0 && len(samples) == 0 {
		return nil
	}

	series := b.buildSeries(counters, samples, b.now().Unix())
	payload := datadogV2.MetricPayload{Series: series}
	_, _, err := b.api.SubmitMetrics(b.ctx, payload, *datadogV2.NewSubmitMetricsOptionalParameters())
	return err
}

// buildSeries is pure (no locks, clocks or network) so tests can assert on
// the exact payload.
func (b *Backend) buildSeries(counters map[string]float64, samples map[string][]float64, nowUnix int64) []datadogV2.MetricSeries {
	point := func(v float64) []datadogV2.MetricPoint {
		return []datadogV2.MetricPoint{
			{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(v)},
		}
	}
	tagged := func(extra []string) []string {
		return append(append([]string(nil), b.baseTags...), extra...)
	}

	series := make([]datadogV2.MetricSeries, 0, len(counters)+3*len(samples))

	for k, v := range counters {
		if v == 0 {
			continue
		}
		name, tags := splitKey(k)
		series = append(series, datadogV2.MetricSeries{
			Metric: name,
			Type:   datadogV2.METRICINTAKETYPE_COUNT.Ptr(),
			Points: point(v),
			Tags:   tagged(tags),
		})
	}

	for k, vals := range samples {
		if len(vals) == 0 {
			continue
		}
		name, tags := splitKey(k)
		sorted := append([]float64(nil), vals...)
		sort.Float64s(sorted)

		for _, q := range []struct {
			suffix string
			value  float64
		}{
			{".p50", percentile(sorted, 0.50)},
			{".p95", percentile(sorted, 0.95)},
			{".max", sorted[len(sorted)-1]},
		} {
			series = append(series, datadogV2.MetricSeries{
				Metric: name + q.suffix,
				Type:   datadogV2.METRICINTAKETYPE_GAUGE.Ptr(),
				Points: point(q.value),
				Tags:   tagged(tags),
			})
		}
	}

	return series
}

// percentile expects sorted input.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[int(p*float64(len(sorted)-1))]
}
