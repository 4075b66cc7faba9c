package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for clipwav. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	// Session metrics
	Sessions     *prometheus.CounterVec
	ClipDuration prometheus.Histogram
	ClipSize     prometheus.Histogram

	// Pipeline metrics
	DecodeFailures   *prometheus.CounterVec
	SalvageAttempts  *prometheus.CounterVec
	PipelineDuration prometheus.Histogram

	// Transcription metrics
	TranscriptionDuration prometheus.Histogram
	TranscriptionFailures prometheus.Counter
}

// New creates all metrics and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Sessions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clipwav_sessions_total",
			Help: "Capture sessions by outcome",
		}, []string{"outcome"}),
		ClipDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "clipwav_clip_duration_seconds",
			Help:    "Duration of encoded clips",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8), // 250ms to 32s
		}),
		ClipSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "clipwav_clip_size_bytes",
			Help:    "Size of encoded clips in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 12), // 1KB to ~4MB
		}),

		DecodeFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clipwav_decode_failures_total",
			Help: "Decode failures by declared container",
		}, []string{"container"}),
		SalvageAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clipwav_salvage_attempts_total",
			Help: "Raw PCM salvage attempts by result",
		}, []string{"result"}),
		PipelineDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "clipwav_pipeline_duration_seconds",
			Help:    "Time spent decoding and normalizing a capture",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		}),

		TranscriptionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "clipwav_transcription_duration_seconds",
			Help:    "Duration of transcription requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),
		TranscriptionFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "clipwav_transcription_failures_total",
			Help: "Total number of failed transcriptions",
		}),
	}
}

// RecordSession counts a finished session under outcome
// ("completed", "failed", "reset", "device_unavailable")
func (m *Metrics) RecordSession(outcome string) {
	if m == nil {
		return
	}
	m.Sessions.WithLabelValues(outcome).Inc()
}

// RecordClip records the size and duration of an encoded clip
func (m *Metrics) RecordClip(durationSeconds float64, sizeBytes int) {
	if m == nil {
		return
	}
	m.ClipDuration.Observe(durationSeconds)
	m.ClipSize.Observe(float64(sizeBytes))
}

func (m *Metrics) RecordDecodeFailure(container string) {
	if m == nil {
		return
	}
	m.DecodeFailures.WithLabelValues(container).Inc()
}

func (m *Metrics) RecordSalvage(ok bool) {
	if m == nil {
		return
	}
	result := "failed"
	if ok {
		result = "recovered"
	}
	m.SalvageAttempts.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordPipeline(durationSeconds float64) {
	if m == nil {
		return
	}
	m.PipelineDuration.Observe(durationSeconds)
}

// RecordTranscription records a transcription attempt
func (m *Metrics) RecordTranscription(durationSeconds float64, err error) {
	if m == nil {
		return
	}
	m.TranscriptionDuration.Observe(durationSeconds)
	if err != nil {
		m.TranscriptionFailures.Inc()
	}
}
