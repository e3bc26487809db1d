package service

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"voting-ledger/ledger"
)

const metricsNamespace = "voting"

// MetricsCollector tracks performance metrics for different operations and
// exports them to Prometheus.
type MetricsCollector struct {
	mu                    sync.RWMutex
	registrationStartTime time.Time
	registrationEndTime   time.Time
	registrationCount     int
	registrationTotalTime time.Duration

	votingStartTime time.Time
	votingEndTime   time.Time
	votingCount     int
	votingTotalTime time.Duration

	countingStartTime      time.Time
	countingEndTime        time.Time
	countingCount          int
	countingProcessingTime time.Duration

	votesCast     *prometheus.CounterVec
	votesRejected *prometheus.CounterVec
	castDuration  prometheus.Histogram
	registrations prometheus.Counter
	mirrorOps     *prometheus.CounterVec
	mirrorHealthy prometheus.Gauge
	smsDeliveries *prometheus.CounterVec
}

// OperationMetrics contains timing information for an operation
type OperationMetrics struct {
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	Count          int       `json:"count"`
	ProcessingTime int64     `json:"processing_time_ms"`
}

// MetricsResponse provides the metrics for all operations
type MetricsResponse struct {
	Registration OperationMetrics `json:"registration"`
	Voting       OperationMetrics `json:"voting"`
	Counting     OperationMetrics `json:"counting"`
}

// NewMetricsCollector creates a new metrics collector and registers its
// Prometheus series with reg.
func NewMetricsCollector(reg prometheus.Registerer) *MetricsCollector {
	mc := &MetricsCollector{
		votesCast: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "votes_cast_total",
			Help:      "Votes stored in the primary store, by mirror outcome.",
		}, []string{"mirror"}),
		votesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "votes_rejected_total",
			Help:      "Cast vote requests that did not store a vote, by reason.",
		}, []string{"reason"}),
		castDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "cast_duration_seconds",
			Help:      "Time taken to cast a vote.",
			Buckets:   prometheus.DefBuckets,
		}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "voter_registrations_total",
			Help:      "Voters registered.",
		}),
		mirrorOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "mirror_operations_total",
			Help:      "Mirror store operations, by operation and result.",
		}, []string{"op", "result"}),
		mirrorHealthy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "mirror_healthy",
			Help:      "1 when the last mirror operation succeeded.",
		}),
		smsDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sms_deliveries_total",
			Help:      "SMS dispatches, by gateway and result.",
		}, []string{"gateway", "result"}),
	}

	if reg != nil {
		reg.MustRegister(
			mc.votesCast,
			mc.votesRejected,
			mc.castDuration,
			mc.registrations,
			mc.mirrorOps,
			mc.mirrorHealthy,
			mc.smsDeliveries,
		)
	}
	return mc
}

// ObserveMirror implements ledger.MirrorObserver.
func (mc *MetricsCollector) ObserveMirror(op string, err error) {
	if err != nil {
		mc.mirrorOps.WithLabelValues(op, "error").Inc()
		mc.mirrorHealthy.Set(0)
		return
	}
	mc.mirrorOps.WithLabelValues(op, "ok").Inc()
	mc.mirrorHealthy.Set(1)
}

// RecordRegistration adds one registration taking duration
func (mc *MetricsCollector) RecordRegistration(start time.Time, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if mc.registrationCount == 0 {
		mc.registrationStartTime = start
	}
	mc.registrationCount++
	mc.registrationEndTime = start.Add(duration)
	mc.registrationTotalTime += duration

	mc.registrations.Inc()
}

// RecordVote adds one stored vote taking duration
func (mc *MetricsCollector) RecordVote(start time.Time, duration time.Duration, outcome ledger.MirrorOutcome) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if mc.votingCount == 0 {
		mc.votingStartTime = start
	}
	mc.votingCount++
	mc.votingEndTime = start.Add(duration)
	mc.votingTotalTime += duration

	mc.votesCast.WithLabelValues(string(outcome)).Inc()
	mc.castDuration.Observe(duration.Seconds())
}

// RecordRejectedVote counts a cast request that stored nothing
func (mc *MetricsCollector) RecordRejectedVote(reason string) {
	mc.votesRejected.WithLabelValues(reason).Inc()
}

// RecordCounting records one tally computation
func (mc *MetricsCollector) RecordCounting(start time.Time, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.countingStartTime = start
	mc.countingEndTime = start.Add(duration)
	mc.countingCount++
	mc.countingProcessingTime = duration
}

// RecordDelivery counts an SMS dispatch
func (mc *MetricsCollector) RecordDelivery(gateway string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	mc.smsDeliveries.WithLabelValues(gateway, result).Inc()
}

// GetMetrics returns current metrics for all operations
func (mc *MetricsCollector) GetMetrics() MetricsResponse {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	return MetricsResponse{
		Registration: OperationMetrics{
			StartTime:      mc.registrationStartTime,
			EndTime:        mc.registrationEndTime,
			Count:          mc.registrationCount,
			ProcessingTime: mc.registrationTotalTime.Milliseconds(),
		},
		Voting: OperationMetrics{
			StartTime:      mc.votingStartTime,
			EndTime:        mc.votingEndTime,
			Count:          mc.votingCount,
			ProcessingTime: mc.votingTotalTime.Milliseconds(),
		},
		Counting: OperationMetrics{
			StartTime:      mc.countingStartTime,
			EndTime:        mc.countingEndTime,
			Count:          mc.countingCount,
			ProcessingTime: mc.countingProcessingTime.Milliseconds(),
		},
	}
}

// Reset clears the timing metrics. Prometheus series are cumulative and are
// not touched.
func (mc *MetricsCollector) Reset() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.registrationStartTime = time.Time{}
	mc.registrationEndTime = time.Time{}
	mc.registrationCount = 0
	mc.registrationTotalTime = 0

	mc.votingStartTime = time.Time{}
	mc.votingEndTime = time.Time{}
	mc.votingCount = 0
	mc.votingTotalTime = 0

	mc.countingStartTime = time.Time{}
	mc.countingEndTime = time.Time{}
	mc.countingCount = 0
	mc.countingProcessingTime = 0
}
