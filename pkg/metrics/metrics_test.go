package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given a metrics manager", t, func() {
		Convey("When created with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})

		Convey("When created with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test-namespace"),
				WithSubsystem("test-subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(true),
				WithRefreshInterval(10*time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})
	})
}

func TestRecordingHelpers(t *testing.T) {
	Convey("Given the package-level recording helpers", t, func() {
		Convey("When recording analysis lifecycle metrics", func() {
			Convey("Then none of them panic", func() {
				So(func() {
					RecordAnalysisStarted()
					RecordFrameSampled()
					RecordDetectorLatency(12.5)
					RecordArtifactCorrection()
					RecordAnalysisCompleted(3.2)
					RecordAnalysisFailed("low_confidence")
					RecordMeasuredHeight("vision", 42.5)
					RecordMeasuredHeight("manual", 78.5)
				}, ShouldNotPanic)
			})
		})

		Convey("When recording queue and worker metrics", func() {
			Convey("Then none of them panic", func() {
				So(func() {
					UpdateQueueSize(3)
					UpdateQueueCapacity(100)
					UpdateQueueUtilization(0.03)
					RecordQueueEnqueue()
					RecordQueueDequeue()
					RecordQueueEnqueueError()
					UpdateWorkerCount(4)
					RecordWorkerProcessingLatency(1500)
					RecordWorkerError()
				}, ShouldNotPanic)
			})
		})

		Convey("When recording repository and HTTP metrics", func() {
			Convey("Then none of them panic", func() {
				So(func() {
					UpdateTotalSubjects(12)
					RecordRankUpdateLatency(0.8)
					RecordRankQueryLatency(0.4)
					RecordHistorySave()
					RecordHistoryError()
					RecordSubmissionDuplicate()
					RecordHTTPRequest("analyses", "POST", "202")
					RecordHTTPRequestDuration("analyses", "POST", "202", 4.2)
					UpdateSystemMemoryUsage(1 << 20)
					UpdateSystemGoroutineCount(42)
				}, ShouldNotPanic)
			})
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the service registry", t, func() {
		Convey("When gathering after recording", func() {
			RecordAnalysisStarted()
			families, err := GetRegistry().Gather()

			Convey("Then the analysis counters are registered", func() {
				So(err, ShouldBeNil)
				names := make(map[string]bool, len(families))
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["leap_analysis_analyses_started_total"], ShouldBeTrue)
			})
		})
	})
}
