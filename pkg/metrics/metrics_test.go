package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManager(t *testing.T) {
	Convey("Given a manager on an isolated registry", t, func() {
		reg := prometheus.NewRegistry()
		m := NewManager(WithRegistry(reg))

		Convey("When business counters move", func() {
			m.votesApplied.Inc()
			m.votesApplied.Inc()
			m.votesDuplicate.Inc()
			m.sessionsActive.Set(3)

			Convey("Then the registry reflects them", func() {
				So(testutil.ToFloat64(m.votesApplied), ShouldEqual, 2)
				So(testutil.ToFloat64(m.votesDuplicate), ShouldEqual, 1)
				So(testutil.ToFloat64(m.sessionsActive), ShouldEqual, 3)
			})
		})

		Convey("When labeled counters move", func() {
			m.votesRejected.WithLabelValues("validation").Inc()
			m.transientRetries.WithLabelValues("commit").Inc()
			m.transientRetries.WithLabelValues("commit").Inc()

			So(testutil.ToFloat64(m.votesRejected.WithLabelValues("validation")), ShouldEqual, 1)
			So(testutil.ToFloat64(m.transientRetries.WithLabelValues("commit")), ShouldEqual, 2)
		})

		Convey("When the scrape handler is hit", func() {
			m.votesApplied.Inc()
			rec := httptest.NewRecorder()
			m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

			So(rec.Code, ShouldEqual, 200)
			So(rec.Body.String(), ShouldContainSubstring, "encore_ranking_votes_applied_total")
		})
	})

	Convey("Options shape the metric names", t, func() {
		reg := prometheus.NewRegistry()
		m := NewManager(WithRegistry(reg), WithNamespace("custom"), WithSubsystem("sub"))
		m.votesApplied.Inc()

		rec := httptest.NewRecorder()
		m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
		So(strings.Contains(rec.Body.String(), "custom_sub_votes_applied_total"), ShouldBeTrue)
	})

	Convey("The package-level helpers never panic", t, func() {
		So(func() {
			RecordVoteApplied()
			RecordVoteDuplicate()
			RecordVoteRejected("conflict")
			RecordSessionOpened()
			RecordSessionSkipped()
			RecordSessionCompleted()
			RecordSessionCancelled()
			RecordSessionErrored()
			UpdateActiveSessions(1)
			ObserveQueueBuild(0.01)
			ObserveVoteCommit(0.02)
			RecordCASConflict()
			RecordTransientRetry("open")
			RecordSetLogged()
			UpdateDedupeCacheEntries(5)
			RecordHTTPRequest("rankings_open", "POST", "200")
			RecordHTTPRequestDuration("rankings_open", "POST", "200", 0.003)
		}, ShouldNotPanic)
	})
}
