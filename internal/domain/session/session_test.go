package session_test

import (
	"errors"
	"testing"

	"github.com/rkarimi/encore/internal/domain/errs"
	"github.com/rkarimi/encore/internal/domain/model"
	session "github.com/rkarimi/encore/internal/domain/session"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSession_Transitions(t *testing.T) {
	Convey("Given a fresh session", t, func() {
		s := session.New("u1", "new", model.BucketLiked)
		So(s.State(), ShouldEqual, session.StateInitializing)

		Convey("When activated with a queue", func() {
			So(s.Activate([]string{"a", "b"}), ShouldBeNil)
			So(s.State(), ShouldEqual, session.StateAwaiting)

			Convey("Then the current pair is the new set against the first opponent", func() {
				pair, err := s.CurrentPair()
				So(err, ShouldBeNil)
				So(pair, ShouldResemble, model.Pair{A: "new", B: "a"})
				So(s.Remaining(), ShouldEqual, 2)
			})

			Convey("And deciding for the new set yields the opponent as loser", func() {
				loser, err := s.BeginDecide("new")
				So(err, ShouldBeNil)
				So(loser, ShouldEqual, "a")
				So(s.State(), ShouldEqual, session.StateSubmitting)

				Convey("Then completing advances to the next pair", func() {
					done, err := s.CompleteDecide()
					So(err, ShouldBeNil)
					So(done, ShouldBeFalse)
					So(s.State(), ShouldEqual, session.StateAwaiting)

					pair, err := s.CurrentPair()
					So(err, ShouldBeNil)
					So(pair.B, ShouldEqual, "b")
				})

				Convey("And completing the last pair closes the session", func() {
					_, err := s.CompleteDecide()
					So(err, ShouldBeNil)
					loser, err := s.BeginDecide("b")
					So(err, ShouldBeNil)
					So(loser, ShouldEqual, "new")
					done, err := s.CompleteDecide()
					So(err, ShouldBeNil)
					So(done, ShouldBeTrue)
					So(s.State(), ShouldEqual, session.StateClosed)
				})
			})

			Convey("And a winner outside the pair fails validation without changing state", func() {
				_, err := s.BeginDecide("stranger")
				So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
				So(s.State(), ShouldEqual, session.StateAwaiting)
			})

			Convey("And cancel closes immediately", func() {
				So(s.Cancel(), ShouldBeNil)
				So(s.State(), ShouldEqual, session.StateClosed)

				_, err := s.CurrentPair()
				So(errors.Is(err, errs.ErrConflict), ShouldBeTrue)
			})

			Convey("And a mid-submit failure lands in Errored, then resolves to Closed", func() {
				_, err := s.BeginDecide("a")
				So(err, ShouldBeNil)
				s.Fail()
				So(s.State(), ShouldEqual, session.StateErrored)
				s.Close()
				So(s.State(), ShouldEqual, session.StateClosed)
			})
		})

		Convey("When activated with an empty queue", func() {
			err := s.Activate(nil)
			So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
		})

		Convey("When decided before activation", func() {
			_, err := s.BeginDecide("new")
			So(errors.Is(err, errs.ErrConflict), ShouldBeTrue)
		})

		Convey("When cancelled before activation", func() {
			So(errors.Is(s.Cancel(), errs.ErrConflict), ShouldBeTrue)
		})
	})
}

func TestManager(t *testing.T) {
	Convey("Given a session manager", t, func() {
		m := session.NewManager()

		Convey("When a user opens a session", func() {
			s, err := m.Begin("u1", "s1", model.BucketLiked)
			So(err, ShouldBeNil)
			So(s, ShouldNotBeNil)
			So(m.ActiveCount(), ShouldEqual, 1)

			Convey("Then a second open for the same user conflicts", func() {
				_, err := m.Begin("u1", "s2", model.BucketLiked)
				So(errors.Is(err, errs.ErrConflict), ShouldBeTrue)
			})

			Convey("And a different user is unaffected", func() {
				_, err := m.Begin("u2", "s9", model.BucketNeutral)
				So(err, ShouldBeNil)
				So(m.ActiveCount(), ShouldEqual, 2)
			})

			Convey("And after End the user can open again", func() {
				m.End("u1")
				So(m.ActiveCount(), ShouldEqual, 0)
				_, err := m.Begin("u1", "s2", model.BucketLiked)
				So(err, ShouldBeNil)
			})

			Convey("And Get returns the live session", func() {
				got, err := m.Get("u1")
				So(err, ShouldBeNil)
				So(got, ShouldEqual, s)
			})
		})

		Convey("When no session is active, Get conflicts", func() {
			_, err := m.Get("ghost")
			So(errors.Is(err, errs.ErrConflict), ShouldBeTrue)
		})
	})
}
