package rating_test

import (
	"math"
	"testing"

	rating "github.com/rkarimi/encore/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEloUpdater_Update(t *testing.T) {
	Convey("Given an updater with the default K-factor", t, func() {
		u := rating.New()

		Convey("When both sides start at 1500", func() {
			newWinner, newLoser := u.Update(1500, 1500)

			Convey("Then the winner lands on exactly 1516 and the loser on 1484", func() {
				So(newWinner, ShouldEqual, 1516)
				So(newLoser, ShouldEqual, 1484)
			})
		})

		Convey("When the favourite wins", func() {
			newWinner, newLoser := u.Update(1700, 1300)

			Convey("Then the transfer is small but strictly positive", func() {
				So(newWinner, ShouldBeGreaterThan, 1700)
				So(newWinner-1700, ShouldBeLessThan, 4)
				So(newLoser, ShouldBeLessThan, 1300)
			})
		})

		Convey("When the underdog wins", func() {
			newWinner, newLoser := u.Update(1300, 1700)

			Convey("Then the transfer approaches the full K-factor", func() {
				So(newWinner-1300, ShouldBeGreaterThan, 28)
				So(newWinner-1300, ShouldBeLessThan, 32)
				So(1700-newLoser, ShouldBeGreaterThan, 28)
			})
		})

		Convey("Then the transfer is zero-sum across a spread of inputs", func() {
			cases := [][2]float64{
				{1500, 1500}, {1200, 1800}, {1800, 1200},
				{1503.25, 1496.75}, {900, 2100}, {1500.5, 1499.5},
			}
			for _, c := range cases {
				newWinner, newLoser := u.Update(c[0], c[1])
				gain := newWinner - c[0]
				loss := newLoser - c[1]
				So(gain, ShouldBeGreaterThan, 0)
				So(loss, ShouldBeLessThan, 0)
				So(math.Abs(gain+loss), ShouldBeLessThan, 1e-9)
			}
		})
	})

	Convey("Given an updater with a custom K-factor", t, func() {
		Convey("When equals meet, the winner gains exactly k/2", func() {
			for _, k := range []float64{8, 16, 24, 40} {
				u := rating.New(rating.WithKFactor(k))
				newWinner, _ := u.Update(1500, 1500)
				So(newWinner-1500, ShouldAlmostEqual, k/2, 1e-9)
			}
		})

		Convey("When the K-factor option is non-positive it is ignored", func() {
			u := rating.New(rating.WithKFactor(0))
			So(u.KFactor(), ShouldEqual, rating.DefaultKFactor)

			u = rating.New(rating.WithKFactor(-5))
			So(u.KFactor(), ShouldEqual, rating.DefaultKFactor)
		})
	})
}
