package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	repository "github.com/rkarimi/encore/internal/adapters/repository"
	storage "github.com/rkarimi/encore/internal/adapters/storage"
	"github.com/rkarimi/encore/internal/domain/errs"
	"github.com/rkarimi/encore/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func storedSet(id, owner string, bucket model.Bucket, rating float64, minute int) model.Set {
	return model.Set{
		ID:        id,
		OwnerID:   owner,
		Title:     "title-" + id,
		Artist:    "artist-" + id,
		Venue:     "venue-" + id,
		Bucket:    bucket,
		Rating:    rating,
		CreatedAt: time.Date(2026, 3, 1, 21, minute, 0, 0, time.UTC),
	}
}

func TestStore_Sets(t *testing.T) {
	ctx := context.Background()

	Convey("Given an in-memory SQLite store", t, func() {
		store := openTestStore(t)

		Convey("When a set is created", func() {
			So(store.CreateSet(ctx, storedSet("s1", "u1", model.BucketLiked, 1500, 0)), ShouldBeNil)

			Convey("Then it round-trips intact", func() {
				got, err := store.GetSet(ctx, "s1")
				So(err, ShouldBeNil)
				So(got.OwnerID, ShouldEqual, "u1")
				So(got.Title, ShouldEqual, "title-s1")
				So(got.Bucket, ShouldEqual, model.BucketLiked)
				So(got.Rating, ShouldEqual, 1500)
				So(got.CreatedAt.Equal(time.Date(2026, 3, 1, 21, 0, 0, 0, time.UTC)), ShouldBeTrue)
			})

			Convey("And a duplicate id is rejected", func() {
				err := store.CreateSet(ctx, storedSet("s1", "u1", model.BucketLiked, 1500, 1))
				So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
			})
		})

		Convey("When the owner's sets are queried by bucket", func() {
			So(store.CreateSet(ctx, storedSet("a", "u1", model.BucketLiked, 1500, 0)), ShouldBeNil)
			So(store.CreateSet(ctx, storedSet("b", "u1", model.BucketDisliked, 1500, 1)), ShouldBeNil)
			So(store.CreateSet(ctx, storedSet("c", "u1", model.BucketLiked, 1500, 2)), ShouldBeNil)
			So(store.CreateSet(ctx, storedSet("d", "u2", model.BucketLiked, 1500, 3)), ShouldBeNil)

			sets, err := store.SetsByOwnerAndBucket(ctx, "u1", model.BucketLiked)
			So(err, ShouldBeNil)
			So(len(sets), ShouldEqual, 2)

			n, err := store.CountByOwner(ctx, "u1")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 3)
		})

		Convey("When an unknown set is read", func() {
			_, err := store.GetSet(ctx, "ghost")
			So(errors.Is(err, errs.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestStore_CompareAndSetRating(t *testing.T) {
	ctx := context.Background()

	Convey("Given a stored set", t, func() {
		store := openTestStore(t)
		So(store.CreateSet(ctx, storedSet("s1", "u1", model.BucketLiked, 1500, 0)), ShouldBeNil)

		Convey("A matching CAS lands and a stale one conflicts", func() {
			So(store.CompareAndSetRating(ctx, "s1", 1500, 1516), ShouldBeNil)

			err := store.CompareAndSetRating(ctx, "s1", 1500, 1520)
			So(errors.Is(err, errs.ErrConflict), ShouldBeTrue)

			r, err := store.Rating(ctx, "s1")
			So(err, ShouldBeNil)
			So(r, ShouldEqual, 1516)
		})

		Convey("A CAS against a missing set reports not found, not conflict", func() {
			err := store.CompareAndSetRating(ctx, "ghost", 1500, 1516)
			So(errors.Is(err, errs.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestStore_CommitVote(t *testing.T) {
	ctx := context.Background()

	cmp := model.Comparison{
		ID:        "c1",
		OwnerID:   "u1",
		WinnerID:  "w",
		LoserID:   "l",
		DedupKey:  "w|l|tok",
		CreatedAt: time.Now().UTC(),
	}

	Convey("Given two rated sets", t, func() {
		store := openTestStore(t)
		So(store.CreateSet(ctx, storedSet("w", "u1", model.BucketLiked, 1500, 0)), ShouldBeNil)
		So(store.CreateSet(ctx, storedSet("l", "u1", model.BucketLiked, 1500, 1)), ShouldBeNil)

		Convey("When the vote commits", func() {
			applied, err := store.CommitVote(ctx, cmp, 1500, 1516, 1500, 1484)
			So(err, ShouldBeNil)
			So(applied, ShouldBeTrue)

			Convey("Then the comparison and both ratings landed together", func() {
				w, _ := store.Rating(ctx, "w")
				l, _ := store.Rating(ctx, "l")
				So(w, ShouldEqual, 1516)
				So(l, ShouldEqual, 1484)

				history, err := store.ComparisonsByOwner(ctx, "u1", 10)
				So(err, ShouldBeNil)
				So(len(history), ShouldEqual, 1)
				So(history[0].DedupKey, ShouldEqual, "w|l|tok")
			})

			Convey("And replaying the dedup key applies nothing", func() {
				applied, err := store.CommitVote(ctx, cmp, 1516, 1530, 1484, 1470)
				So(err, ShouldBeNil)
				So(applied, ShouldBeFalse)

				w, _ := store.Rating(ctx, "w")
				So(w, ShouldEqual, 1516)
			})
		})

		Convey("When the loser's rating moved since it was read", func() {
			So(store.CompareAndSetRating(ctx, "l", 1500, 1490), ShouldBeNil)

			applied, err := store.CommitVote(ctx, cmp, 1500, 1516, 1500, 1484)
			So(errors.Is(err, errs.ErrConflict), ShouldBeTrue)
			So(applied, ShouldBeFalse)

			Convey("Then the whole transaction rolled back", func() {
				w, _ := store.Rating(ctx, "w")
				So(w, ShouldEqual, 1500)
				history, _ := store.ComparisonsByOwner(ctx, "u1", 10)
				So(history, ShouldBeEmpty)
			})
		})
	})
}

func TestStore_TopByOwnerBucket(t *testing.T) {
	ctx := context.Background()

	Convey("Given rated sets", t, func() {
		store := openTestStore(t)
		So(store.CreateSet(ctx, storedSet("a", "u1", model.BucketLiked, 1520, 0)), ShouldBeNil)
		So(store.CreateSet(ctx, storedSet("b", "u1", model.BucketLiked, 1480, 1)), ShouldBeNil)
		So(store.CreateSet(ctx, storedSet("c", "u1", model.BucketLiked, 1550, 2)), ShouldBeNil)
		So(store.CreateSet(ctx, storedSet("d", "u1", model.BucketNeutral, 1600, 3)), ShouldBeNil)

		Convey("Then the ranked view is ordered by rating descending", func() {
			top, err := store.TopByOwnerBucket(ctx, "u1", model.BucketLiked, 2)
			So(err, ShouldBeNil)
			So(len(top), ShouldEqual, 2)
			So(top[0].ID, ShouldEqual, "c")
			So(top[1].ID, ShouldEqual, "a")
		})
	})
}

// The store must satisfy the full contract bundle.
var _ repository.Store = (*storage.Store)(nil)
