package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	repository "github.com/rkarimi/encore/internal/adapters/repository"
	app "github.com/rkarimi/encore/internal/app"
	"github.com/rkarimi/encore/internal/domain/errs"
	"github.com/rkarimi/encore/internal/domain/model"
	"github.com/rkarimi/encore/internal/domain/queue"
	. "github.com/smartystreets/goconvey/convey"
)

// sequentialIDs yields set-1, set-2, ... for stable assertions.
func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newTestService(opts ...app.Option) *app.Service {
	base := []app.Option{
		app.WithIDGenerator(sequentialIDs()),
		app.WithQueuePolicy(queue.NewShufflePolicy(1)),
		app.WithRetryBudget(3, time.Millisecond),
	}
	return app.New(append(base, opts...)...)
}

func logSet(t *testing.T, svc *app.Service, owner, title string, bucket model.Bucket) model.Set {
	t.Helper()
	set, err := svc.LogSet(context.Background(), owner, app.CandidateSet{Title: title}, bucket)
	if err != nil {
		t.Fatalf("logging set %q: %v", title, err)
	}
	return set
}

func TestService_FirstSetSkips(t *testing.T) {
	ctx := context.Background()

	Convey("Given a user logging their first set ever", t, func() {
		svc := newTestService()
		set := logSet(t, svc, "u1", "first show", model.BucketLiked)

		Convey("Then open skips immediately and no session stays active", func() {
			res, err := svc.OpenSession(ctx, "u1", set.ID)
			So(err, ShouldBeNil)
			So(res.Skip, ShouldBeTrue)
			So(svc.Stats()["activeSessions"], ShouldEqual, 0)

			Convey("And the user can open again right away", func() {
				res, err := svc.OpenSession(ctx, "u1", set.ID)
				So(err, ShouldBeNil)
				So(res.Skip, ShouldBeTrue)
			})
		})
	})

	Convey("Given the only other set lives in a different bucket", t, func() {
		svc := newTestService()
		logSet(t, svc, "u1", "meh show", model.BucketNeutral)
		set := logSet(t, svc, "u1", "great show", model.BucketLiked)

		Convey("Then open still skips", func() {
			res, err := svc.OpenSession(ctx, "u1", set.ID)
			So(err, ShouldBeNil)
			So(res.Skip, ShouldBeTrue)
		})
	})
}

func TestService_EndToEndRanking(t *testing.T) {
	ctx := context.Background()

	Convey("Given one liked set at 1500 and a newly logged second", t, func() {
		svc := newTestService()
		old := logSet(t, svc, "u1", "old favourite", model.BucketLiked)
		neu := logSet(t, svc, "u1", "last night", model.BucketLiked)

		Convey("When the session opens", func() {
			res, err := svc.OpenSession(ctx, "u1", neu.ID)
			So(err, ShouldBeNil)
			So(res.Skip, ShouldBeFalse)
			So(res.FirstPair, ShouldResemble, model.Pair{A: neu.ID, B: old.ID})
			So(res.Remaining, ShouldEqual, 1)

			Convey("And the new set wins", func() {
				out, err := svc.Decide(ctx, "u1", neu.ID, "")
				So(err, ShouldBeNil)
				So(out.Done, ShouldBeTrue)

				Convey("Then the ratings land on exactly 1516 and 1484", func() {
					board, err := svc.Leaderboard(ctx, "u1", model.BucketLiked, 10)
					So(err, ShouldBeNil)
					So(len(board), ShouldEqual, 2)
					So(board[0].ID, ShouldEqual, neu.ID)
					So(board[0].Rating, ShouldEqual, 1516)
					So(board[1].Rating, ShouldEqual, 1484)
				})

				Convey("And the audit trail holds the decision", func() {
					history, err := svc.History(ctx, "u1", 10)
					So(err, ShouldBeNil)
					So(len(history), ShouldEqual, 1)
					So(history[0].WinnerID, ShouldEqual, neu.ID)
					So(history[0].LoserID, ShouldEqual, old.ID)
				})

				Convey("And the session is gone", func() {
					_, err := svc.Decide(ctx, "u1", neu.ID, "")
					So(errors.Is(err, errs.ErrConflict), ShouldBeTrue)
				})
			})

			Convey("And an outsider winner is rejected without losing the session", func() {
				_, err := svc.Decide(ctx, "u1", "stranger", "")
				So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)

				out, err := svc.Decide(ctx, "u1", old.ID, "")
				So(err, ShouldBeNil)
				So(out.Done, ShouldBeTrue)
			})

			Convey("And a second open while active conflicts", func() {
				_, err := svc.OpenSession(ctx, "u1", neu.ID)
				So(errors.Is(err, errs.ErrConflict), ShouldBeTrue)
			})

			Convey("And cancel closes the session keeping committed votes", func() {
				So(svc.Cancel(ctx, "u1"), ShouldBeNil)
				So(svc.Stats()["activeSessions"], ShouldEqual, 0)

				board, _ := svc.Leaderboard(ctx, "u1", model.BucketLiked, 10)
				for _, s := range board {
					So(s.Rating, ShouldEqual, 1500) // nothing was committed
				}
			})
		})
	})
}

func TestService_MultiOpponentQueue(t *testing.T) {
	ctx := context.Background()

	Convey("Given three existing liked sets and a new one", t, func() {
		svc := newTestService()
		for i := 0; i < 3; i++ {
			logSet(t, svc, "u1", fmt.Sprintf("show %d", i), model.BucketLiked)
		}
		neu := logSet(t, svc, "u1", "newest", model.BucketLiked)

		Convey("When the user judges the whole queue", func() {
			res, err := svc.OpenSession(ctx, "u1", neu.ID)
			So(err, ShouldBeNil)
			So(res.Remaining, ShouldEqual, 3)

			wins := 0
			out, err := svc.Decide(ctx, "u1", neu.ID, "")
			So(err, ShouldBeNil)
			wins++
			for !out.Done {
				out, err = svc.Decide(ctx, "u1", out.NextPair.B, "")
				So(err, ShouldBeNil)
			}

			Convey("Then exactly three comparisons were committed in order", func() {
				history, err := svc.History(ctx, "u1", 10)
				So(err, ShouldBeNil)
				So(len(history), ShouldEqual, 3)
				So(wins, ShouldEqual, 1)
			})
		})
	})
}

func TestService_SubmitVoteValidation(t *testing.T) {
	ctx := context.Background()

	Convey("Given sets across owners and buckets", t, func() {
		svc := newTestService()
		liked := logSet(t, svc, "u1", "liked", model.BucketLiked)
		disliked := logSet(t, svc, "u1", "disliked", model.BucketDisliked)
		foreign := logSet(t, svc, "u2", "someone else's", model.BucketLiked)

		Convey("A self-comparison is rejected", func() {
			err := svc.SubmitVote(ctx, liked.ID, liked.ID, "u1", "t")
			So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
		})

		Convey("A cross-bucket pair is rejected", func() {
			err := svc.SubmitVote(ctx, liked.ID, disliked.ID, "u1", "t")
			So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
		})

		Convey("A foreign set reads as not found", func() {
			err := svc.SubmitVote(ctx, liked.ID, foreign.ID, "u1", "t")
			So(errors.Is(err, errs.ErrNotFound), ShouldBeTrue)
		})

		Convey("A missing owner is an auth failure", func() {
			err := svc.SubmitVote(ctx, liked.ID, disliked.ID, "", "t")
			So(errors.Is(err, errs.ErrAuth), ShouldBeTrue)
		})

		Convey("An unknown id is not found", func() {
			err := svc.SubmitVote(ctx, "ghost", liked.ID, "u1", "t")
			So(errors.Is(err, errs.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestService_DuplicateVote(t *testing.T) {
	ctx := context.Background()

	Convey("Given two liked sets", t, func() {
		svc := newTestService()
		a := logSet(t, svc, "u1", "a", model.BucketLiked)
		b := logSet(t, svc, "u1", "b", model.BucketLiked)

		Convey("When the identical vote is submitted twice with one token", func() {
			So(svc.SubmitVote(ctx, a.ID, b.ID, "u1", "tok-1"), ShouldBeNil)
			So(svc.SubmitVote(ctx, a.ID, b.ID, "u1", "tok-1"), ShouldBeNil)

			Convey("Then the rating delta applied exactly once", func() {
				board, err := svc.Leaderboard(ctx, "u1", model.BucketLiked, 10)
				So(err, ShouldBeNil)
				So(board[0].Rating, ShouldEqual, 1516)
				So(board[1].Rating, ShouldEqual, 1484)

				history, _ := svc.History(ctx, "u1", 10)
				So(len(history), ShouldEqual, 1)
			})
		})

		Convey("When the same pair is re-judged with a fresh token", func() {
			So(svc.SubmitVote(ctx, a.ID, b.ID, "u1", "tok-1"), ShouldBeNil)
			So(svc.SubmitVote(ctx, a.ID, b.ID, "u1", "tok-2"), ShouldBeNil)

			Convey("Then both votes count", func() {
				history, _ := svc.History(ctx, "u1", 10)
				So(len(history), ShouldEqual, 2)
			})
		})
	})
}

// flakyStore fails CommitVote a fixed number of times before delegating.
type flakyStore struct {
	repository.Store
	failures int
	calls    int
}

func (f *flakyStore) CommitVote(ctx context.Context, cmp model.Comparison, winnerOld, winnerNew, loserOld, loserNew float64) (bool, error) {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return false, errs.Transientf("simulated storage blip")
	}
	return f.Store.CommitVote(ctx, cmp, winnerOld, winnerNew, loserOld, loserNew)
}

func TestService_TransientRetry(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store that fails twice before succeeding", t, func() {
		flaky := &flakyStore{Store: repository.NewMemStore(), failures: 2}
		svc := newTestService(app.WithStore(flaky))
		a := logSet(t, svc, "u1", "a", model.BucketLiked)
		b := logSet(t, svc, "u1", "b", model.BucketLiked)

		Convey("Then the vote lands within the retry budget", func() {
			So(svc.SubmitVote(ctx, a.ID, b.ID, "u1", "t"), ShouldBeNil)
			So(flaky.calls, ShouldEqual, 3)

			board, _ := svc.Leaderboard(ctx, "u1", model.BucketLiked, 10)
			So(board[0].Rating, ShouldEqual, 1516)
		})
	})

	Convey("Given a store that never recovers", t, func() {
		flaky := &flakyStore{Store: repository.NewMemStore(), failures: 99}
		svc := newTestService(app.WithStore(flaky))
		a := logSet(t, svc, "u1", "a", model.BucketLiked)
		b := logSet(t, svc, "u1", "b", model.BucketLiked)

		Convey("Then the budget is exhausted and the failure surfaces as transient", func() {
			err := svc.SubmitVote(ctx, a.ID, b.ID, "u1", "t")
			So(errors.Is(err, errs.ErrTransient), ShouldBeTrue)
			So(flaky.calls, ShouldEqual, 3)

			Convey("And the session workflow aborts on the same failure", func() {
				res, err := svc.OpenSession(ctx, "u1", b.ID)
				So(err, ShouldBeNil)
				_, err = svc.Decide(ctx, "u1", res.FirstPair.A, "")
				So(errors.Is(err, errs.ErrTransient), ShouldBeTrue)
				So(svc.Stats()["activeSessions"], ShouldEqual, 0)

				Convey("And the retried decision is not poisoned by the dedup cache", func() {
					flaky.failures = 0
					res, err := svc.OpenSession(ctx, "u1", b.ID)
					So(err, ShouldBeNil)
					_, err = svc.Decide(ctx, "u1", res.FirstPair.A, "tok-retry")
					So(err, ShouldBeNil)
				})
			})
		})
	})
}
