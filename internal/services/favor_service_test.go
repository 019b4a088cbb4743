package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"favor-market/internal/models"
)

func postFavor(t *testing.T, env *testEnv, poster string, reward int64) int64 {
	t.Helper()
	favor, err := env.favors.PostFavor(context.Background(), poster, &models.PostFavorRequest{
		Name:   "walk the dog",
		Reward: reward,
	})
	if err != nil {
		t.Fatalf("post favor: %v", err)
	}
	return favor.FavorID
}

func TestFavorFullLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	favorID := postFavor(t, env, testAlice, 500)

	if got := env.balance(t, testAlice); got != 9500 {
		t.Errorf("alice balance after post = %d, want 9500", got)
	}
	if got := env.locked(t, models.WorkflowFavors); got != 500 {
		t.Errorf("locked after post = %d, want 500", got)
	}

	if _, err := env.favors.Approve(ctx, testAdmin, favorID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := env.favors.Bid(ctx, testBob, favorID); err != nil {
		t.Fatalf("bid bob: %v", err)
	}
	if err := env.favors.Bid(ctx, testCarol, favorID); err != nil {
		t.Fatalf("bid carol: %v", err)
	}

	if _, err := env.favors.SetAssignees(ctx, testAlice, favorID, []string{testBob, testCarol}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := env.favors.Complete(ctx, testBob, favorID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := env.favors.Acknowledge(ctx, testAlice, favorID, []string{testBob, testCarol}, []int64{300, 200}); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}

	if got := env.balance(t, testBob); got != 10_300 {
		t.Errorf("bob balance = %d, want 10300", got)
	}
	if got := env.balance(t, testCarol); got != 10_200 {
		t.Errorf("carol balance = %d, want 10200", got)
	}
	if got := env.locked(t, models.WorkflowFavors); got != 0 {
		t.Errorf("locked after acknowledge = %d, want 0", got)
	}

	favor, err := env.favors.GetFavor(ctx, favorID)
	if err != nil {
		t.Fatalf("get favor: %v", err)
	}
	if favor.Status != string(models.FavorStatusAcknowledged) {
		t.Errorf("status = %s, want ACKNOWLEDGED", favor.Status)
	}
	if favor.ClosedAt == nil {
		t.Error("closed_at not set")
	}
	if !reflect.DeepEqual(favor.Bidders, []string{testBob, testCarol}) {
		t.Errorf("bidders = %v", favor.Bidders)
	}
	if !reflect.DeepEqual(favor.Assignees, []string{testBob, testCarol}) {
		t.Errorf("assignees = %v", favor.Assignees)
	}

	want := []string{"favor.posted", "favor.approved", "favor.bid", "favor.bid", "favor.assigned", "favor.completed", "favor.acknowledged"}
	if got := env.events(t, models.EntityTypeFavor, favorID); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestFavorIDsAreMonotonic(t *testing.T) {
	env := newTestEnv(t)

	first := postFavor(t, env, testAlice, 10)
	second := postFavor(t, env, testBob, 10)
	third := postFavor(t, env, testAlice, 10)

	if second != first+1 || third != second+1 {
		t.Errorf("ids not monotonic: %d, %d, %d", first, second, third)
	}
}

func TestPostFavorWithoutFundsRollsBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.favors.PostFavor(ctx, testAlice, &models.PostFavorRequest{
		Name:   "too expensive",
		Reward: 50_000,
	})
	if !IsInsufficientValue(err) {
		t.Fatalf("expected insufficient value, got %v", err)
	}

	// The favor row and its sequence side effects must not survive.
	if _, err := env.favors.GetFavor(ctx, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for rolled-back favor, got %v", err)
	}
	if got := env.locked(t, models.WorkflowFavors); got != 0 {
		t.Errorf("locked = %d, want 0", got)
	}
}

func TestFavorRejectRefundsPoster(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	favorID := postFavor(t, env, testAlice, 500)

	if _, err := env.favors.Reject(ctx, testAlice, favorID); !IsPrecondition(err) {
		t.Fatalf("non-admin reject should fail with precondition, got %v", err)
	}
	if _, err := env.favors.Reject(ctx, testAdmin, favorID); err != nil {
		t.Fatalf("reject: %v", err)
	}

	if got := env.balance(t, testAlice); got != 10_000 {
		t.Errorf("alice balance after reject = %d, want 10000", got)
	}
	if got := env.locked(t, models.WorkflowFavors); got != 0 {
		t.Errorf("locked after reject = %d, want 0", got)
	}

	// Rejected is terminal.
	if _, err := env.favors.Approve(ctx, testAdmin, favorID); !IsPrecondition(err) {
		t.Errorf("approve after reject should fail, got %v", err)
	}
}

func TestFavorCancelByPosterAndAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Poster cancels from PENDING.
	first := postFavor(t, env, testAlice, 200)
	if _, err := env.favors.Cancel(ctx, testAlice, first); err != nil {
		t.Fatalf("poster cancel: %v", err)
	}
	if got := env.balance(t, testAlice); got != 10_000 {
		t.Errorf("alice balance after cancel = %d, want 10000", got)
	}

	// Admin cancels mid-workflow; refund still goes to the poster.
	second := postFavor(t, env, testBob, 300)
	if _, err := env.favors.Approve(ctx, testAdmin, second); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := env.favors.Cancel(ctx, testCarol, second); !IsPrecondition(err) {
		t.Fatalf("third-party cancel should fail, got %v", err)
	}
	if _, err := env.favors.Cancel(ctx, testAdmin, second); err != nil {
		t.Fatalf("admin cancel: %v", err)
	}
	if got := env.balance(t, testBob); got != 10_000 {
		t.Errorf("bob balance after admin cancel = %d, want 10000", got)
	}
	if got := env.locked(t, models.WorkflowFavors); got != 0 {
		t.Errorf("locked = %d, want 0", got)
	}
}

func TestFavorCompleteRequiresAssignee(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	favorID := postFavor(t, env, testAlice, 100)
	if _, err := env.favors.Approve(ctx, testAdmin, favorID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	// Not yet assigned: nobody can complete.
	if _, err := env.favors.Complete(ctx, testBob, favorID); !IsPrecondition(err) {
		t.Fatalf("unassigned complete should fail, got %v", err)
	}

	if _, err := env.favors.SetAssignees(ctx, testAlice, favorID, []string{testBob}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := env.favors.Complete(ctx, testCarol, favorID); !IsPrecondition(err) {
		t.Fatalf("non-assignee complete should fail, got %v", err)
	}
	if _, err := env.favors.Complete(ctx, testBob, favorID); err != nil {
		t.Fatalf("assignee complete: %v", err)
	}
}

func TestFavorRevertComplete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	favorID := postFavor(t, env, testAlice, 100)
	if _, err := env.favors.Approve(ctx, testAdmin, favorID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := env.favors.SetAssignees(ctx, testAlice, favorID, []string{testBob}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := env.favors.Complete(ctx, testBob, favorID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	favor, err := env.favors.RevertComplete(ctx, testAlice, favorID)
	if err != nil {
		t.Fatalf("revert: %v", err)
	}
	if favor.Status != models.FavorStatusInProgress {
		t.Errorf("status = %s, want IN_PROGRESS", favor.Status)
	}

	// Cycle again: complete and settle.
	if _, err := env.favors.Complete(ctx, testBob, favorID); err != nil {
		t.Fatalf("second complete: %v", err)
	}
	if _, err := env.favors.Acknowledge(ctx, testAlice, favorID, []string{testBob}, []int64{100}); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if got := env.balance(t, testBob); got != 10_100 {
		t.Errorf("bob balance = %d, want 10100", got)
	}
}

func TestAcknowledgeShareValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	favorID := postFavor(t, env, testAlice, 100)
	if _, err := env.favors.Approve(ctx, testAdmin, favorID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := env.favors.SetAssignees(ctx, testAlice, favorID, []string{testBob}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := env.favors.Complete(ctx, testBob, favorID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	cases := []struct {
		name      string
		assignees []string
		shares    []int64
	}{
		{"length mismatch", []string{testBob}, []int64{50, 50}},
		{"negative share", []string{testBob, testCarol}, []int64{150, -50}},
		{"under-allocation", []string{testBob}, []int64{99}},
		{"over-allocation", []string{testBob}, []int64{101}},
	}
	for _, tc := range cases {
		if _, err := env.favors.Acknowledge(ctx, testAlice, favorID, tc.assignees, tc.shares); !IsPrecondition(err) {
			t.Errorf("%s: expected precondition, got %v", tc.name, err)
		}
	}

	// Nothing paid out by the failed attempts.
	if got := env.locked(t, models.WorkflowFavors); got != 100 {
		t.Errorf("locked = %d, want 100", got)
	}

	// Settlement may include non-assignees, e.g. a tip split decided by the poster.
	if _, err := env.favors.Acknowledge(ctx, testAlice, favorID, []string{testBob, testCarol}, []int64{70, 30}); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if got := env.balance(t, testCarol); got != 10_030 {
		t.Errorf("carol balance = %d, want 10030", got)
	}
}

func TestZeroRewardFavor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	favorID := postFavor(t, env, testAlice, 0)
	if _, err := env.favors.Approve(ctx, testAdmin, favorID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := env.favors.SetAssignees(ctx, testAlice, favorID, []string{testBob}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := env.favors.Complete(ctx, testBob, favorID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := env.favors.Acknowledge(ctx, testAlice, favorID, []string{testBob}, []int64{0}); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if got := env.balance(t, testBob); got != 10_000 {
		t.Errorf("bob balance = %d, want 10000", got)
	}
}

func TestBidOnUnknownFavor(t *testing.T) {
	env := newTestEnv(t)

	err := env.favors.Bid(context.Background(), testBob, 42)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListFavorsFilters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := postFavor(t, env, testAlice, 10)
	postFavor(t, env, testBob, 10)
	if _, err := env.favors.Approve(ctx, testAdmin, a); err != nil {
		t.Fatalf("approve: %v", err)
	}

	open, total, err := env.favors.ListFavors(ctx, models.FavorStatusOpen, "", 50, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(open) != 1 || open[0].FavorID != a {
		t.Errorf("open favors = %d (total %d)", len(open), total)
	}

	_, total, err = env.favors.ListFavors(ctx, "", testBob, 50, 0)
	if err != nil {
		t.Fatalf("list by poster: %v", err)
	}
	if total != 1 {
		t.Errorf("bob's favors total = %d, want 1", total)
	}
}
