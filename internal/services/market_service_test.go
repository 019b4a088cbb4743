package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"favor-market/internal/models"
)

func postItem(t *testing.T, env *testEnv, poster string, price, units int64, repeatable bool) int64 {
	t.Helper()
	item, err := env.market.PostItem(context.Background(), poster, &models.PostItemRequest{
		Title:         "coffee voucher",
		UnitPrice:     price,
		AvailableUnit: units,
		Repeatable:    repeatable,
	})
	if err != nil {
		t.Fatalf("post item: %v", err)
	}
	return item.ItemID
}

func openItem(t *testing.T, env *testEnv, poster string, price, units int64, repeatable bool) int64 {
	t.Helper()
	itemID := postItem(t, env, poster, price, units, repeatable)
	if _, err := env.market.ApproveItem(context.Background(), testAdmin, itemID); err != nil {
		t.Fatalf("approve item: %v", err)
	}
	return itemID
}

func TestMarketFullLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	itemID := openItem(t, env, testAlice, 150, 5, false)

	redemption, err := env.market.Redeem(ctx, testBob, itemID)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if redemption.Idx != 0 {
		t.Errorf("first redemption idx = %d, want 0", redemption.Idx)
	}
	if got := env.balance(t, testBob); got != 9850 {
		t.Errorf("bob balance after redeem = %d, want 9850", got)
	}
	if got := env.locked(t, models.WorkflowMarket); got != 150 {
		t.Errorf("locked = %d, want 150", got)
	}

	if _, err := env.market.Delivery(ctx, testAlice, itemID, 0, testBob); err != nil {
		t.Fatalf("delivery: %v", err)
	}
	if _, err := env.market.Confirm(ctx, testBob, itemID, 0); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	// The poster is paid, escrow drains back to zero.
	if got := env.balance(t, testAlice); got != 10_150 {
		t.Errorf("alice balance = %d, want 10150", got)
	}
	if got := env.locked(t, models.WorkflowMarket); got != 0 {
		t.Errorf("locked after confirm = %d, want 0", got)
	}

	item, err := env.market.GetItem(ctx, itemID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if item.Counter != 1 {
		t.Errorf("counter = %d, want 1", item.Counter)
	}
	if len(item.Redemptions) != 1 || item.Redemptions[0].Status != models.RedemptionStatusConfirmed {
		t.Errorf("redemptions = %+v", item.Redemptions)
	}
	if item.Redemptions[0].SettledAt == nil {
		t.Error("settled_at not set")
	}

	want := []string{"item.posted", "item.approved", "item.redeemed", "item.delivered", "item.confirmed"}
	if got := env.events(t, models.EntityTypeMarketItem, itemID); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestRedeemGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pending := postItem(t, env, testAlice, 10, 5, false)
	if _, err := env.market.Redeem(ctx, testBob, pending); !IsPrecondition(err) {
		t.Errorf("redeem of pending item should fail, got %v", err)
	}

	itemID := openItem(t, env, testAlice, 10, 5, false)
	if _, err := env.market.Redeem(ctx, testAlice, itemID); !IsPrecondition(err) {
		t.Errorf("poster self-redeem should fail, got %v", err)
	}

	// Non-repeatable: second active redemption by the same caller is refused.
	if _, err := env.market.Redeem(ctx, testBob, itemID); err != nil {
		t.Fatalf("first redeem: %v", err)
	}
	if _, err := env.market.Redeem(ctx, testBob, itemID); !IsPrecondition(err) {
		t.Errorf("repeat redeem should fail, got %v", err)
	}
	// Another caller is fine.
	if _, err := env.market.Redeem(ctx, testCarol, itemID); err != nil {
		t.Errorf("carol redeem: %v", err)
	}
}

func TestSoldoutFlipAndCapacity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	itemID := openItem(t, env, testAlice, 10, 2, true)

	if _, err := env.market.Redeem(ctx, testBob, itemID); err != nil {
		t.Fatalf("redeem 1: %v", err)
	}
	if _, err := env.market.Redeem(ctx, testCarol, itemID); err != nil {
		t.Fatalf("redeem 2: %v", err)
	}

	item, err := env.market.GetItem(ctx, itemID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if item.Status != string(models.ItemStatusSoldout) {
		t.Errorf("status = %s, want SOLDOUT", item.Status)
	}

	// Sold out: no further units, the status guard fires first.
	if _, err := env.market.Redeem(ctx, testBob, itemID); !IsPrecondition(err) {
		t.Errorf("redeem of soldout item should fail, got %v", err)
	}

	// Voiding one redemption reopens the item and decrements the counter.
	if _, err := env.market.VoidRedemption(ctx, testBob, itemID, 0); err != nil {
		t.Fatalf("void redemption: %v", err)
	}
	item, err = env.market.GetItem(ctx, itemID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if item.Status != string(models.ItemStatusOpen) {
		t.Errorf("status after void = %s, want OPEN", item.Status)
	}
	if item.Counter != 1 {
		t.Errorf("counter after void = %d, want 1", item.Counter)
	}
	if got := env.balance(t, testBob); got != 10_000 {
		t.Errorf("bob balance after void = %d, want 10000", got)
	}

	// The voided slot keeps its index; the next redemption appends.
	redemption, err := env.market.Redeem(ctx, testBob, itemID)
	if err != nil {
		t.Fatalf("redeem after void: %v", err)
	}
	if redemption.Idx != 2 {
		t.Errorf("new redemption idx = %d, want 2", redemption.Idx)
	}
}

func TestUnlimitedUnitsNeverSoldOut(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	itemID := openItem(t, env, testAlice, 1, models.UnlimitedUnits, true)

	for i := 0; i < 5; i++ {
		if _, err := env.market.Redeem(ctx, testBob, itemID); err != nil {
			t.Fatalf("redeem %d: %v", i, err)
		}
	}

	item, err := env.market.GetItem(ctx, itemID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if item.Status != string(models.ItemStatusOpen) {
		t.Errorf("status = %s, want OPEN", item.Status)
	}
	if item.Counter != 5 {
		t.Errorf("counter = %d, want 5", item.Counter)
	}
}

func TestDeliveryGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	itemID := openItem(t, env, testAlice, 20, 5, false)
	if _, err := env.market.Redeem(ctx, testBob, itemID); err != nil {
		t.Fatalf("redeem: %v", err)
	}

	if _, err := env.market.Delivery(ctx, testCarol, itemID, 0, testBob); !IsPrecondition(err) {
		t.Errorf("non-poster delivery should fail, got %v", err)
	}
	if _, err := env.market.Delivery(ctx, testAlice, itemID, 0, testCarol); !IsPrecondition(err) {
		t.Errorf("wrong-account delivery should fail, got %v", err)
	}
	if _, err := env.market.Delivery(ctx, testAlice, itemID, 3, testBob); !IsPrecondition(err) {
		t.Errorf("out-of-range delivery should fail, got %v", err)
	}

	redemption, err := env.market.Delivery(ctx, testAlice, itemID, 0, testBob)
	if err != nil {
		t.Fatalf("delivery: %v", err)
	}
	if redemption.DeliveredAt == nil {
		t.Error("delivered_at not set")
	}

	// Delivering twice is refused.
	if _, err := env.market.Delivery(ctx, testAlice, itemID, 0, testBob); !IsPrecondition(err) {
		t.Errorf("double delivery should fail, got %v", err)
	}
}

func TestConfirmGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	itemID := openItem(t, env, testAlice, 20, 5, false)
	if _, err := env.market.Redeem(ctx, testBob, itemID); err != nil {
		t.Fatalf("redeem: %v", err)
	}

	// Not yet delivered.
	if _, err := env.market.Confirm(ctx, testBob, itemID, 0); !IsPrecondition(err) {
		t.Errorf("confirm before delivery should fail, got %v", err)
	}

	if _, err := env.market.Delivery(ctx, testAlice, itemID, 0, testBob); err != nil {
		t.Fatalf("delivery: %v", err)
	}
	if _, err := env.market.Confirm(ctx, testCarol, itemID, 0); !IsPrecondition(err) {
		t.Errorf("third-party confirm should fail, got %v", err)
	}

	// The admin may confirm on the redeemer's behalf.
	if _, err := env.market.Confirm(ctx, testAdmin, itemID, 0); err != nil {
		t.Fatalf("admin confirm: %v", err)
	}
	if got := env.balance(t, testAlice); got != 10_020 {
		t.Errorf("alice balance = %d, want 10020", got)
	}
}

func TestVoidRedemptionOnlyFromRedeemState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	itemID := openItem(t, env, testAlice, 20, 5, false)
	if _, err := env.market.Redeem(ctx, testBob, itemID); err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if _, err := env.market.Delivery(ctx, testAlice, itemID, 0, testBob); err != nil {
		t.Fatalf("delivery: %v", err)
	}

	// Delivered redemptions can no longer back out.
	if _, err := env.market.VoidRedemption(ctx, testBob, itemID, 0); !IsPrecondition(err) {
		t.Errorf("void of delivered redemption should fail, got %v", err)
	}

	if _, err := env.market.Confirm(ctx, testBob, itemID, 0); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := env.market.VoidRedemption(ctx, testAdmin, itemID, 0); !IsPrecondition(err) {
		t.Errorf("void of confirmed redemption should fail, got %v", err)
	}
}

func TestVoidRedemptionRefundsOriginalRedeemer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	itemID := openItem(t, env, testAlice, 120, 5, false)
	if _, err := env.market.Redeem(ctx, testBob, itemID); err != nil {
		t.Fatalf("redeem: %v", err)
	}

	// Admin voids; the refund still lands on bob.
	if _, err := env.market.VoidRedemption(ctx, testAdmin, itemID, 0); err != nil {
		t.Fatalf("admin void: %v", err)
	}
	if got := env.balance(t, testBob); got != 10_000 {
		t.Errorf("bob balance = %d, want 10000", got)
	}
	if got := env.locked(t, models.WorkflowMarket); got != 0 {
		t.Errorf("locked = %d, want 0", got)
	}

	// After voiding, the non-repeatable guard lets bob redeem again.
	if _, err := env.market.Redeem(ctx, testBob, itemID); err != nil {
		t.Errorf("re-redeem after void: %v", err)
	}
}

func TestVoidPostedItem(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	itemID := openItem(t, env, testAlice, 30, 5, false)
	if _, err := env.market.Redeem(ctx, testBob, itemID); err != nil {
		t.Fatalf("redeem: %v", err)
	}

	if _, err := env.market.VoidPostedItem(ctx, testCarol, itemID); !IsPrecondition(err) {
		t.Errorf("third-party void should fail, got %v", err)
	}
	if _, err := env.market.VoidPostedItem(ctx, testAlice, itemID); err != nil {
		t.Fatalf("void item: %v", err)
	}

	// No new redemptions on a void item.
	if _, err := env.market.Redeem(ctx, testCarol, itemID); !IsPrecondition(err) {
		t.Errorf("redeem of void item should fail, got %v", err)
	}
	// The outstanding redemption still settles through its own path.
	if _, err := env.market.Delivery(ctx, testAlice, itemID, 0, testBob); err != nil {
		t.Fatalf("delivery on void item: %v", err)
	}
	if _, err := env.market.Confirm(ctx, testBob, itemID, 0); err != nil {
		t.Fatalf("confirm on void item: %v", err)
	}
	if got := env.locked(t, models.WorkflowMarket); got != 0 {
		t.Errorf("locked = %d, want 0", got)
	}

	// Re-voiding is refused.
	if _, err := env.market.VoidPostedItem(ctx, testAlice, itemID); !IsPrecondition(err) {
		t.Errorf("double void should fail, got %v", err)
	}
}

func TestRejectItemRequiresAdminAndPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	itemID := postItem(t, env, testAlice, 10, 5, false)
	if _, err := env.market.RejectItem(ctx, testAlice, itemID); !IsPrecondition(err) {
		t.Errorf("non-admin reject should fail, got %v", err)
	}
	if _, err := env.market.RejectItem(ctx, testAdmin, itemID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := env.market.ApproveItem(ctx, testAdmin, itemID); !IsPrecondition(err) {
		t.Errorf("approve after reject should fail, got %v", err)
	}
}

func TestGetRedemptionBounds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	itemID := openItem(t, env, testAlice, 10, 5, false)
	if _, err := env.market.Redeem(ctx, testBob, itemID); err != nil {
		t.Fatalf("redeem: %v", err)
	}

	if _, err := env.market.GetRedemption(ctx, itemID, -1); !IsPrecondition(err) {
		t.Errorf("negative index should fail, got %v", err)
	}
	if _, err := env.market.GetRedemption(ctx, itemID, 1); !IsPrecondition(err) {
		t.Errorf("out-of-range index should fail, got %v", err)
	}
	redemption, err := env.market.GetRedemption(ctx, itemID, 0)
	if err != nil {
		t.Fatalf("get redemption: %v", err)
	}
	if redemption.Redeemer != testBob {
		t.Errorf("redeemer = %s, want %s", redemption.Redeemer, testBob)
	}
}

func TestGetItemNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.market.GetItem(context.Background(), 99)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestItemIDsAreMonotonicAndSeparateFromFavors(t *testing.T) {
	env := newTestEnv(t)

	favorID := postFavor(t, env, testAlice, 10)
	firstItem := postItem(t, env, testAlice, 10, 5, false)
	secondItem := postItem(t, env, testBob, 10, 5, false)

	if favorID != 1 {
		t.Errorf("first favor id = %d, want 1", favorID)
	}
	if firstItem != 1 || secondItem != 2 {
		t.Errorf("item ids = %d, %d; want 1, 2", firstItem, secondItem)
	}
}
