package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/garderoba/internal/db"
	"github.com/erazemk/garderoba/internal/model"
)

// seedSwapParties creates a requester, an owner and one of the owner's items.
func seedSwapParties(t *testing.T, database *sql.DB) (*model.User, *model.User, *model.Item) {
	t.Helper()
	ctx := context.Background()

	requester, err := CreateUser(ctx, database, "requester", "hash", model.RoleUser)
	if err != nil {
		t.Fatalf("creating requester: %v", err)
	}
	owner, err := CreateUser(ctx, database, "owner", "hash", model.RoleUser)
	if err != nil {
		t.Fatalf("creating owner: %v", err)
	}
	item, err := CreateItem(ctx, database, owner.ID, "Denim jacket", "Lightly worn", "jackets", "M", model.ConditionGood, 30)
	if err != nil {
		t.Fatalf("creating item: %v", err)
	}
	return requester, owner, item
}

// newPointsSwap builds an unsaved pending points swap.
func newPointsSwap(requesterID, ownerID, itemID int64, points int) *model.Swap {
	now := time.Now().UTC().Truncate(time.Second)
	return &model.Swap{
		ID:            uuid.NewString(),
		Kind:          model.SwapPoints,
		RequesterID:   requesterID,
		OwnerID:       ownerID,
		ItemID:        itemID,
		PointsOffered: &points,
		Status:        model.SwapPending,
		CreatedAt:     now,
		ExpiresAt:     now.Add(7 * 24 * time.Hour),
	}
}

func TestInsertAndGetSwap(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	requester, owner, item := seedSwapParties(t, database)

	s := newPointsSwap(requester.ID, owner.ID, item.ID, 30)
	s.Message = "Would love this one"
	if err := InsertSwap(ctx, database, s); err != nil {
		t.Fatalf("InsertSwap: %v", err)
	}

	got, err := GetSwap(ctx, database, s.ID)
	if err != nil {
		t.Fatalf("GetSwap: %v", err)
	}
	if got == nil {
		t.Fatal("expected swap to exist")
	}
	if got.Status != model.SwapPending {
		t.Errorf("expected status pending, got %q", got.Status)
	}
	if got.PointsOffered == nil || *got.PointsOffered != 30 {
		t.Errorf("expected 30 points offered, got %v", got.PointsOffered)
	}
	if got.ItemTitle != "Denim jacket" || got.RequesterName != "requester" || got.OwnerName != "owner" {
		t.Errorf("expected joined names, got %q/%q/%q", got.ItemTitle, got.RequesterName, got.OwnerName)
	}
	if got.Message != "Would love this one" {
		t.Errorf("expected message, got %q", got.Message)
	}
}

func TestInsertSwapDuplicateActive(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	requester, owner, item := seedSwapParties(t, database)

	first := newPointsSwap(requester.ID, owner.ID, item.ID, 30)
	if err := InsertSwap(ctx, database, first); err != nil {
		t.Fatalf("InsertSwap: %v", err)
	}

	// A second active swap by the same requester for the same item is refused.
	second := newPointsSwap(requester.ID, owner.ID, item.ID, 30)
	if err := InsertSwap(ctx, database, second); !errors.Is(err, ErrDuplicateActiveSwap) {
		t.Fatalf("expected ErrDuplicateActiveSwap, got %v", err)
	}

	// Once the first swap is terminal the pair is free again.
	if ok, err := SetSwapStatus(ctx, database, first.ID, model.SwapPending, model.SwapCancelled); err != nil || !ok {
		t.Fatalf("SetSwapStatus: ok=%v err=%v", ok, err)
	}
	third := newPointsSwap(requester.ID, owner.ID, item.ID, 30)
	if err := InsertSwap(ctx, database, third); err != nil {
		t.Errorf("expected insert after cancellation to succeed, got %v", err)
	}
}

func TestSetSwapStatusCompareAndSet(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	requester, owner, item := seedSwapParties(t, database)
	s := newPointsSwap(requester.ID, owner.ID, item.ID, 30)
	InsertSwap(ctx, database, s)

	ok, err := SetSwapStatus(ctx, database, s.ID, model.SwapPending, model.SwapAccepted)
	if err != nil || !ok {
		t.Fatalf("expected transition to apply, ok=%v err=%v", ok, err)
	}

	// The swap is no longer pending, so the same transition loses.
	ok, err = SetSwapStatus(ctx, database, s.ID, model.SwapPending, model.SwapRejected)
	if err != nil {
		t.Fatalf("SetSwapStatus: %v", err)
	}
	if ok {
		t.Error("expected stale transition not to apply")
	}

	got, _ := GetSwap(ctx, database, s.ID)
	if got.Status != model.SwapAccepted {
		t.Errorf("expected status accepted, got %q", got.Status)
	}
}

func TestMarkSwapCompleted(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	requester, owner, item := seedSwapParties(t, database)
	s := newPointsSwap(requester.ID, owner.ID, item.ID, 30)
	InsertSwap(ctx, database, s)

	now := time.Now().UTC().Truncate(time.Second)

	// Completion requires acceptance first.
	ok, err := MarkSwapCompleted(ctx, database, s.ID, now)
	if err != nil {
		t.Fatalf("MarkSwapCompleted: %v", err)
	}
	if ok {
		t.Error("expected completion of a pending swap not to apply")
	}

	SetSwapStatus(ctx, database, s.ID, model.SwapPending, model.SwapAccepted)
	ok, err = MarkSwapCompleted(ctx, database, s.ID, now)
	if err != nil || !ok {
		t.Fatalf("expected completion to apply, ok=%v err=%v", ok, err)
	}

	got, _ := GetSwap(ctx, database, s.ID)
	if got.Status != model.SwapCompleted {
		t.Errorf("expected status completed, got %q", got.Status)
	}
	if got.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}
}

func TestSwapEventsTimeline(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	requester, owner, item := seedSwapParties(t, database)
	s := newPointsSwap(requester.ID, owner.ID, item.ID, 30)
	InsertSwap(ctx, database, s)

	base := time.Now().UTC().Truncate(time.Second)
	AppendSwapEvent(ctx, database, s.ID, model.SwapPending, "requested", base)
	AppendSwapEvent(ctx, database, s.ID, model.SwapAccepted, "", base.Add(time.Minute))

	events, err := ListSwapEvents(ctx, database, s.ID)
	if err != nil {
		t.Fatalf("ListSwapEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Status != model.SwapPending || events[1].Status != model.SwapAccepted {
		t.Errorf("expected oldest-first order, got %q then %q", events[0].Status, events[1].Status)
	}
	if events[0].Note != "requested" {
		t.Errorf("expected note on first event, got %q", events[0].Note)
	}
}

func TestListSwapsForUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	requester, owner, item := seedSwapParties(t, database)
	item2, _ := CreateItem(ctx, database, requester.ID, "Wool scarf", "", "accessories", "", model.ConditionLikeNew, 10)

	// Requester asks for the owner's jacket; owner asks for the requester's scarf.
	s1 := newPointsSwap(requester.ID, owner.ID, item.ID, 30)
	InsertSwap(ctx, database, s1)
	s2 := newPointsSwap(owner.ID, requester.ID, item2.ID, 10)
	InsertSwap(ctx, database, s2)
	SetSwapStatus(ctx, database, s2.ID, model.SwapPending, model.SwapRejected)

	// Both swaps involve the requester, once per side.
	swaps, err := ListSwapsForUser(ctx, database, requester.ID, "")
	if err != nil {
		t.Fatalf("ListSwapsForUser: %v", err)
	}
	if len(swaps) != 2 {
		t.Errorf("expected 2 swaps, got %d", len(swaps))
	}

	pending, _ := ListSwapsForUser(ctx, database, requester.ID, model.SwapPending)
	if len(pending) != 1 || pending[0].ID != s1.ID {
		t.Errorf("expected only the pending swap, got %d", len(pending))
	}
}

func TestListExpiredPending(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	requester, owner, item := seedSwapParties(t, database)
	item2, _ := CreateItem(ctx, database, owner.ID, "Linen shirt", "", "shirts", "L", model.ConditionGood, 15)
	item3, _ := CreateItem(ctx, database, owner.ID, "Rain coat", "", "coats", "M", model.ConditionGood, 25)

	now := time.Now().UTC().Truncate(time.Second)

	expired := newPointsSwap(requester.ID, owner.ID, item.ID, 30)
	expired.ExpiresAt = now.Add(-time.Hour)
	InsertSwap(ctx, database, expired)

	fresh := newPointsSwap(requester.ID, owner.ID, item2.ID, 15)
	InsertSwap(ctx, database, fresh)

	// An accepted swap never expires, however old its deadline.
	accepted := newPointsSwap(requester.ID, owner.ID, item3.ID, 25)
	accepted.ExpiresAt = now.Add(-time.Hour)
	InsertSwap(ctx, database, accepted)
	SetSwapStatus(ctx, database, accepted.ID, model.SwapPending, model.SwapAccepted)

	got, err := ListExpiredPending(ctx, database, now)
	if err != nil {
		t.Fatalf("ListExpiredPending: %v", err)
	}
	if len(got) != 1 || got[0].ID != expired.ID {
		t.Fatalf("expected only the expired pending swap, got %d", len(got))
	}
}
