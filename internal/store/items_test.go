package store

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/garderoba/internal/db"
	"github.com/erazemk/garderoba/internal/model"
)

func TestCreateAndGetListing(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	owner, _ := CreateUser(ctx, database, "alice", "hash", model.RoleUser)

	item, err := CreateItem(ctx, database, owner.ID, "Denim jacket", "Lightly worn", "jackets", "M", model.ConditionGood, 30)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if item.Availability != model.ItemAvailable {
		t.Errorf("expected new item to be available, got %q", item.Availability)
	}
	if item.Moderation != model.ModerationPending {
		t.Errorf("expected new item to be pending moderation, got %q", item.Moderation)
	}
	if item.PointValue != 30 {
		t.Errorf("expected point value 30, got %d", item.PointValue)
	}
	if item.OwnerName != "alice" {
		t.Errorf("expected joined owner name, got %q", item.OwnerName)
	}
}

func TestCreateItemRejectsNonPositiveValue(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	owner, _ := CreateUser(ctx, database, "alice", "hash", model.RoleUser)

	if _, err := CreateItem(ctx, database, owner.ID, "Freebie", "", "", "", model.ConditionGood, 0); err == nil {
		t.Error("expected error for zero point value")
	}
}

func TestListItemsFiltered(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	alice, _ := CreateUser(ctx, database, "alice", "hash", model.RoleUser)
	bob, _ := CreateUser(ctx, database, "bob", "hash", model.RoleUser)

	jacket, _ := CreateItem(ctx, database, alice.ID, "Denim jacket", "", "jackets", "M", model.ConditionGood, 30)
	scarf, _ := CreateItem(ctx, database, bob.ID, "Wool scarf", "", "accessories", "", model.ConditionLikeNew, 10)
	SetItemModeration(ctx, database, jacket.ID, model.ModerationApproved)
	SetItemAvailability(ctx, database, scarf.ID, model.ItemAvailable, model.ItemReserved)

	all, _ := ListItems(ctx, database, ItemFilter{})
	if len(all) != 2 {
		t.Errorf("expected 2 items, got %d", len(all))
	}

	approved, _ := ListItems(ctx, database, ItemFilter{Moderation: model.ModerationApproved})
	if len(approved) != 1 || approved[0].ID != jacket.ID {
		t.Errorf("expected only the approved jacket, got %d items", len(approved))
	}

	available, _ := ListItems(ctx, database, ItemFilter{Availability: model.ItemAvailable})
	if len(available) != 1 || available[0].ID != jacket.ID {
		t.Errorf("expected only the available jacket, got %d items", len(available))
	}

	byOwner, _ := ListItems(ctx, database, ItemFilter{OwnerID: bob.ID})
	if len(byOwner) != 1 || byOwner[0].ID != scarf.ID {
		t.Errorf("expected only bob's scarf, got %d items", len(byOwner))
	}

	byCategory, _ := ListItems(ctx, database, ItemFilter{Category: "jackets"})
	if len(byCategory) != 1 || byCategory[0].ID != jacket.ID {
		t.Errorf("expected only the jacket, got %d items", len(byCategory))
	}
}

func TestSetItemAvailabilityCompareAndSet(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	owner, _ := CreateUser(ctx, database, "alice", "hash", model.RoleUser)
	item, _ := CreateItem(ctx, database, owner.ID, "Denim jacket", "", "jackets", "M", model.ConditionGood, 30)

	ok, err := SetItemAvailability(ctx, database, item.ID, model.ItemAvailable, model.ItemReserved)
	if err != nil || !ok {
		t.Fatalf("expected reservation to apply, ok=%v err=%v", ok, err)
	}

	// The item is no longer available, so a second reservation loses.
	ok, err = SetItemAvailability(ctx, database, item.ID, model.ItemAvailable, model.ItemReserved)
	if err != nil {
		t.Fatalf("SetItemAvailability: %v", err)
	}
	if ok {
		t.Error("expected stale reservation not to apply")
	}

	ok, _ = SetItemAvailability(ctx, database, item.ID, model.ItemReserved, model.ItemAvailable)
	if !ok {
		t.Error("expected release back to available to apply")
	}

	// Jumps outside the state machine are refused outright.
	if _, err := SetItemAvailability(ctx, database, item.ID, model.ItemAvailable, model.ItemSwapped); err == nil {
		t.Error("expected error for a transition the state machine forbids")
	}
}

func TestUpdateItemKeepsPointValue(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	owner, _ := CreateUser(ctx, database, "alice", "hash", model.RoleUser)
	item, _ := CreateItem(ctx, database, owner.ID, "Denim jacket", "", "jackets", "M", model.ConditionGood, 30)

	if err := UpdateItem(ctx, database, item.ID, "Vintage denim jacket", "Now vintage", "jackets", "M", model.ConditionWorn); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}

	got, _ := GetItem(ctx, database, item.ID)
	if got.Title != "Vintage denim jacket" {
		t.Errorf("expected updated title, got %q", got.Title)
	}
	if got.PointValue != 30 {
		t.Errorf("expected point value to stay 30, got %d", got.PointValue)
	}
}

func TestDeleteItemBlockedByActiveSwap(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	requester, owner, item := seedSwapParties(t, database)

	s := newPointsSwap(requester.ID, owner.ID, item.ID, 30)
	if err := InsertSwap(ctx, database, s); err != nil {
		t.Fatalf("InsertSwap: %v", err)
	}

	if err := DeleteItem(ctx, database, item.ID); !errors.Is(err, ErrItemInUse) {
		t.Fatalf("expected ErrItemInUse, got %v", err)
	}

	// Once the swap is terminal the item can go.
	SetSwapStatus(ctx, database, s.ID, model.SwapPending, model.SwapCancelled)
	if err := DeleteItem(ctx, database, item.ID); err != nil {
		t.Fatalf("DeleteItem after cancellation: %v", err)
	}

	got, _ := GetItem(ctx, database, item.ID)
	if got == nil || got.DeletedAt == nil {
		t.Error("expected item to be soft-deleted but still fetchable")
	}

	// Deleting again is a no-op.
	if err := DeleteItem(ctx, database, item.ID); err != nil {
		t.Errorf("expected repeat delete to be a no-op, got %v", err)
	}
}

func TestDeleteItemBlockedAsOfferedSide(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	requester, owner, item := seedSwapParties(t, database)
	offered, _ := CreateItem(ctx, database, requester.ID, "Wool scarf", "", "accessories", "", model.ConditionLikeNew, 10)

	s := newPointsSwap(requester.ID, owner.ID, item.ID, 30)
	s.Kind = model.SwapDirect
	s.PointsOffered = nil
	s.OfferedItemID = &offered.ID
	if err := InsertSwap(ctx, database, s); err != nil {
		t.Fatalf("InsertSwap: %v", err)
	}

	if err := DeleteItem(ctx, database, offered.ID); !errors.Is(err, ErrItemInUse) {
		t.Errorf("expected ErrItemInUse for the offered side, got %v", err)
	}
}

func TestListingImage(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	owner, _ := CreateUser(ctx, database, "alice", "hash", model.RoleUser)
	item, _ := CreateItem(ctx, database, owner.ID, "Denim jacket", "", "jackets", "M", model.ConditionGood, 30)

	imageData := []byte("fake image data")
	SetItemImage(ctx, database, item.ID, imageData, "image/jpeg")

	data, mime, err := GetItemImage(ctx, database, item.ID)
	if err != nil {
		t.Fatalf("GetItemImage: %v", err)
	}
	if string(data) != "fake image data" {
		t.Errorf("expected image data, got %q", string(data))
	}
	if mime != "image/jpeg" {
		t.Errorf("expected mime 'image/jpeg', got %q", mime)
	}
}
