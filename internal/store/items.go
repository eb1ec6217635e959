package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/garderoba/internal/model"
)

// ErrItemInUse is returned when deleting an item that an active swap still
// references.
var ErrItemInUse = errors.New("item is referenced by an active swap")

const itemColumns = `i.id, i.owner_id, i.title, i.description, i.category, i.size, i.condition,
	        i.point_value, i.availability, i.moderation, i.image_mime,
	        i.created_at, i.updated_at, i.deleted_at, u.username AS owner_name`

// CreateItem creates a new garment listing. The point value is fixed for the
// lifetime of the item. New listings start available and pending moderation.
func CreateItem(ctx context.Context, q Querier, ownerID int64, title, description, category, size string, condition model.ItemCondition, pointValue int) (*model.Item, error) {
	if pointValue <= 0 {
		return nil, fmt.Errorf("point value must be positive")
	}

	result, err := q.ExecContext(ctx,
		`INSERT INTO items (owner_id, title, description, category, size, condition, point_value)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ownerID, title, description, category, size, condition, pointValue,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, q, id)
}

// GetItem returns an item by ID, including soft-deleted ones (for history).
func GetItem(ctx context.Context, q Querier, id int64) (*model.Item, error) {
	item := &model.Item{}
	var description, category, size, imageMime sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT `+itemColumns+`
		 FROM items i JOIN users u ON u.id = i.owner_id
		 WHERE i.id = ?`, id,
	).Scan(&item.ID, &item.OwnerID, &item.Title, &description, &category, &size, &item.Condition,
		&item.PointValue, &item.Availability, &item.Moderation, &imageMime,
		&item.CreatedAt, &item.UpdatedAt, &item.DeletedAt, &item.OwnerName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	item.Description = description.String
	item.Category = category.String
	item.Size = size.String
	item.ImageMime = imageMime.String
	return item, nil
}

// ItemFilter narrows ListItems results. Zero values mean "no filter".
type ItemFilter struct {
	OwnerID      int64
	Availability model.ItemAvailability
	Moderation   model.ItemModeration
	Category     string
}

// ListItems returns non-deleted items matching the filter, newest first.
func ListItems(ctx context.Context, q Querier, f ItemFilter) ([]model.Item, error) {
	query := `SELECT ` + itemColumns + `
	          FROM items i JOIN users u ON u.id = i.owner_id
	          WHERE i.deleted_at IS NULL`
	var args []any

	if f.OwnerID > 0 {
		query += ` AND i.owner_id = ?`
		args = append(args, f.OwnerID)
	}
	if f.Availability != "" {
		query += ` AND i.availability = ?`
		args = append(args, f.Availability)
	}
	if f.Moderation != "" {
		query += ` AND i.moderation = ?`
		args = append(args, f.Moderation)
	}
	if f.Category != "" {
		query += ` AND i.category = ?`
		args = append(args, f.Category)
	}

	query += ` ORDER BY i.created_at DESC, i.id DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		var item model.Item
		var description, category, size, imageMime sql.NullString
		if err := rows.Scan(&item.ID, &item.OwnerID, &item.Title, &description, &category, &size, &item.Condition,
			&item.PointValue, &item.Availability, &item.Moderation, &imageMime,
			&item.CreatedAt, &item.UpdatedAt, &item.DeletedAt, &item.OwnerName); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		item.Description = description.String
		item.Category = category.String
		item.Size = size.String
		item.ImageMime = imageMime.String
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpdateItem updates an item's listing metadata. Point value and
// availability are deliberately not updatable here: the former is fixed at
// creation, the latter belongs to the swap engine.
func UpdateItem(ctx context.Context, q Querier, id int64, title, description, category, size string, condition model.ItemCondition) error {
	_, err := q.ExecContext(ctx,
		`UPDATE items SET title = ?, description = ?, category = ?, size = ?, condition = ?,
		        updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		title, description, category, size, condition, id,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return nil
}

// SetItemModeration records a moderation decision for a listing.
func SetItemModeration(ctx context.Context, q Querier, id int64, m model.ItemModeration) error {
	_, err := q.ExecContext(ctx,
		`UPDATE items SET moderation = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		m, id,
	)
	if err != nil {
		return fmt.Errorf("setting item moderation: %w", err)
	}
	return nil
}

// SetItemAvailability moves an item between availability states with
// compare-and-set semantics: the update only applies when the item is
// currently in the from state. Returns false, not an error, when the item
// was in any other state, so callers can treat "someone else got there
// first" as an expected outcome. Transitions outside the availability state
// machine are an error.
func SetItemAvailability(ctx context.Context, q Querier, id int64, from, to model.ItemAvailability) (bool, error) {
	if !model.ValidAvailabilityTransition(from, to) {
		return false, fmt.Errorf("invalid availability transition %q to %q", from, to)
	}
	result, err := q.ExecContext(ctx,
		`UPDATE items SET availability = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND availability = ? AND deleted_at IS NULL`,
		to, id, from,
	)
	if err != nil {
		return false, fmt.Errorf("setting item availability: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("setting item availability: %w", err)
	}
	return n == 1, nil
}

// DeleteItem soft-deletes an item unless an active swap references it as
// either the requested or the offered side. The guard is part of the UPDATE
// itself so concurrent swap acceptance cannot slip past it.
func DeleteItem(ctx context.Context, q Querier, id int64) error {
	result, err := q.ExecContext(ctx,
		`UPDATE items SET deleted_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL
		   AND NOT EXISTS (SELECT 1 FROM swaps
		                   WHERE (swaps.item_id = items.id OR swaps.offered_item_id = items.id)
		                     AND swaps.status IN ('pending', 'accepted'))`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	if n == 0 {
		item, err := GetItem(ctx, q, id)
		if err != nil {
			return err
		}
		if item != nil && item.DeletedAt == nil {
			return ErrItemInUse
		}
	}
	return nil
}

// SetItemImage sets an item's image data.
func SetItemImage(ctx context.Context, q Querier, id int64, image []byte, mime string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE items SET image = ?, image_mime = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		image, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	return nil
}

// GetItemImage returns an item's image data and MIME type.
func GetItemImage(ctx context.Context, q Querier, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT image, image_mime FROM items WHERE id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return image, mime.String, nil
}
