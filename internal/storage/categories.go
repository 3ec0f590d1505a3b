package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/itsmibrahim123/ExpenseManager/internal/core"
)

type categoryStore struct {
	q Querier
}

func (s *categoryStore) Create(ctx context.Context, c core.Category) (core.Category, error) {
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO categories (owner_id, name, type, color) VALUES (?, ?, ?, ?)`,
		c.OwnerID, c.Name, string(c.Type), c.Color,
	)
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("category insert id: %w", err)
	}
	c.ID = id
	return c, nil
}

func (s *categoryStore) Get(ctx context.Context, ownerID, id int64) (core.Category, error) {
	var (
		c   core.Category
		typ string
	)
	err := s.q.QueryRowContext(ctx,
		`SELECT id, owner_id, name, type, color FROM categories WHERE id = ? AND owner_id = ?`,
		id, ownerID,
	).Scan(&c.ID, &c.OwnerID, &c.Name, &typ, &c.Color)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.NewCategoryNotFound(id)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %d: %w", id, err)
	}
	c.Type = core.TransactionType(typ)
	return c, nil
}

func (s *categoryStore) List(ctx context.Context, ownerID int64) ([]core.Category, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, owner_id, name, type, color FROM categories WHERE owner_id = ? ORDER BY type, name`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		var (
			c   core.Category
			typ string
		)
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &typ, &c.Color); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Type = core.TransactionType(typ)
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// FindByType returns the owner's first category of the given type. Used to
// resolve the transfer category instead of hardcoding an id.
func (s *categoryStore) FindByType(ctx context.Context, ownerID int64, txType core.TransactionType) (core.Category, error) {
	var (
		c   core.Category
		typ string
	)
	err := s.q.QueryRowContext(ctx,
		`SELECT id, owner_id, name, type, color FROM categories WHERE owner_id = ? AND type = ? ORDER BY id LIMIT 1`,
		ownerID, string(txType),
	).Scan(&c.ID, &c.OwnerID, &c.Name, &typ, &c.Color)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.NewCategoryNotFound(0)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("find category of type %s: %w", txType, err)
	}
	c.Type = core.TransactionType(typ)
	return c, nil
}

func (s *categoryStore) Update(ctx context.Context, c core.Category) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE categories SET name = ?, type = ?, color = ? WHERE id = ?`,
		c.Name, string(c.Type), c.Color, c.ID,
	)
	if err != nil {
		return fmt.Errorf("update category %d: %w", c.ID, err)
	}
	return requireRow(res, core.NewCategoryNotFound(c.ID))
}

func (s *categoryStore) Delete(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	return requireRow(res, core.NewCategoryNotFound(id))
}
