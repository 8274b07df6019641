package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"census-backend/internal/models"
)

// querier is the pgx surface the repository needs; both *pgxpool.Pool
// and pgx.Tx satisfy it, so the same code runs inside or outside a
// transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// FamilyRepository handles the five census tables
type FamilyRepository struct {
	pool *pgxpool.Pool
	q    querier
}

// NewFamilyRepository creates a repository backed by the pool
func NewFamilyRepository(pool *pgxpool.Pool) *FamilyRepository {
	return &FamilyRepository{pool: pool, q: pool}
}

// RunInTx runs fn against a transaction-bound copy of the repository.
// One form submission maps to one transaction, so a failed insert
// mid-sequence leaves no partially written family behind.
func (r *FamilyRepository) RunInTx(ctx context.Context, fn func(txRepo *FamilyRepository) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin submission transaction: %w", err)
	}

	txRepo := &FamilyRepository{pool: r.pool, q: tx}
	if err := fn(txRepo); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit submission transaction: %w", err)
	}
	return nil
}

// nullIfEmpty maps the form's empty strings to SQL NULL for nullable
// columns (dates, enums).
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// InsertFamilyHead inserts one family head and returns its generated id
func (r *FamilyRepository) InsertFamilyHead(ctx context.Context, row *models.FamilyHeadRow) (string, error) {
	query := `
		INSERT INTO family_heads (first_name, last_name, date_of_birth, age, native_place, current_place, contact_number, marital_status, occupation)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		row.FirstName,
		row.LastName,
		nullIfEmpty(row.DateOfBirth),
		row.Age,
		row.NativePlace,
		row.CurrentPlace,
		row.ContactNumber,
		nullIfEmpty(row.MaritalStatus),
		nullIfEmpty(row.Occupation),
	).Scan(&row.ID, &row.CreatedAt)

	if err != nil {
		return "", fmt.Errorf("insert family head: %w", err)
	}
	return row.ID, nil
}

// InsertSpouse inserts one spouse referencing its family head
func (r *FamilyRepository) InsertSpouse(ctx context.Context, row *models.SpouseRow) (string, error) {
	query := `
		INSERT INTO spouses (family_head_id, first_name, last_name, date_of_birth, age, native_place, contact_number, occupation, number_of_sons, number_of_daughters)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		row.FamilyHeadID,
		row.FirstName,
		row.LastName,
		nullIfEmpty(row.DateOfBirth),
		row.Age,
		row.NativePlace,
		row.ContactNumber,
		nullIfEmpty(row.Occupation),
		row.NumberOfSons,
		row.NumberOfDaughters,
	).Scan(&row.ID, &row.CreatedAt)

	if err != nil {
		return "", fmt.Errorf("insert spouse: %w", err)
	}
	return row.ID, nil
}

// InsertChild inserts one child referencing its family head
func (r *FamilyRepository) InsertChild(ctx context.Context, row *models.ChildRow) (string, error) {
	query := `
		INSERT INTO children (family_head_id, first_name, last_name, date_of_birth, age, contact_number, current_place, phone_number, marital_status, occupation, child_type, child_index)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		row.FamilyHeadID,
		row.FirstName,
		row.LastName,
		nullIfEmpty(row.DateOfBirth),
		row.Age,
		row.ContactNumber,
		row.CurrentPlace,
		row.PhoneNumber,
		nullIfEmpty(row.MaritalStatus),
		nullIfEmpty(row.Occupation),
		row.ChildType,
		row.ChildIndex,
	).Scan(&row.ID, &row.CreatedAt)

	if err != nil {
		return "", fmt.Errorf("insert child: %w", err)
	}
	return row.ID, nil
}

// InsertChildSpouse inserts one child spouse referencing its child
func (r *FamilyRepository) InsertChildSpouse(ctx context.Context, row *models.ChildSpouseRow) (string, error) {
	query := `
		INSERT INTO child_spouses (child_id, first_name, last_name, date_of_birth, age, native_place, contact_number, occupation, number_of_children)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		row.ChildID,
		row.FirstName,
		row.LastName,
		nullIfEmpty(row.DateOfBirth),
		row.Age,
		row.NativePlace,
		row.ContactNumber,
		nullIfEmpty(row.Occupation),
		row.NumberOfChildren,
	).Scan(&row.ID, &row.CreatedAt)

	if err != nil {
		return "", fmt.Errorf("insert child spouse: %w", err)
	}
	return row.ID, nil
}

// InsertGrandchild inserts one grandchild referencing its child spouse
func (r *FamilyRepository) InsertGrandchild(ctx context.Context, row *models.GrandchildRow) (string, error) {
	query := `
		INSERT INTO grandchildren (child_spouse_id, first_name, last_name, date_of_birth, age, contact_number, current_place, phone_number, occupation, grandchild_index)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		row.ChildSpouseID,
		row.FirstName,
		row.LastName,
		nullIfEmpty(row.DateOfBirth),
		row.Age,
		row.ContactNumber,
		row.CurrentPlace,
		row.PhoneNumber,
		nullIfEmpty(row.Occupation),
		row.GrandchildIndex,
	).Scan(&row.ID, &row.CreatedAt)

	if err != nil {
		return "", fmt.Errorf("insert grandchild: %w", err)
	}
	return row.ID, nil
}

// ListFamilyHeads returns every family head, oldest first
func (r *FamilyRepository) ListFamilyHeads(ctx context.Context) ([]models.FamilyHeadRow, error) {
	query := `
		SELECT id, COALESCE(first_name, ''), COALESCE(last_name, ''),
			COALESCE(date_of_birth::text, ''), age,
			COALESCE(native_place, ''), COALESCE(current_place, ''),
			COALESCE(contact_number, ''), COALESCE(marital_status::text, ''),
			COALESCE(occupation::text, ''), created_at
		FROM family_heads
		ORDER BY created_at
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list family heads: %w", err)
	}
	defer rows.Close()

	var heads []models.FamilyHeadRow
	for rows.Next() {
		var h models.FamilyHeadRow
		err := rows.Scan(&h.ID, &h.FirstName, &h.LastName, &h.DateOfBirth, &h.Age,
			&h.NativePlace, &h.CurrentPlace, &h.ContactNumber, &h.MaritalStatus,
			&h.Occupation, &h.CreatedAt)
		if err != nil {
			return nil, err
		}
		heads = append(heads, h)
	}
	return heads, rows.Err()
}

// ListSpouses returns every spouse, oldest first
func (r *FamilyRepository) ListSpouses(ctx context.Context) ([]models.SpouseRow, error) {
	query := `
		SELECT id, family_head_id, COALESCE(first_name, ''), COALESCE(last_name, ''),
			COALESCE(date_of_birth::text, ''), age,
			COALESCE(native_place, ''), COALESCE(contact_number, ''),
			COALESCE(occupation::text, ''), number_of_sons, number_of_daughters, created_at
		FROM spouses
		ORDER BY created_at
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list spouses: %w", err)
	}
	defer rows.Close()

	var spouses []models.SpouseRow
	for rows.Next() {
		var s models.SpouseRow
		err := rows.Scan(&s.ID, &s.FamilyHeadID, &s.FirstName, &s.LastName,
			&s.DateOfBirth, &s.Age, &s.NativePlace, &s.ContactNumber,
			&s.Occupation, &s.NumberOfSons, &s.NumberOfDaughters, &s.CreatedAt)
		if err != nil {
			return nil, err
		}
		spouses = append(spouses, s)
	}
	return spouses, rows.Err()
}

// ListChildren returns every child ordered by family, type and ordinal
func (r *FamilyRepository) ListChildren(ctx context.Context) ([]models.ChildRow, error) {
	query := `
		SELECT id, family_head_id, COALESCE(first_name, ''), COALESCE(last_name, ''),
			COALESCE(date_of_birth::text, ''), age,
			COALESCE(contact_number, ''), COALESCE(current_place, ''),
			COALESCE(phone_number, ''), COALESCE(marital_status::text, ''),
			COALESCE(occupation::text, ''), child_type, child_index, created_at
		FROM children
		ORDER BY created_at, child_type, child_index
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	var children []models.ChildRow
	for rows.Next() {
		var c models.ChildRow
		err := rows.Scan(&c.ID, &c.FamilyHeadID, &c.FirstName, &c.LastName,
			&c.DateOfBirth, &c.Age, &c.ContactNumber, &c.CurrentPlace,
			&c.PhoneNumber, &c.MaritalStatus, &c.Occupation,
			&c.ChildType, &c.ChildIndex, &c.CreatedAt)
		if err != nil {
			return nil, err
		}
		children = append(children, c)
	}
	return children, rows.Err()
}

// ListChildSpouses returns every child spouse, oldest first
func (r *FamilyRepository) ListChildSpouses(ctx context.Context) ([]models.ChildSpouseRow, error) {
	query := `
		SELECT id, child_id, COALESCE(first_name, ''), COALESCE(last_name, ''),
			COALESCE(date_of_birth::text, ''), age,
			COALESCE(native_place, ''), COALESCE(contact_number, ''),
			COALESCE(occupation::text, ''), number_of_children, created_at
		FROM child_spouses
		ORDER BY created_at
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list child spouses: %w", err)
	}
	defer rows.Close()

	var spouses []models.ChildSpouseRow
	for rows.Next() {
		var s models.ChildSpouseRow
		err := rows.Scan(&s.ID, &s.ChildID, &s.FirstName, &s.LastName,
			&s.DateOfBirth, &s.Age, &s.NativePlace, &s.ContactNumber,
			&s.Occupation, &s.NumberOfChildren, &s.CreatedAt)
		if err != nil {
			return nil, err
		}
		spouses = append(spouses, s)
	}
	return spouses, rows.Err()
}

// ListGrandchildren returns every grandchild ordered by parent and ordinal
func (r *FamilyRepository) ListGrandchildren(ctx context.Context) ([]models.GrandchildRow, error) {
	query := `
		SELECT id, child_spouse_id, COALESCE(first_name, ''), COALESCE(last_name, ''),
			COALESCE(date_of_birth::text, ''), age,
			COALESCE(contact_number, ''), COALESCE(current_place, ''),
			COALESCE(phone_number, ''), COALESCE(occupation::text, ''),
			grandchild_index, created_at
		FROM grandchildren
		ORDER BY created_at, grandchild_index
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list grandchildren: %w", err)
	}
	defer rows.Close()

	var grandchildren []models.GrandchildRow
	for rows.Next() {
		var g models.GrandchildRow
		err := rows.Scan(&g.ID, &g.ChildSpouseID, &g.FirstName, &g.LastName,
			&g.DateOfBirth, &g.Age, &g.ContactNumber, &g.CurrentPlace,
			&g.PhoneNumber, &g.Occupation, &g.GrandchildIndex, &g.CreatedAt)
		if err != nil {
			return nil, err
		}
		grandchildren = append(grandchildren, g)
	}
	return grandchildren, rows.Err()
}
