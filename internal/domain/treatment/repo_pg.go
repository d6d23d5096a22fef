package treatment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clinicdesk/clinicdesk/internal/platform/db"
)

type repoPG struct {
	pool db.Pool
}

func NewRepo(pool db.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

var snapshotTx = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

const (
	groupCols     = `id, name_en, name_ar, color, created_at`
	treatmentCols = `id, group_id, name_en, name_ar, base_price, created_at`
)

func (r *repoPG) ListGroups(ctx context.Context) ([]Group, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+groupCols+` FROM treatment_group ORDER BY name_en`)
	if err != nil {
		return nil, fmt.Errorf("list treatment groups: %w", err)
	}
	defer rows.Close()

	out := []Group{}
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.NameEn, &g.NameAr, &g.Color, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan treatment group: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *repoPG) Catalog(ctx context.Context) ([]Group, error) {
	var groups []Group
	err := db.RunInTxWithOptions(ctx, r.pool, snapshotTx, func(ctx context.Context) error {
		var err error
		if groups, err = r.ListGroups(ctx); err != nil {
			return err
		}
		all, err := r.queryTreatments(ctx, `SELECT `+treatmentCols+` FROM treatment ORDER BY name_en, id`)
		if err != nil {
			return err
		}

		idx := make(map[uuid.UUID]int, len(groups))
		for i := range groups {
			groups[i].Treatments = []Treatment{}
			idx[groups[i].ID] = i
		}
		for _, t := range all {
			if i, ok := idx[t.GroupID]; ok {
				groups[i].Treatments = append(groups[i].Treatments, t)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *repoPG) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]Treatment, error) {
	return r.queryTreatments(ctx, `SELECT `+treatmentCols+` FROM treatment WHERE group_id = $1 ORDER BY name_en, id`, groupID)
}

func (r *repoPG) queryTreatments(ctx context.Context, sql string, args ...any) ([]Treatment, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list treatments: %w", err)
	}
	defer rows.Close()

	out := []Treatment{}
	for rows.Next() {
		var t Treatment
		if err := rows.Scan(&t.ID, &t.GroupID, &t.NameEn, &t.NameAr, &t.BasePrice, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan treatment: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *repoPG) CreateGroup(ctx context.Context, g *Group) error {
	g.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO treatment_group (id, name_en, name_ar, color)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		g.ID, g.NameEn, g.NameAr, g.Color).Scan(&g.CreatedAt)
	if db.IsUniqueViolation(err, "treatment_group_name_en_key") {
		return ErrDuplicateName
	}
	if err != nil {
		return fmt.Errorf("insert treatment group: %w", err)
	}
	return nil
}

// DeleteGroup removes the group; its treatments go with it via ON DELETE CASCADE.
func (r *repoPG) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM treatment_group WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete treatment group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrGroupNotFound
	}
	return nil
}

func (r *repoPG) CreateTreatment(ctx context.Context, t *Treatment) error {
	t.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO treatment (id, group_id, name_en, name_ar, base_price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		t.ID, t.GroupID, t.NameEn, t.NameAr, t.BasePrice).Scan(&t.CreatedAt)
	if db.IsForeignKeyViolation(err) {
		return ErrGroupNotFound
	}
	if err != nil {
		return fmt.Errorf("insert treatment: %w", err)
	}
	return nil
}

func (r *repoPG) DeleteTreatment(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM treatment WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete treatment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
