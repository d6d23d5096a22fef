package facility

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/domain/account"
	"github.com/clinicdesk/clinicdesk/internal/platform/db"
)

type storePG struct {
	pool db.Pool
}

func NewStore(pool db.Pool) Store {
	return &storePG{pool: pool}
}

func (s *storePG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, s.pool)
}

const facilityCols = `id, kind, name, name_ar, status, subscription_ends_at, created_at, updated_at`

// allFacilities presents both tables as one relation for listing.
const allFacilities = `(
	SELECT id, 'clinic' AS kind, name, name_ar, status, subscription_ends_at, created_at, updated_at FROM clinic
	UNION ALL
	SELECT id, 'medical_center' AS kind, name, name_ar, status, subscription_ends_at, created_at, updated_at FROM medical_center
) f`

func (s *storePG) SuspendExpired(ctx context.Context, now time.Time) (int64, int64, error) {
	var clinics, centers int64
	err := db.RunInTx(ctx, s.pool, func(ctx context.Context) error {
		tag, err := s.conn(ctx).Exec(ctx, `
			UPDATE clinic SET status = 'SUSPENDED', updated_at = $1
			WHERE status = 'ACTIVE' AND subscription_ends_at < $1`, now)
		if err != nil {
			return fmt.Errorf("suspend expired clinics: %w", err)
		}
		clinics = tag.RowsAffected()

		tag, err = s.conn(ctx).Exec(ctx, `
			UPDATE medical_center SET status = 'SUSPENDED', updated_at = $1
			WHERE status = 'ACTIVE' AND subscription_ends_at < $1`, now)
		if err != nil {
			return fmt.Errorf("suspend expired medical centers: %w", err)
		}
		centers = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return clinics, centers, nil
}

func (s *storePG) UpdateClinicStatus(ctx context.Context, id uuid.UUID, status account.Status, endsAt *time.Time) (*Facility, error) {
	return s.updateStatus(ctx, "clinic", KindClinic, id, status, endsAt)
}

func (s *storePG) UpdateCenterStatus(ctx context.Context, id uuid.UUID, status account.Status, endsAt *time.Time) (*Facility, error) {
	return s.updateStatus(ctx, "medical_center", KindCenter, id, status, endsAt)
}

// updateStatus is a single UPDATE; a nil endsAt keeps the current expiry.
func (s *storePG) updateStatus(ctx context.Context, table string, kind Kind, id uuid.UUID, status account.Status, endsAt *time.Time) (*Facility, error) {
	f := Facility{Kind: kind}
	var st string
	err := s.conn(ctx).QueryRow(ctx, `
		UPDATE `+table+`
		SET status = $2, subscription_ends_at = COALESCE($3, subscription_ends_at), updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, name_ar, status, subscription_ends_at, created_at, updated_at`,
		id, string(status), endsAt).
		Scan(&f.ID, &f.Name, &f.NameAr, &st, &f.SubscriptionEndsAt, &f.CreatedAt, &f.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update %s status: %w", table, err)
	}
	f.Status = account.Status(st)
	return &f, nil
}

func (s *storePG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]Facility, int, error) {
	q := db.NewQuery(allFacilities, facilityCols)
	if filter.Kind != "" {
		q.AddEq("kind", string(filter.Kind))
	}
	if filter.Status != "" {
		q.AddEq("status", string(filter.Status))
	}
	if filter.Name != "" {
		q.Add(fmt.Sprintf("(name ILIKE $%d OR name_ar ILIKE $%d)", q.Idx(), q.Idx()), "%"+filter.Name+"%")
	}
	q.OrderBy("created_at DESC, id")

	var total int
	if err := s.conn(ctx).QueryRow(ctx, q.CountSQL(), q.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count facilities: %w", err)
	}

	rows, err := s.conn(ctx).Query(ctx, q.DataSQL(), q.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list facilities: %w", err)
	}
	defer rows.Close()

	out := []Facility{}
	for rows.Next() {
		var (
			f          Facility
			kind, stat string
		)
		if err := rows.Scan(&f.ID, &kind, &f.Name, &f.NameAr, &stat, &f.SubscriptionEndsAt, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan facility: %w", err)
		}
		f.Kind = Kind(kind)
		f.Status = account.Status(stat)
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate facilities: %w", err)
	}
	return out, total, nil
}
