package patient

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

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

const summaryCols = `p.id, p.fullname_en, p.fullname_ar, p.phone_number`

// searchQuery renders p. The facility and grant checks are EXISTS clauses so
// a patient linked to several visible facilities appears once.
func searchQuery(p Predicate) *db.Query {
	q := db.NewQuery("patient p", summaryCols)
	q.AddContains("p.phone_number", p.Phone)

	or := q.Or()
	if len(p.ClinicIDs) > 0 {
		or.Add(fmt.Sprintf(
			"EXISTS (SELECT 1 FROM patient_clinic pc WHERE pc.patient_id = p.id AND pc.clinic_id = ANY($%d))",
			or.Idx()), p.ClinicIDs)
	}
	if len(p.CenterIDs) > 0 {
		or.Add(fmt.Sprintf(
			"EXISTS (SELECT 1 FROM patient_center pm WHERE pm.patient_id = p.id AND pm.center_id = ANY($%d))",
			or.Idx()), p.CenterIDs)
	}
	or.Add(fmt.Sprintf(
		"EXISTS (SELECT 1 FROM patient_access pa WHERE pa.patient_id = p.id AND pa.doctor_id = $%d)",
		or.Idx()), p.GrantDoctorID)
	or.Close()

	q.OrderBy("p.created_at DESC, p.id")
	return q
}

func (r *repoPG) Search(ctx context.Context, p Predicate) ([]Summary, error) {
	out := []Summary{}
	if p.None() {
		return out, nil
	}

	q := searchQuery(p)
	rows, err := r.conn(ctx).Query(ctx, q.DataSQL(), q.DataArgs(SearchLimit, 0)...)
	if err != nil {
		return nil, fmt.Errorf("search patients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.FullnameEn, &s.FullnameAr, &s.PhoneNumber); err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate patients: %w", err)
	}
	return out, nil
}

func (r *repoPG) CreateLinked(ctx context.Context, p *Patient, t LinkTargets) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now().UTC()

	return db.RunInTx(ctx, r.pool, func(ctx context.Context) error {
		_, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO patient (id, fullname_en, fullname_ar, phone_number, created_by_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			p.ID, p.FullnameEn, p.FullnameAr, p.PhoneNumber, p.CreatedByID, p.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert patient: %w", err)
		}

		for _, id := range t.ClinicIDs {
			if _, err := r.conn(ctx).Exec(ctx,
				`INSERT INTO patient_clinic (patient_id, clinic_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				p.ID, id); err != nil {
				return fmt.Errorf("link patient to clinic %s: %w", id, err)
			}
		}
		for _, id := range t.CenterIDs {
			if _, err := r.conn(ctx).Exec(ctx,
				`INSERT INTO patient_center (patient_id, center_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				p.ID, id); err != nil {
				return fmt.Errorf("link patient to medical center %s: %w", id, err)
			}
		}

		p.ClinicIDs = append([]uuid.UUID{}, t.ClinicIDs...)
		p.CenterIDs = append([]uuid.UUID{}, t.CenterIDs...)
		return nil
	})
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p := &Patient{ClinicIDs: []uuid.UUID{}, CenterIDs: []uuid.UUID{}}
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, fullname_en, fullname_ar, phone_number, created_by_id, created_at
		FROM patient WHERE id = $1`, id).
		Scan(&p.ID, &p.FullnameEn, &p.FullnameAr, &p.PhoneNumber, &p.CreatedByID, &p.CreatedAt)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get patient %s: %w", id, err)
	}

	p.ClinicIDs, err = r.linkedIDs(ctx, `SELECT clinic_id FROM patient_clinic WHERE patient_id = $1 ORDER BY clinic_id`, id)
	if err != nil {
		return nil, err
	}
	p.CenterIDs, err = r.linkedIDs(ctx, `SELECT center_id FROM patient_center WHERE patient_id = $1 ORDER BY center_id`, id)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *repoPG) linkedIDs(ctx context.Context, sql string, patientID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, patientID)
	if err != nil {
		return nil, fmt.Errorf("query patient links: %w", err)
	}
	defer rows.Close()

	out := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan patient link: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *repoPG) CanManage(ctx context.Context, patientID uuid.UUID, t LinkTargets) (bool, error) {
	if t.Empty() {
		return false, nil
	}
	var ok bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM patient_clinic WHERE patient_id = $1 AND clinic_id = ANY($2))
		    OR EXISTS (SELECT 1 FROM patient_center WHERE patient_id = $1 AND center_id = ANY($3))`,
		patientID, nonNil(t.ClinicIDs), nonNil(t.CenterIDs)).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check patient access: %w", err)
	}
	return ok, nil
}

func (r *repoPG) CanView(ctx context.Context, patientID uuid.UUID, t LinkTargets, doctorID uuid.UUID) (bool, error) {
	var ok bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM patient_clinic WHERE patient_id = $1 AND clinic_id = ANY($2))
		    OR EXISTS (SELECT 1 FROM patient_center WHERE patient_id = $1 AND center_id = ANY($3))
		    OR EXISTS (SELECT 1 FROM patient_access WHERE patient_id = $1 AND doctor_id = $4)`,
		patientID, nonNil(t.ClinicIDs), nonNil(t.CenterIDs), doctorID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check patient visibility: %w", err)
	}
	return ok, nil
}

// nonNil keeps ANY($n) bound to an empty array rather than NULL.
func nonNil(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}

func (r *repoPG) GrantAccess(ctx context.Context, a *Access) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now().UTC()

	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient_access (id, doctor_id, patient_id, granted_by_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		a.ID, a.DoctorID, a.PatientID, a.GrantedByID, a.CreatedAt,
	)
	switch {
	case err == nil:
		return nil
	case db.IsUniqueViolation(err, "patient_access_doctor_patient_key"):
		return r.loadAccess(ctx, a)
	case db.IsForeignKeyViolation(err):
		return ErrDoctorNotFound
	}
	return fmt.Errorf("grant patient access: %w", err)
}

func (r *repoPG) loadAccess(ctx context.Context, a *Access) error {
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, granted_by_id, created_at FROM patient_access
		WHERE doctor_id = $1 AND patient_id = $2`, a.DoctorID, a.PatientID).
		Scan(&a.ID, &a.GrantedByID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("load existing grant: %w", err)
	}
	return nil
}

func (r *repoPG) RevokeAccess(ctx context.Context, patientID, doctorID uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM patient_access WHERE patient_id = $1 AND doctor_id = $2`, patientID, doctorID)
	if err != nil {
		return fmt.Errorf("revoke patient access: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrGrantNotFound
	}
	return nil
}

func (r *repoPG) ListAccess(ctx context.Context, patientID uuid.UUID) ([]Access, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, doctor_id, patient_id, granted_by_id, created_at
		FROM patient_access WHERE patient_id = $1 ORDER BY created_at, id`, patientID)
	if err != nil {
		return nil, fmt.Errorf("list patient access: %w", err)
	}
	defer rows.Close()

	out := []Access{}
	for rows.Next() {
		var a Access
		if err := rows.Scan(&a.ID, &a.DoctorID, &a.PatientID, &a.GrantedByID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan patient access: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
