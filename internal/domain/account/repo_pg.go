package account

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/platform/db"
)

type repoPG struct {
	pool   db.Pool
	logger zerolog.Logger
}

func NewRepo(pool db.Pool, logger zerolog.Logger) Repository {
	return &repoPG{pool: pool, logger: logger}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

// Hydration reads three tables; a repeatable-read snapshot keeps the user
// and both membership lists consistent with each other.
var snapshotTx = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

const userCols = `id, name_en, name_ar, specialization, phone_number, password_hash,
	system_role, status, session_token, created_at, updated_at`

func (r *repoPG) FindBySessionToken(ctx context.Context, token string) (*AppUser, error) {
	if token == "" {
		return nil, nil
	}
	var out *AppUser
	err := db.RunInTxWithOptions(ctx, r.pool, snapshotTx, func(ctx context.Context) error {
		u, err := scanUser(r.conn(ctx).QueryRow(ctx,
			`SELECT `+userCols+` FROM users WHERE session_token = $1`, token))
		if db.IsNoRows(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("find user by session token: %w", err)
		}
		out, err = r.hydrate(ctx, u)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repoPG) FindByID(ctx context.Context, id uuid.UUID) (*AppUser, error) {
	var out *AppUser
	err := db.RunInTxWithOptions(ctx, r.pool, snapshotTx, func(ctx context.Context) error {
		u, err := scanUser(r.conn(ctx).QueryRow(ctx,
			`SELECT `+userCols+` FROM users WHERE id = $1`, id))
		if db.IsNoRows(err) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("find user %s: %w", id, err)
		}
		out, err = r.hydrate(ctx, u)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repoPG) FindByPhone(ctx context.Context, phone string) (*User, error) {
	u, err := scanUser(r.conn(ctx).QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE phone_number = $1`, phone))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by phone: %w", err)
	}
	return u, nil
}

func (r *repoPG) RotateSessionToken(ctx context.Context, userID uuid.UUID, token string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE users SET session_token = $2, updated_at = NOW() WHERE id = $1`, userID, token)
	if err != nil {
		return fmt.Errorf("rotate session token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearSessionToken nulls the token wherever it is set. An unknown token is
// not an error.
func (r *repoPG) ClearSessionToken(ctx context.Context, token string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE users SET session_token = NULL, updated_at = NOW() WHERE session_token = $1`, token)
	if err != nil {
		return fmt.Errorf("clear session token: %w", err)
	}
	return nil
}

func (r *repoPG) CreateUser(ctx context.Context, u *User) error {
	return r.insertUser(ctx, u)
}

func (r *repoPG) CreateClinicAccount(ctx context.Context, a *ClinicAccount) error {
	return db.RunInTx(ctx, r.pool, func(ctx context.Context) error {
		if err := r.insertUser(ctx, a.Owner); err != nil {
			return err
		}
		if err := r.insertFacility(ctx, "clinic", &a.Clinic); err != nil {
			return err
		}
		return r.insertMembership(ctx, "clinic_membership", "clinic_id", a.Owner.ID, a.Clinic.ID, string(ClinicRoleOwner))
	})
}

func (r *repoPG) CreateCenterAccount(ctx context.Context, a *CenterAccount) error {
	return db.RunInTx(ctx, r.pool, func(ctx context.Context) error {
		if err := r.insertUser(ctx, a.Owner); err != nil {
			return err
		}
		if err := r.insertFacility(ctx, "medical_center", &a.Center); err != nil {
			return err
		}
		if err := r.insertMembership(ctx, "center_membership", "center_id", a.Owner.ID, a.Center.ID, string(CenterRoleOwner)); err != nil {
			return err
		}
		for _, d := range a.Doctors {
			if err := r.insertUser(ctx, d); err != nil {
				return err
			}
			if err := r.insertMembership(ctx, "center_membership", "center_id", d.ID, a.Center.ID, string(CenterRoleDoctor)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *repoPG) insertUser(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO users (id, name_en, name_ar, specialization, phone_number, password_hash,
			system_role, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		u.ID, u.NameEn, u.NameAr, u.Specialization, u.PhoneNumber, u.PasswordHash,
		string(u.SystemRole), string(u.Status), u.CreatedAt, u.UpdatedAt,
	)
	if db.IsUniqueViolation(err, "users_phone_number_key") {
		return ErrPhoneTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// table is one of the two fixed facility table names, never user input.
func (r *repoPG) insertFacility(ctx context.Context, table string, f *NewFacility) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx,
		`INSERT INTO `+table+` (id, name, name_ar, status, subscription_ends_at) VALUES ($1, $2, $3, $4, $5)`,
		f.ID, f.Name, f.NameAr, string(f.Status), f.SubscriptionEndsAt,
	)
	if err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

func (r *repoPG) insertMembership(ctx context.Context, table, facilityCol string, userID, facilityID uuid.UUID, role string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`INSERT INTO `+table+` (id, user_id, `+facilityCol+`, role) VALUES ($1, $2, $3, $4)`,
		uuid.New(), userID, facilityID, role,
	)
	if err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

func (r *repoPG) hydrate(ctx context.Context, u *User) (*AppUser, error) {
	au := newAppUser(u)

	clinics, err := r.clinicMemberships(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	au.ClinicMemberships = clinics

	centers, err := r.centerMemberships(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	au.CenterMemberships = centers

	return au, nil
}

func (r *repoPG) clinicMemberships(ctx context.Context, userID uuid.UUID) ([]ClinicMembership, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT m.id, m.role, m.created_at, m.clinic_id, c.id, c.name, c.status
		FROM clinic_membership m
		LEFT JOIN clinic c ON c.id = m.clinic_id
		WHERE m.user_id = $1
		ORDER BY m.created_at, m.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query clinic memberships: %w", err)
	}
	defer rows.Close()

	out := []ClinicMembership{}
	for rows.Next() {
		var (
			m        ClinicMembership
			role     string
			refID    uuid.UUID
			clinicID *uuid.UUID
			name     *string
			status   *string
		)
		if err := rows.Scan(&m.ID, &role, &m.CreatedAt, &refID, &clinicID, &name, &status); err != nil {
			return nil, fmt.Errorf("scan clinic membership: %w", err)
		}
		if clinicID == nil {
			r.logger.Warn().
				Str("user_id", userID.String()).
				Str("membership_id", m.ID.String()).
				Str("clinic_id", refID.String()).
				Msg("dropping clinic membership with missing clinic")
			continue
		}
		m.Role = ClinicRole(role)
		m.Clinic = Facility{ID: *clinicID, Name: deref(name), Status: Status(deref(status))}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clinic memberships: %w", err)
	}
	return out, nil
}

func (r *repoPG) centerMemberships(ctx context.Context, userID uuid.UUID) ([]CenterMembership, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT m.id, m.role, m.created_at, m.center_id, c.id, c.name, c.status
		FROM center_membership m
		LEFT JOIN medical_center c ON c.id = m.center_id
		WHERE m.user_id = $1
		ORDER BY m.created_at, m.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query center memberships: %w", err)
	}
	defer rows.Close()

	out := []CenterMembership{}
	for rows.Next() {
		var (
			m        CenterMembership
			role     string
			refID    uuid.UUID
			centerID *uuid.UUID
			name     *string
			status   *string
		)
		if err := rows.Scan(&m.ID, &role, &m.CreatedAt, &refID, &centerID, &name, &status); err != nil {
			return nil, fmt.Errorf("scan center membership: %w", err)
		}
		if centerID == nil {
			r.logger.Warn().
				Str("user_id", userID.String()).
				Str("membership_id", m.ID.String()).
				Str("center_id", refID.String()).
				Msg("dropping center membership with missing medical center")
			continue
		}
		m.Role = CenterRole(role)
		m.Center = Facility{ID: *centerID, Name: deref(name), Status: Status(deref(status))}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate center memberships: %w", err)
	}
	return out, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var (
		u          User
		systemRole string
		status     string
	)
	err := row.Scan(
		&u.ID, &u.NameEn, &u.NameAr, &u.Specialization, &u.PhoneNumber, &u.PasswordHash,
		&systemRole, &status, &u.SessionToken, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.SystemRole = SystemRole(systemRole)
	u.Status = Status(status)
	return &u, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
