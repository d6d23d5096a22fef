package treatment

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
)

var (
	groupColumns     = []string{"id", "name_en", "name_ar", "color", "created_at"}
	treatmentColumns = []string{"id", "group_id", "name_en", "name_ar", "base_price", "created_at"}
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func TestRepo_Catalog_NestsTreatments(t *testing.T) {
	mock := newMock(t)
	now := time.Now()
	ortho, surgery := uuid.New(), uuid.New()
	price := 25.5

	mock.ExpectBeginTx(snapshotTx)
	mock.ExpectQuery(regexp.QuoteMeta("FROM treatment_group ORDER BY name_en")).
		WillReturnRows(pgxmock.NewRows(groupColumns).
			AddRow(ortho, "Orthodontics", "تقويم", "#ff0000", now).
			AddRow(surgery, "Surgery", "جراحة", "#00ff00", now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM treatment ORDER BY name_en, id")).
		WillReturnRows(pgxmock.NewRows(treatmentColumns).
			AddRow(uuid.New(), surgery, "Extraction", "قلع", &price, now).
			AddRow(uuid.New(), ortho, "Retainer", "مثبت", nil, now).
			AddRow(uuid.New(), surgery, "Implant", "زرعة", nil, now).
			AddRow(uuid.New(), uuid.New(), "Orphan", "يتيم", nil, now))
	mock.ExpectCommit()

	groups, err := NewRepo(mock).Catalog(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if len(groups[0].Treatments) != 1 || groups[0].Treatments[0].BasePrice != nil {
		t.Errorf("unexpected orthodontics treatments %+v", groups[0].Treatments)
	}
	st := groups[1].Treatments
	if len(st) != 2 || st[0].NameEn != "Extraction" || st[1].NameEn != "Implant" {
		t.Fatalf("expected surgery treatments in query order, got %+v", st)
	}
	if st[0].BasePrice == nil || *st[0].BasePrice != price {
		t.Errorf("expected base price %v, got %v", price, st[0].BasePrice)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expected one snapshot transaction: %v", err)
	}
}

func TestRepo_Catalog_EmptyGroupHasEmptyList(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBeginTx(snapshotTx)
	mock.ExpectQuery(regexp.QuoteMeta("FROM treatment_group")).
		WillReturnRows(pgxmock.NewRows(groupColumns).AddRow(uuid.New(), "Empty", "فارغ", "#000000", time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("FROM treatment ORDER BY")).
		WillReturnRows(pgxmock.NewRows(treatmentColumns))
	mock.ExpectCommit()

	groups, err := NewRepo(mock).Catalog(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if groups[0].Treatments == nil || len(groups[0].Treatments) != 0 {
		t.Errorf("expected empty non-nil treatments, got %#v", groups[0].Treatments)
	}
}

func TestRepo_Catalog_StoreError(t *testing.T) {
	mock := newMock(t)
	boom := errors.New("timeout")
	mock.ExpectBeginTx(snapshotTx)
	mock.ExpectQuery(regexp.QuoteMeta("FROM treatment_group")).WillReturnError(boom)
	mock.ExpectRollback()

	if _, err := NewRepo(mock).Catalog(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expected rollback: %v", err)
	}
}

func TestRepo_ListByGroup(t *testing.T) {
	mock := newMock(t)
	gid := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("FROM treatment WHERE group_id = $1")).
		WithArgs(gid).
		WillReturnRows(pgxmock.NewRows(treatmentColumns))

	out, err := NewRepo(mock).ListByGroup(context.Background(), gid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out == nil || len(out) != 0 {
		t.Errorf("expected empty list, got %#v", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRepo_CreateGroup(t *testing.T) {
	mock := newMock(t)
	created := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO treatment_group")).
		WithArgs(pgxmock.AnyArg(), "Surgery", "جراحة", DefaultColor).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(created))

	g := &Group{NameEn: "Surgery", NameAr: "جراحة", Color: DefaultColor}
	if err := NewRepo(mock).CreateGroup(context.Background(), g); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.ID == uuid.Nil || !g.CreatedAt.Equal(created) {
		t.Errorf("expected id and creation time, got %+v", g)
	}
}

func TestRepo_CreateGroup_Duplicate(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO treatment_group")).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "treatment_group_name_en_key"})

	err := NewRepo(mock).CreateGroup(context.Background(), &Group{NameEn: "Surgery", NameAr: "جراحة", Color: DefaultColor})
	if !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
}

func TestRepo_CreateTreatment_UnknownGroup(t *testing.T) {
	mock := newMock(t)
	gid := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO treatment (")).
		WithArgs(pgxmock.AnyArg(), gid, "X", "س", (*float64)(nil)).
		WillReturnError(&pgconn.PgError{Code: "23503"})

	err := NewRepo(mock).CreateTreatment(context.Background(), &Treatment{GroupID: gid, NameEn: "X", NameAr: "س"})
	if !errors.Is(err, ErrGroupNotFound) {
		t.Fatalf("expected ErrGroupNotFound, got %v", err)
	}
}

func TestRepo_Delete_NotFound(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM treatment_group")).
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM treatment WHERE")).
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM treatment WHERE")).
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	repo := NewRepo(mock)

	if err := repo.DeleteGroup(context.Background(), uuid.New()); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("expected ErrGroupNotFound, got %v", err)
	}
	if err := repo.DeleteTreatment(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := repo.DeleteTreatment(context.Background(), uuid.New()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
