package bed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/hms/internal/platform/apperr"
	"github.com/hms/hms/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const bedCols = `id, room_number, bed_number, department_id, ward, floor, type, status,
	description, equipment, is_active, created_at, updated_at`

const occCols = `id, bed_id, patient_id, doctor_id, admission_date, expected_discharge_date,
	actual_discharge_date, admission_reason, diagnosis, priority, notes, status,
	transferred_from, transferred_to, created_at, updated_at`

// uniqueViolation is the SQLSTATE for a unique constraint violation. The
// partial unique indexes on active occupancies turn allocation races into
// this error at commit time.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// writeErr translates store-level race signals into the Conflict kind so
// callers know to retry. Serialization failures and deadlocks arise when two
// engine operations collide on the same rows in opposite lock order.
func writeErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return apperr.Wrap(apperr.KindConflict, "concurrent update detected, retry the operation", err)
		}
	}
	return err
}

// -- Beds --

func (r *repoPG) CreateBed(ctx context.Context, b *BedSpace) error {
	b.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO bed_spaces (
			id, room_number, bed_number, department_id, ward, floor, type, status,
			description, equipment, is_active
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		b.ID, b.RoomNumber, b.BedNumber, b.DepartmentID, b.Ward, b.Floor, b.Type, b.Status,
		b.Description, b.Equipment, b.IsActive,
	)
	if isUniqueViolation(err) {
		return apperr.Conflictf("a bed with room %s and bed number %s already exists", b.RoomNumber, b.BedNumber)
	}
	return writeErr(err)
}

func (r *repoPG) GetBed(ctx context.Context, id uuid.UUID) (*BedSpace, error) {
	return scanBed(r.conn(ctx).QueryRow(ctx, `SELECT `+bedCols+` FROM bed_spaces WHERE id = $1`, id))
}

func (r *repoPG) GetBedForUpdate(ctx context.Context, id uuid.UUID) (*BedSpace, error) {
	return scanBed(r.conn(ctx).QueryRow(ctx, `SELECT `+bedCols+` FROM bed_spaces WHERE id = $1 FOR UPDATE`, id))
}

func (r *repoPG) FindActiveBedByRoomAndNumber(ctx context.Context, roomNumber, bedNumber string) (*BedSpace, error) {
	b, err := scanBed(r.conn(ctx).QueryRow(ctx, `
		SELECT `+bedCols+` FROM bed_spaces
		WHERE room_number = $1 AND bed_number = $2 AND is_active`,
		roomNumber, bedNumber))
	if apperr.IsNotFound(err) {
		return nil, nil
	}
	return b, err
}

func (r *repoPG) UpdateBed(ctx context.Context, b *BedSpace) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE bed_spaces SET
			room_number=$2, bed_number=$3, department_id=$4, ward=$5, floor=$6,
			type=$7, status=$8, description=$9, equipment=$10, is_active=$11,
			updated_at=NOW()
		WHERE id = $1`,
		b.ID, b.RoomNumber, b.BedNumber, b.DepartmentID, b.Ward, b.Floor,
		b.Type, b.Status, b.Description, b.Equipment, b.IsActive,
	)
	if isUniqueViolation(err) {
		return apperr.Conflictf("a bed with room %s and bed number %s already exists", b.RoomNumber, b.BedNumber)
	}
	if err != nil {
		return writeErr(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("bed not found")
	}
	return nil
}

func (r *repoPG) ListBeds(ctx context.Context, f ListFilter, limit, offset int) ([]*BedSpace, int, error) {
	conds := []string{"is_active"}
	var args []interface{}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.DepartmentID != nil {
		add("department_id = $%d", *f.DepartmentID)
	}
	if f.Type != "" {
		add("type = $%d", f.Type)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.Ward != "" {
		add("ward = $%d", f.Ward)
	}
	if f.Search != "" {
		add("(room_number ILIKE $%d OR bed_number ILIKE $%[1]d OR ward ILIKE $%[1]d)", "%"+f.Search+"%")
	}

	where := strings.Join(conds, " AND ")

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM bed_spaces WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(
		`SELECT %s FROM bed_spaces WHERE %s ORDER BY room_number, bed_number LIMIT $%d OFFSET $%d`,
		bedCols, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	beds, err := collectBeds(rows)
	return beds, total, err
}

func (r *repoPG) AvailableBeds(ctx context.Context, f ListFilter) ([]*BedSpace, error) {
	conds := []string{"is_active", "status = 'available'"}
	var args []interface{}

	if f.DepartmentID != nil {
		args = append(args, *f.DepartmentID)
		conds = append(conds, fmt.Sprintf("department_id = $%d", len(args)))
	}
	if f.Type != "" {
		args = append(args, f.Type)
		conds = append(conds, fmt.Sprintf("type = $%d", len(args)))
	}
	if f.Ward != "" {
		args = append(args, f.Ward)
		conds = append(conds, fmt.Sprintf("ward = $%d", len(args)))
	}

	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(
		`SELECT %s FROM bed_spaces WHERE %s ORDER BY room_number, bed_number`,
		bedCols, strings.Join(conds, " AND ")), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBeds(rows)
}

// -- Occupancies --

func (r *repoPG) CreateOccupancy(ctx context.Context, o *Occupancy) error {
	o.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO bed_occupancies (
			id, bed_id, patient_id, doctor_id, admission_date, expected_discharge_date,
			actual_discharge_date, admission_reason, diagnosis, priority, notes, status,
			transferred_from, transferred_to
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		o.ID, o.BedID, o.PatientID, o.DoctorID, o.AdmissionDate, o.ExpectedDischargeDate,
		o.ActualDischargeDate, o.AdmissionReason, o.Diagnosis, o.Priority, o.Notes, o.Status,
		o.TransferredFrom, o.TransferredTo,
	)
	if isUniqueViolation(err) {
		return apperr.Conflict("bed or patient already has an active occupancy, retry the operation")
	}
	return writeErr(err)
}

func (r *repoPG) GetOccupancy(ctx context.Context, id uuid.UUID) (*Occupancy, error) {
	return scanOcc(r.conn(ctx).QueryRow(ctx, `SELECT `+occCols+` FROM bed_occupancies WHERE id = $1`, id))
}

func (r *repoPG) GetOccupancyForUpdate(ctx context.Context, id uuid.UUID) (*Occupancy, error) {
	return scanOcc(r.conn(ctx).QueryRow(ctx, `SELECT `+occCols+` FROM bed_occupancies WHERE id = $1 FOR UPDATE`, id))
}

func (r *repoPG) UpdateOccupancy(ctx context.Context, o *Occupancy) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE bed_occupancies SET
			doctor_id=$2, expected_discharge_date=$3, actual_discharge_date=$4,
			admission_reason=$5, diagnosis=$6, priority=$7, notes=$8, status=$9,
			transferred_from=$10, transferred_to=$11, updated_at=NOW()
		WHERE id = $1`,
		o.ID, o.DoctorID, o.ExpectedDischargeDate, o.ActualDischargeDate,
		o.AdmissionReason, o.Diagnosis, o.Priority, o.Notes, o.Status,
		o.TransferredFrom, o.TransferredTo,
	)
	if isUniqueViolation(err) {
		return apperr.Conflict("bed or patient already has an active occupancy, retry the operation")
	}
	if err != nil {
		return writeErr(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("occupancy not found")
	}
	return nil
}

func (r *repoPG) ActiveOccupancyByBed(ctx context.Context, bedID uuid.UUID) (*Occupancy, error) {
	o, err := scanOcc(r.conn(ctx).QueryRow(ctx, `
		SELECT `+occCols+` FROM bed_occupancies WHERE bed_id = $1 AND status = 'active'`, bedID))
	if apperr.IsNotFound(err) {
		return nil, nil
	}
	return o, err
}

func (r *repoPG) ActiveOccupancyByPatient(ctx context.Context, patientID uuid.UUID) (*Occupancy, error) {
	o, err := scanOcc(r.conn(ctx).QueryRow(ctx, `
		SELECT `+occCols+` FROM bed_occupancies WHERE patient_id = $1 AND status = 'active'`, patientID))
	if apperr.IsNotFound(err) {
		return nil, nil
	}
	return o, err
}

func (r *repoPG) ListOccupancies(ctx context.Context, f HistoryFilter, limit, offset int) ([]*Occupancy, int, error) {
	conds := []string{"TRUE"}
	var args []interface{}

	if f.PatientID != nil {
		args = append(args, *f.PatientID)
		conds = append(conds, fmt.Sprintf("patient_id = $%d", len(args)))
	}
	if f.BedID != nil {
		args = append(args, *f.BedID)
		conds = append(conds, fmt.Sprintf("bed_id = $%d", len(args)))
	}

	where := strings.Join(conds, " AND ")

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM bed_occupancies WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(
		`SELECT %s FROM bed_occupancies WHERE %s ORDER BY admission_date DESC LIMIT $%d OFFSET $%d`,
		occCols, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	occs, err := collectOccs(rows)
	return occs, total, err
}

func (r *repoPG) Stats(ctx context.Context) (*Stats, error) {
	var s Stats
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'available'),
			COUNT(*) FILTER (WHERE status = 'occupied'),
			COUNT(*) FILTER (WHERE status = 'maintenance'),
			COUNT(*) FILTER (WHERE status = 'reserved')
		FROM bed_spaces WHERE is_active`).
		Scan(&s.TotalBeds, &s.AvailableBeds, &s.OccupiedBeds, &s.MaintenanceBeds, &s.ReservedBeds)
	if err != nil {
		return nil, err
	}

	err = r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE status = 'active'),
			COUNT(DISTINCT patient_id)
		FROM bed_occupancies`).
		Scan(&s.ActiveAdmissions, &s.PatientsServed)
	if err != nil {
		return nil, err
	}

	return &s, nil
}

// -- Scan helpers --

func scanBed(row pgx.Row) (*BedSpace, error) {
	var b BedSpace
	err := row.Scan(
		&b.ID, &b.RoomNumber, &b.BedNumber, &b.DepartmentID, &b.Ward, &b.Floor,
		&b.Type, &b.Status, &b.Description, &b.Equipment, &b.IsActive,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("bed not found")
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func collectBeds(rows pgx.Rows) ([]*BedSpace, error) {
	var beds []*BedSpace
	for rows.Next() {
		var b BedSpace
		err := rows.Scan(
			&b.ID, &b.RoomNumber, &b.BedNumber, &b.DepartmentID, &b.Ward, &b.Floor,
			&b.Type, &b.Status, &b.Description, &b.Equipment, &b.IsActive,
			&b.CreatedAt, &b.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		beds = append(beds, &b)
	}
	return beds, rows.Err()
}

func scanOcc(row pgx.Row) (*Occupancy, error) {
	var o Occupancy
	err := row.Scan(
		&o.ID, &o.BedID, &o.PatientID, &o.DoctorID, &o.AdmissionDate, &o.ExpectedDischargeDate,
		&o.ActualDischargeDate, &o.AdmissionReason, &o.Diagnosis, &o.Priority, &o.Notes, &o.Status,
		&o.TransferredFrom, &o.TransferredTo, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("occupancy not found")
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func collectOccs(rows pgx.Rows) ([]*Occupancy, error) {
	var occs []*Occupancy
	for rows.Next() {
		var o Occupancy
		err := rows.Scan(
			&o.ID, &o.BedID, &o.PatientID, &o.DoctorID, &o.AdmissionDate, &o.ExpectedDischargeDate,
			&o.ActualDischargeDate, &o.AdmissionReason, &o.Diagnosis, &o.Priority, &o.Notes, &o.Status,
			&o.TransferredFrom, &o.TransferredTo, &o.CreatedAt, &o.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		occs = append(occs, &o)
	}
	return occs, rows.Err()
}
