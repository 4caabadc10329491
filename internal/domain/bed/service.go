package bed

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/platform/apperr"
	"github.com/hms/hms/internal/platform/db"
)

// PatientDirectory is the slice of the patient domain the allocation engine
// needs: an existence check at admission time.
type PatientDirectory interface {
	PatientExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Service owns the bed catalog, the occupancy ledger, and the allocation
// engine. It is the only writer of occupancy status transitions and of the
// bed/occupancy cross-references; each mutating engine operation runs as a
// single transaction so a bed is never marked occupied without a matching
// active occupancy or vice versa.
type Service struct {
	repo     Repository
	db       db.Beginner
	patients PatientDirectory
}

func NewService(repo Repository, beginner db.Beginner, patients PatientDirectory) *Service {
	return &Service{repo: repo, db: beginner, patients: patients}
}

// noteSeparator divides appended note fragments from earlier text.
const noteSeparator = "\n---\n"

func appendNote(existing *string, note string) *string {
	if note == "" {
		return existing
	}
	if existing == nil || *existing == "" {
		return &note
	}
	combined := *existing + noteSeparator + note
	return &combined
}

// -- Bed catalog --

func (s *Service) CreateBed(ctx context.Context, b *BedSpace) error {
	if b.RoomNumber == "" {
		return apperr.Validation("room_number is required")
	}
	if b.BedNumber == "" {
		return apperr.Validation("bed_number is required")
	}
	if b.Type == "" {
		b.Type = "standard"
	}
	if !validBedTypes[b.Type] {
		return apperr.Validationf("invalid bed type: %s", b.Type)
	}
	if b.Status == "" {
		b.Status = StatusAvailable
	}
	if !validBedStatuses[b.Status] {
		return apperr.Validationf("invalid bed status: %s", b.Status)
	}
	if b.Status == StatusOccupied {
		return apperr.Conflict("a bed cannot be created as occupied, allocate a patient instead")
	}
	b.IsActive = true

	existing, err := s.repo.FindActiveBedByRoomAndNumber(ctx, b.RoomNumber, b.BedNumber)
	if err != nil {
		return err
	}
	if existing != nil {
		return apperr.Conflictf("a bed with room %s and bed number %s already exists", b.RoomNumber, b.BedNumber)
	}

	return s.repo.CreateBed(ctx, b)
}

func (s *Service) GetBedDetails(ctx context.Context, id uuid.UUID) (*BedDetails, error) {
	b, err := s.repo.GetBed(ctx, id)
	if err != nil {
		return nil, err
	}
	occ, err := s.repo.ActiveOccupancyByBed(ctx, id)
	if err != nil {
		return nil, err
	}
	return &BedDetails{BedSpace: *b, CurrentOccupancy: occ}, nil
}

func (s *Service) ListBeds(ctx context.Context, f ListFilter, limit, offset int) ([]*BedSpace, int, error) {
	return s.repo.ListBeds(ctx, f, limit, offset)
}

func (s *Service) AvailableBeds(ctx context.Context, f ListFilter) ([]*BedSpace, error) {
	f.Status = ""
	return s.repo.AvailableBeds(ctx, f)
}

// UpdateBed patches bed metadata. Renames re-check room/bed uniqueness against
// other active beds. A direct status edit is rejected while an active
// occupancy exists: bed status occupied must mirror the ledger, never
// administrator input.
func (s *Service) UpdateBed(ctx context.Context, id uuid.UUID, upd *BedUpdate) (*BedSpace, error) {
	b, err := s.repo.GetBed(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.IsActive {
		return nil, apperr.NotFound("bed not found")
	}

	room, bedNum := b.RoomNumber, b.BedNumber
	if upd.RoomNumber != nil {
		room = *upd.RoomNumber
	}
	if upd.BedNumber != nil {
		bedNum = *upd.BedNumber
	}
	if room == "" || bedNum == "" {
		return nil, apperr.Validation("room_number and bed_number cannot be empty")
	}
	if room != b.RoomNumber || bedNum != b.BedNumber {
		existing, err := s.repo.FindActiveBedByRoomAndNumber(ctx, room, bedNum)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != b.ID {
			return nil, apperr.Conflictf("a bed with room %s and bed number %s already exists", room, bedNum)
		}
	}
	b.RoomNumber = room
	b.BedNumber = bedNum

	if upd.Type != nil {
		if !validBedTypes[*upd.Type] {
			return nil, apperr.Validationf("invalid bed type: %s", *upd.Type)
		}
		b.Type = *upd.Type
	}
	if upd.Status != nil && *upd.Status != b.Status {
		if !validBedStatuses[*upd.Status] {
			return nil, apperr.Validationf("invalid bed status: %s", *upd.Status)
		}
		occ, err := s.repo.ActiveOccupancyByBed(ctx, id)
		if err != nil {
			return nil, err
		}
		if occ != nil {
			return nil, apperr.Conflict("bed has an active occupancy, discharge or transfer the patient first")
		}
		if *upd.Status == StatusOccupied {
			return nil, apperr.Conflict("bed status occupied is set by allocation, not directly")
		}
		b.Status = *upd.Status
	}
	if upd.DepartmentID != nil {
		b.DepartmentID = upd.DepartmentID
	}
	if upd.Ward != nil {
		b.Ward = upd.Ward
	}
	if upd.Floor != nil {
		b.Floor = upd.Floor
	}
	if upd.Description != nil {
		b.Description = upd.Description
	}
	if upd.Equipment != nil {
		b.Equipment = upd.Equipment
	}

	if err := s.repo.UpdateBed(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// DeleteBed soft-deletes a bed. Beds with an active occupancy cannot be
// removed.
func (s *Service) DeleteBed(ctx context.Context, id uuid.UUID) error {
	b, err := s.repo.GetBed(ctx, id)
	if err != nil {
		return err
	}
	if !b.IsActive {
		return apperr.NotFound("bed not found")
	}
	occ, err := s.repo.ActiveOccupancyByBed(ctx, id)
	if err != nil {
		return err
	}
	if occ != nil {
		return apperr.Conflict("bed is occupied, discharge the patient first")
	}
	b.IsActive = false
	return s.repo.UpdateBed(ctx, b)
}

// -- Occupancy ledger --

func (s *Service) GetOccupancy(ctx context.Context, id uuid.UUID) (*Occupancy, error) {
	return s.repo.GetOccupancy(ctx, id)
}

func (s *Service) ActiveOccupancyByPatient(ctx context.Context, patientID uuid.UUID) (*Occupancy, error) {
	return s.repo.ActiveOccupancyByPatient(ctx, patientID)
}

func (s *Service) OccupancyHistory(ctx context.Context, f HistoryFilter, limit, offset int) ([]*Occupancy, int, error) {
	return s.repo.ListOccupancies(ctx, f, limit, offset)
}

// UpdateOccupancy patches clinical fields on an active occupancy. Closed
// occupancies are an immutable audit trail.
func (s *Service) UpdateOccupancy(ctx context.Context, id uuid.UUID, upd *OccupancyUpdate) (*Occupancy, error) {
	o, err := s.repo.GetOccupancy(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.IsActive() {
		return nil, apperr.Conflict("cannot update a discharged or transferred occupancy")
	}

	if upd.Priority != nil {
		if !validPriorities[*upd.Priority] {
			return nil, apperr.Validationf("invalid priority: %s", *upd.Priority)
		}
		o.Priority = *upd.Priority
	}
	if upd.AdmissionReason != nil {
		if *upd.AdmissionReason == "" {
			return nil, apperr.Validation("admission_reason cannot be empty")
		}
		o.AdmissionReason = *upd.AdmissionReason
	}
	if upd.DoctorID != nil {
		o.DoctorID = upd.DoctorID
	}
	if upd.ExpectedDischargeDate != nil {
		o.ExpectedDischargeDate = upd.ExpectedDischargeDate
	}
	if upd.Diagnosis != nil {
		o.Diagnosis = upd.Diagnosis
	}
	if upd.Notes != nil {
		o.Notes = upd.Notes
	}

	if err := s.repo.UpdateOccupancy(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// -- Allocation engine --

// Allocate admits a patient to an available bed. The bed row is locked for
// the duration of the transaction so concurrent allocations on the same bed
// serialize; the loser sees the updated status and gets a conflict. The
// partial unique index on active occupancies per patient backstops the
// patient-side race at commit time.
func (s *Service) Allocate(ctx context.Context, bedID uuid.UUID, req *AllocationRequest) (*Occupancy, error) {
	if req.PatientID == uuid.Nil {
		return nil, apperr.Validation("patient_id is required")
	}
	if req.AdmissionReason == "" {
		return nil, apperr.Validation("admission_reason is required")
	}
	if req.Priority == "" {
		req.Priority = "normal"
	}
	if !validPriorities[req.Priority] {
		return nil, apperr.Validationf("invalid priority: %s", req.Priority)
	}

	var created *Occupancy
	err := db.RunInTx(ctx, s.db, func(ctx context.Context) error {
		b, err := s.repo.GetBedForUpdate(ctx, bedID)
		if err != nil {
			return err
		}
		if !b.IsActive {
			return apperr.NotFound("bed not found")
		}
		if b.Status != StatusAvailable {
			return apperr.Conflict("bed is not available")
		}

		exists, err := s.patients.PatientExists(ctx, req.PatientID)
		if err != nil {
			return err
		}
		if !exists {
			return apperr.NotFound("patient not found")
		}

		current, err := s.repo.ActiveOccupancyByPatient(ctx, req.PatientID)
		if err != nil {
			return err
		}
		if current != nil {
			return apperr.Conflict("patient is already allocated a bed")
		}

		occ := &Occupancy{
			BedID:                 bedID,
			PatientID:             req.PatientID,
			DoctorID:              req.DoctorID,
			AdmissionDate:         time.Now().UTC(),
			ExpectedDischargeDate: req.ExpectedDischargeDate,
			AdmissionReason:       req.AdmissionReason,
			Diagnosis:             req.Diagnosis,
			Priority:              req.Priority,
			Notes:                 req.Notes,
			Status:                OccupancyActive,
		}
		if err := s.repo.CreateOccupancy(ctx, occ); err != nil {
			return err
		}

		b.Status = StatusOccupied
		if err := s.repo.UpdateBed(ctx, b); err != nil {
			return err
		}

		created = occ
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Discharge closes an active occupancy and frees its bed. The occupancy row is
// locked before the active check so two engine operations racing on the same
// occupancy serialize; the loser sees the committed status and gets a conflict
// instead of overwriting the winner's close.
func (s *Service) Discharge(ctx context.Context, occupancyID uuid.UUID, dischargeNotes string) (*Occupancy, error) {
	var discharged *Occupancy
	err := db.RunInTx(ctx, s.db, func(ctx context.Context) error {
		o, err := s.repo.GetOccupancyForUpdate(ctx, occupancyID)
		if err != nil {
			return err
		}
		if !o.IsActive() {
			return apperr.Conflict("patient is not currently admitted")
		}

		b, err := s.repo.GetBedForUpdate(ctx, o.BedID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		o.Status = OccupancyDischarged
		o.ActualDischargeDate = &now
		o.Notes = appendNote(o.Notes, dischargeNotes)
		if err := s.repo.UpdateOccupancy(ctx, o); err != nil {
			return err
		}

		b.Status = StatusAvailable
		if err := s.repo.UpdateBed(ctx, b); err != nil {
			return err
		}

		discharged = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return discharged, nil
}

// Transfer closes an active occupancy and opens a linked successor on a
// different bed for the same patient. The two occupancies reference each
// other through transferred_to/transferred_from, forming an append-only
// chain across the patient's moves. Locks are taken occupancy first, then
// beds, the same order Discharge uses.
func (s *Service) Transfer(ctx context.Context, occupancyID, newBedID uuid.UUID, transferReason string) (*Occupancy, error) {
	var successor *Occupancy
	err := db.RunInTx(ctx, s.db, func(ctx context.Context) error {
		o, err := s.repo.GetOccupancyForUpdate(ctx, occupancyID)
		if err != nil {
			return err
		}
		if !o.IsActive() {
			return apperr.Conflict("patient is not currently admitted")
		}
		if o.BedID == newBedID {
			return apperr.Conflict("patient is already in that bed")
		}

		oldBed, err := s.repo.GetBedForUpdate(ctx, o.BedID)
		if err != nil {
			return err
		}
		newBed, err := s.repo.GetBedForUpdate(ctx, newBedID)
		if err != nil {
			if apperr.IsNotFound(err) {
				return apperr.NotFound("new bed not found")
			}
			return err
		}
		if !newBed.IsActive {
			return apperr.NotFound("new bed not found")
		}
		if newBed.Status != StatusAvailable {
			return apperr.Conflict("new bed is not available")
		}

		now := time.Now().UTC()
		o.Status = OccupancyTransferred
		o.ActualDischargeDate = &now
		o.Notes = appendNote(o.Notes, transferReason)
		if err := s.repo.UpdateOccupancy(ctx, o); err != nil {
			return err
		}

		oldBed.Status = StatusAvailable
		if err := s.repo.UpdateBed(ctx, oldBed); err != nil {
			return err
		}

		reason := transferReason
		if reason == "" {
			reason = fmt.Sprintf("Transferred from bed %s-%s", oldBed.RoomNumber, oldBed.BedNumber)
		}
		next := &Occupancy{
			BedID:                 newBedID,
			PatientID:             o.PatientID,
			DoctorID:              o.DoctorID,
			AdmissionDate:         now,
			ExpectedDischargeDate: o.ExpectedDischargeDate,
			AdmissionReason:       reason,
			Diagnosis:             o.Diagnosis,
			Priority:              o.Priority,
			Status:                OccupancyActive,
			TransferredFrom:       &o.ID,
		}
		if err := s.repo.CreateOccupancy(ctx, next); err != nil {
			return err
		}

		newBed.Status = StatusOccupied
		if err := s.repo.UpdateBed(ctx, newBed); err != nil {
			return err
		}

		o.TransferredTo = &next.ID
		if err := s.repo.UpdateOccupancy(ctx, o); err != nil {
			return err
		}

		successor = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return successor, nil
}

// -- Query surface --

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.repo.Stats(ctx)
}
