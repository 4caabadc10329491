package bed

import (
	"time"

	"github.com/google/uuid"
)

// Bed statuses. A bed is occupied exactly while an active occupancy references
// it; maintenance and reserved are administrator side-branches from available.
const (
	StatusAvailable   = "available"
	StatusOccupied    = "occupied"
	StatusMaintenance = "maintenance"
	StatusReserved    = "reserved"
)

// Occupancy statuses. Discharged and transferred are terminal.
const (
	OccupancyActive      = "active"
	OccupancyDischarged  = "discharged"
	OccupancyTransferred = "transferred"
)

var validBedStatuses = map[string]bool{
	StatusAvailable:   true,
	StatusOccupied:    true,
	StatusMaintenance: true,
	StatusReserved:    true,
}

var validBedTypes = map[string]bool{
	"standard":  true,
	"icu":       true,
	"private":   true,
	"emergency": true,
}

var validPriorities = map[string]bool{
	"low":    true,
	"normal": true,
	"high":   true,
	"urgent": true,
}

// BedSpace maps to the bed_spaces table. The room/bed number pair is unique
// among active beds.
type BedSpace struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	RoomNumber   string     `db:"room_number" json:"room_number"`
	BedNumber    string     `db:"bed_number" json:"bed_number"`
	DepartmentID *uuid.UUID `db:"department_id" json:"department_id,omitempty"`
	Ward         *string    `db:"ward" json:"ward,omitempty"`
	Floor        *int       `db:"floor" json:"floor,omitempty"`
	Type         string     `db:"type" json:"type"`
	Status       string     `db:"status" json:"status"`
	Description  *string    `db:"description" json:"description,omitempty"`
	Equipment    []string   `db:"equipment" json:"equipment,omitempty"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Occupancy maps to the bed_occupancies table: one admission episode linking
// a patient to a bed. Rows are never deleted; closed occupancies are the
// audit trail.
type Occupancy struct {
	ID                    uuid.UUID  `db:"id" json:"id"`
	BedID                 uuid.UUID  `db:"bed_id" json:"bed_id"`
	PatientID             uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID              *uuid.UUID `db:"doctor_id" json:"doctor_id,omitempty"`
	AdmissionDate         time.Time  `db:"admission_date" json:"admission_date"`
	ExpectedDischargeDate *time.Time `db:"expected_discharge_date" json:"expected_discharge_date,omitempty"`
	ActualDischargeDate   *time.Time `db:"actual_discharge_date" json:"actual_discharge_date,omitempty"`
	AdmissionReason       string     `db:"admission_reason" json:"admission_reason"`
	Diagnosis             *string    `db:"diagnosis" json:"diagnosis,omitempty"`
	Priority              string     `db:"priority" json:"priority"`
	Notes                 *string    `db:"notes" json:"notes,omitempty"`
	Status                string     `db:"status" json:"status"`
	TransferredFrom       *uuid.UUID `db:"transferred_from" json:"transferred_from,omitempty"`
	TransferredTo         *uuid.UUID `db:"transferred_to" json:"transferred_to,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

// IsActive reports whether this occupancy is the bed's current admission.
func (o *Occupancy) IsActive() bool { return o.Status == OccupancyActive }

// BedDetails is a bed joined with its current active occupancy, if any.
type BedDetails struct {
	BedSpace
	CurrentOccupancy *Occupancy `json:"current_occupancy"`
}

// Stats aggregates the occupancy picture across active beds.
type Stats struct {
	TotalBeds        int `json:"total_beds"`
	AvailableBeds    int `json:"available_beds"`
	OccupiedBeds     int `json:"occupied_beds"`
	MaintenanceBeds  int `json:"maintenance_beds"`
	ReservedBeds     int `json:"reserved_beds"`
	ActiveAdmissions int `json:"active_admissions"`
	PatientsServed   int `json:"patients_served"`
}

// ListFilter narrows a bed listing.
type ListFilter struct {
	DepartmentID *uuid.UUID
	Type         string
	Status       string
	Ward         string
	Search       string
}

// HistoryFilter narrows an occupancy history listing.
type HistoryFilter struct {
	PatientID *uuid.UUID
	BedID     *uuid.UUID
}

// BedUpdate is a field patch for a bed. Nil fields are left untouched.
type BedUpdate struct {
	RoomNumber   *string    `json:"room_number,omitempty"`
	BedNumber    *string    `json:"bed_number,omitempty"`
	DepartmentID *uuid.UUID `json:"department_id,omitempty"`
	Ward         *string    `json:"ward,omitempty"`
	Floor        *int       `json:"floor,omitempty"`
	Type         *string    `json:"type,omitempty"`
	Status       *string    `json:"status,omitempty"`
	Description  *string    `json:"description,omitempty"`
	Equipment    []string   `json:"equipment,omitempty"`
}

// OccupancyUpdate is a field patch for an active occupancy. Status transitions
// never go through here; those belong to Allocate, Discharge, and Transfer.
type OccupancyUpdate struct {
	DoctorID              *uuid.UUID `json:"doctor_id,omitempty"`
	ExpectedDischargeDate *time.Time `json:"expected_discharge_date,omitempty"`
	AdmissionReason       *string    `json:"admission_reason,omitempty"`
	Diagnosis             *string    `json:"diagnosis,omitempty"`
	Priority              *string    `json:"priority,omitempty"`
	Notes                 *string    `json:"notes,omitempty"`
}

// AllocationRequest carries the inputs for admitting a patient to a bed.
type AllocationRequest struct {
	PatientID             uuid.UUID  `json:"patient_id"`
	DoctorID              *uuid.UUID `json:"doctor_id,omitempty"`
	AdmissionReason       string     `json:"admission_reason"`
	Diagnosis             *string    `json:"diagnosis,omitempty"`
	ExpectedDischargeDate *time.Time `json:"expected_discharge_date,omitempty"`
	Priority              string     `json:"priority,omitempty"`
	Notes                 *string    `json:"notes,omitempty"`
}
