package bed

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	CreateBed(ctx context.Context, b *BedSpace) error
	GetBed(ctx context.Context, id uuid.UUID) (*BedSpace, error)
	// GetBedForUpdate loads a bed with a row-level lock. Only meaningful
	// inside a transaction; the allocation engine uses it to serialize
	// concurrent check-then-act sequences on the same bed.
	GetBedForUpdate(ctx context.Context, id uuid.UUID) (*BedSpace, error)
	// FindActiveBedByRoomAndNumber returns (nil, nil) when no active bed
	// carries the pair.
	FindActiveBedByRoomAndNumber(ctx context.Context, roomNumber, bedNumber string) (*BedSpace, error)
	UpdateBed(ctx context.Context, b *BedSpace) error
	ListBeds(ctx context.Context, f ListFilter, limit, offset int) ([]*BedSpace, int, error)
	AvailableBeds(ctx context.Context, f ListFilter) ([]*BedSpace, error)

	CreateOccupancy(ctx context.Context, o *Occupancy) error
	GetOccupancy(ctx context.Context, id uuid.UUID) (*Occupancy, error)
	// GetOccupancyForUpdate loads an occupancy with a row-level lock. Discharge
	// and transfer check the active status on the locked row; a caller that
	// waited on the lock sees the state the winner committed, never a stale
	// snapshot.
	GetOccupancyForUpdate(ctx context.Context, id uuid.UUID) (*Occupancy, error)
	UpdateOccupancy(ctx context.Context, o *Occupancy) error
	// ActiveOccupancyByBed and ActiveOccupancyByPatient return (nil, nil)
	// when there is no active occupancy.
	ActiveOccupancyByBed(ctx context.Context, bedID uuid.UUID) (*Occupancy, error)
	ActiveOccupancyByPatient(ctx context.Context, patientID uuid.UUID) (*Occupancy, error)
	ListOccupancies(ctx context.Context, f HistoryFilter, limit, offset int) ([]*Occupancy, int, error)

	Stats(ctx context.Context) (*Stats, error)
}
