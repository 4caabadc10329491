package patient

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/platform/apperr"
)

// -- Mock Repository --

type mockRepo struct {
	patients map[uuid.UUID]*Patient
}

func newMockRepo() *mockRepo {
	return &mockRepo{patients: make(map[uuid.UUID]*Patient)}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	for _, existing := range m.patients {
		if existing.MRN == p.MRN {
			return apperr.Conflict("a patient with this MRN already exists")
		}
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, apperr.NotFound("patient not found")
	}
	return p, nil
}

func (m *mockRepo) Update(_ context.Context, p *Patient) error {
	if _, ok := m.patients[p.ID]; !ok {
		return apperr.NotFound("patient not found")
	}
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) List(_ context.Context, search string, limit, offset int) ([]*Patient, int, error) {
	var result []*Patient
	for _, p := range m.patients {
		if search != "" && !strings.Contains(strings.ToLower(p.LastName), strings.ToLower(search)) {
			continue
		}
		result = append(result, p)
	}
	return result, len(result), nil
}

func (m *mockRepo) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	p, ok := m.patients[id]
	return ok && p.Active, nil
}

// -- Tests --

func TestCreatePatient(t *testing.T) {
	svc := NewService(newMockRepo())

	p := &Patient{MRN: "MRN-001", FirstName: "Ada", LastName: "Lovelace"}
	err := svc.CreatePatient(context.Background(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Error("expected ID to be set")
	}
	if !p.Active {
		t.Error("expected patient to be active")
	}
}

func TestCreatePatient_Validation(t *testing.T) {
	svc := NewService(newMockRepo())

	err := svc.CreatePatient(context.Background(), &Patient{FirstName: "Ada", LastName: "Lovelace"})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error for missing mrn, got %v", err)
	}

	err = svc.CreatePatient(context.Background(), &Patient{MRN: "MRN-001"})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error for missing name, got %v", err)
	}
}

func TestCreatePatient_DuplicateMRN(t *testing.T) {
	svc := NewService(newMockRepo())

	p := &Patient{MRN: "MRN-001", FirstName: "Ada", LastName: "Lovelace"}
	if err := svc.CreatePatient(context.Background(), p); err != nil {
		t.Fatalf("create: %v", err)
	}

	dup := &Patient{MRN: "MRN-001", FirstName: "Grace", LastName: "Hopper"}
	err := svc.CreatePatient(context.Background(), dup)
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Errorf("expected conflict for duplicate MRN, got %v", err)
	}
}

func TestPatientExists(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	p := &Patient{MRN: "MRN-001", FirstName: "Ada", LastName: "Lovelace"}
	if err := svc.CreatePatient(context.Background(), p); err != nil {
		t.Fatalf("create: %v", err)
	}

	exists, err := svc.PatientExists(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exists {
		t.Error("expected patient to exist")
	}

	exists, err = svc.PatientExists(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Error("expected unknown patient to not exist")
	}
}

func TestListPatients_Search(t *testing.T) {
	svc := NewService(newMockRepo())

	svc.CreatePatient(context.Background(), &Patient{MRN: "1", FirstName: "Ada", LastName: "Lovelace"})
	svc.CreatePatient(context.Background(), &Patient{MRN: "2", FirstName: "Grace", LastName: "Hopper"})

	result, total, err := svc.ListPatients(context.Background(), "hopper", 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 {
		t.Errorf("expected 1, got %d", total)
	}
	if len(result) != 1 || result[0].FirstName != "Grace" {
		t.Error("expected only Hopper to match")
	}
}

func TestFullName(t *testing.T) {
	p := &Patient{FirstName: "Ada", LastName: "Lovelace"}
	if got := p.FullName(); got != "Ada Lovelace" {
		t.Errorf("expected 'Ada Lovelace', got %q", got)
	}
}
