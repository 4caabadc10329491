package bed

import "testing"

func TestOccupancyIsActive(t *testing.T) {
	o := &Occupancy{Status: OccupancyActive}
	if !o.IsActive() {
		t.Error("expected active occupancy")
	}
	for _, s := range []string{OccupancyDischarged, OccupancyTransferred} {
		o.Status = s
		if o.IsActive() {
			t.Errorf("expected %s to be inactive", s)
		}
	}
}

func TestValidBedStatuses(t *testing.T) {
	for _, s := range []string{"available", "occupied", "maintenance", "reserved"} {
		if !validBedStatuses[s] {
			t.Errorf("expected %s to be a valid status", s)
		}
	}
	if validBedStatuses["bogus"] {
		t.Error("expected bogus to be invalid")
	}
}

func TestAppendNote(t *testing.T) {
	if got := appendNote(nil, ""); got != nil {
		t.Errorf("expected nil, got %v", *got)
	}

	got := appendNote(nil, "first")
	if got == nil || *got != "first" {
		t.Error("expected note to be set")
	}

	existing := "first"
	got = appendNote(&existing, "second")
	want := "first" + noteSeparator + "second"
	if got == nil || *got != want {
		t.Errorf("expected %q, got %q", want, *got)
	}
}
