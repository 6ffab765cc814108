package servicenow

import (
	"encoding/json"
	"errors"
	"testing"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestIncidentFields_RecordEmitsOnlySetFields(t *testing.T) {
	fields := IncidentFields{
		ShortDescription: strPtr("Test"),
		Impact:           intPtr(2),
	}

	r := fields.Record()
	if len(r) != 2 {
		t.Fatalf("expected exactly 2 keys, got %v", r)
	}
	if r["short_description"] != "Test" {
		t.Errorf("short_description = %v", r["short_description"])
	}
	if r["impact"] != 2 {
		t.Errorf("impact = %v", r["impact"])
	}
}

func TestIncidentFields_RecordEmpty(t *testing.T) {
	var fields IncidentFields
	if r := fields.Record(); len(r) != 0 {
		t.Errorf("zero-value fields should produce an empty record, got %v", r)
	}
}

func TestIncidentFields_SuppressFlagStaysBoolean(t *testing.T) {
	suppress := true
	fields := IncidentFields{SuppressNotify: &suppress}

	data, err := json.Marshal(fields.Record())
	if err != nil {
		t.Fatal(err)
	}
	want := `{"u_suppress_notify":true}`
	if string(data) != want {
		t.Errorf("serialized body = %s, want %s", data, want)
	}
}

func TestIncidentFields_Validate(t *testing.T) {
	category := CategoryHardware
	symptom := SymptomCrash
	contact := ContactSelfService
	tests := []struct {
		name      string
		fields    IncidentFields
		forUpdate bool
		wantField string // "" means valid
	}{
		{"empty is valid", IncidentFields{}, false, ""},
		{
			"all enums valid",
			IncidentFields{
				Category:    &category,
				Symptom:     &symptom,
				ContactType: &contact,
				Impact:      intPtr(1),
				Urgency:     intPtr(3),
				Priority:    intPtr(4),
			},
			false, "",
		},
		{"bad category", IncidentFields{Category: ptrCategory("furniture")}, false, "category"},
		{"bad symptom", IncidentFields{Symptom: ptrSymptom("on_fire")}, false, "u_symptom"},
		{"bad contact type", IncidentFields{ContactType: ptrContact("telegraph")}, false, "contact_type"},
		{"impact out of range", IncidentFields{Impact: intPtr(5)}, false, "impact"},
		{"urgency out of range", IncidentFields{Urgency: intPtr(0)}, false, "urgency"},
		{"priority out of range", IncidentFields{Priority: intPtr(5)}, false, "priority"},
		{"state on create rejected", IncidentFields{State: ptrState(StateResolved)}, false, "incident_state"},
		{"state on update accepted", IncidentFields{State: ptrState(StateResolved)}, true, ""},
		{"unknown state on update", IncidentFields{State: ptrState(State(4))}, true, "incident_state"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fields.Validate(tt.forUpdate)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}
			var fieldErr *FieldError
			if !errors.As(err, &fieldErr) {
				t.Fatalf("expected *FieldError, got %v", err)
			}
			if fieldErr.Field != tt.wantField {
				t.Errorf("FieldError.Field = %q, want %q", fieldErr.Field, tt.wantField)
			}
		})
	}
}

func ptrCategory(s string) *Category   { c := Category(s); return &c }
func ptrSymptom(s string) *Symptom     { v := Symptom(s); return &v }
func ptrContact(s string) *ContactType { v := ContactType(s); return &v }
func ptrState(s State) *State          { return &s }
