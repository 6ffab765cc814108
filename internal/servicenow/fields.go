// Incident field bag and the closed enumerations the Table API recognizes.
//
// IncidentFields models a partial incident record: every field is optional
// and a field is serialized iff the caller set it. Nothing is defaulted and
// nothing is ever sent as null or empty, so an Update touches only the
// columns the caller named.
package servicenow

import "strconv"

// Category is the incident category enumeration.
type Category string

// Recognized categories.
const (
	CategoryHardware        Category = "hardware"
	CategorySoftwareService Category = "software_service"
)

// Symptom is the u_symptom enumeration.
type Symptom string

// Recognized symptoms.
const (
	SymptomSlowPerformance Symptom = "slow_performance"
	SymptomErrorMessage    Symptom = "error_message"
	SymptomCrash           Symptom = "crash"
	SymptomUnableToLaunch  Symptom = "unable_to_launch_connect"
	SymptomAccessIssue     Symptom = "access_issue"
)

// ContactType is the contact_type enumeration.
type ContactType string

// Recognized contact types.
const (
	ContactEmail        ContactType = "email"
	ContactCall         ContactType = "call"
	ContactIM           ContactType = "im"
	ContactWalkIn       ContactType = "walk-in"
	ContactNonUserQuery ContactType = "non_user_query"
	ContactSelfService  ContactType = "self-service"
)

// State is the incident_state enumeration. Accepted on update only.
type State int

// Incident lifecycle states.
const (
	StateNew        State = 1
	StateInProgress State = 2
	StateOnHold     State = 3
	StateResolved   State = 6
	StateClosed     State = 7
	StateCanceled   State = 8
)

var (
	validCategories   = []Category{CategoryHardware, CategorySoftwareService}
	validSymptoms     = []Symptom{SymptomSlowPerformance, SymptomErrorMessage, SymptomCrash, SymptomUnableToLaunch, SymptomAccessIssue}
	validContactTypes = []ContactType{ContactEmail, ContactCall, ContactIM, ContactWalkIn, ContactNonUserQuery, ContactSelfService}
	validStates       = []State{StateNew, StateInProgress, StateOnHold, StateResolved, StateClosed, StateCanceled}
)

// IncidentFields is the partial field set for create and update requests.
// nil means "not supplied": the key is omitted from the request body.
type IncidentFields struct {
	ShortDescription *string
	Description      *string
	CallerID         *string
	AssignmentGroup  *string
	Comments         *string
	WorkNotes        *string
	Category         *Category
	Symptom          *Symptom
	ContactType      *ContactType
	Impact           *int // 1-3
	Urgency          *int // 1-3
	Priority         *int // 1-4
	State            *State
	SuppressNotify   *bool
}

// Validate checks every supplied value against its enumerated set. forUpdate
// permits the State field, which has no meaning on create. Runs before any
// network call so an invalid value is never sent to the API.
func (f *IncidentFields) Validate(forUpdate bool) error {
	if f.Category != nil && !contains(validCategories, *f.Category) {
		return &FieldError{Field: "category", Value: string(*f.Category), Allowed: enumStrings(validCategories)}
	}
	if f.Symptom != nil && !contains(validSymptoms, *f.Symptom) {
		return &FieldError{Field: "u_symptom", Value: string(*f.Symptom), Allowed: enumStrings(validSymptoms)}
	}
	if f.ContactType != nil && !contains(validContactTypes, *f.ContactType) {
		return &FieldError{Field: "contact_type", Value: string(*f.ContactType), Allowed: enumStrings(validContactTypes)}
	}
	if f.Impact != nil && (*f.Impact < 1 || *f.Impact > 3) {
		return &FieldError{Field: "impact", Value: strconv.Itoa(*f.Impact), Allowed: []string{"1", "2", "3"}}
	}
	if f.Urgency != nil && (*f.Urgency < 1 || *f.Urgency > 3) {
		return &FieldError{Field: "urgency", Value: strconv.Itoa(*f.Urgency), Allowed: []string{"1", "2", "3"}}
	}
	if f.Priority != nil && (*f.Priority < 1 || *f.Priority > 4) {
		return &FieldError{Field: "priority", Value: strconv.Itoa(*f.Priority), Allowed: []string{"1", "2", "3", "4"}}
	}
	if f.State != nil {
		if !forUpdate {
			return &FieldError{Field: "incident_state", Value: strconv.Itoa(int(*f.State)), Allowed: []string{"(update only)"}}
		}
		if !contains(validStates, *f.State) {
			return &FieldError{Field: "incident_state", Value: strconv.Itoa(int(*f.State)), Allowed: []string{"1", "2", "3", "6", "7", "8"}}
		}
	}
	return nil
}

// Record builds the request body: exactly the supplied fields, no extra keys,
// no null values. The suppression flag keeps its native boolean form.
func (f *IncidentFields) Record() Record {
	r := Record{}
	setString(r, "short_description", f.ShortDescription)
	setString(r, "description", f.Description)
	setString(r, "caller_id", f.CallerID)
	setString(r, "assignment_group", f.AssignmentGroup)
	setString(r, "comments", f.Comments)
	setString(r, "work_notes", f.WorkNotes)
	if f.Category != nil {
		r["category"] = string(*f.Category)
	}
	if f.Symptom != nil {
		r["u_symptom"] = string(*f.Symptom)
	}
	if f.ContactType != nil {
		r["contact_type"] = string(*f.ContactType)
	}
	if f.Impact != nil {
		r["impact"] = *f.Impact
	}
	if f.Urgency != nil {
		r["urgency"] = *f.Urgency
	}
	if f.Priority != nil {
		r["priority"] = *f.Priority
	}
	if f.State != nil {
		r["incident_state"] = int(*f.State)
	}
	if f.SuppressNotify != nil {
		r["u_suppress_notify"] = *f.SuppressNotify
	}
	return r
}

func setString(r Record, key string, v *string) {
	if v != nil {
		r[key] = *v
	}
}

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func enumStrings[T ~string](set []T) []string {
	out := make([]string, len(set))
	for i, s := range set {
		out[i] = string(s)
	}
	return out
}
