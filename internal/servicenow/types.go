// Package servicenow provides types and utilities for interacting with the ServiceNow Table API.
package servicenow

// Table names this client operates on.
const (
	TableIncident = "incident"
	TableUser     = "sys_user"
)

// Record represents a single ServiceNow table record as a map of field names to values.
type Record map[string]interface{}

// stringField returns the record field as a string, or "" when absent or
// non-string. The Table API returns every scalar as a JSON string.
func (r Record) stringField(key string) string {
	s, _ := r[key].(string)
	return s
}

// TableResponse represents the list-shaped JSON response from the Table API.
type TableResponse struct {
	Result []Record `json:"result"`
}

// SingleResponse represents the single-record response returned by POST and PUT.
type SingleResponse struct {
	Result Record `json:"result"`
}

// ErrorResponse represents a ServiceNow API error response body.
type ErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	} `json:"error"`
}

// Incident is the subset of incident table columns this client reads.
// ServiceNow serializes every value as a string regardless of column type.
type Incident struct {
	SysID            string `json:"sys_id"`
	Number           string `json:"number"`
	ShortDescription string `json:"short_description"`
	Description      string `json:"description"`
	State            string `json:"incident_state"`
	Impact           string `json:"impact"`
	Urgency          string `json:"urgency"`
	Priority         string `json:"priority"`
	Category         string `json:"category"`
	ContactType      string `json:"contact_type"`
	CallerID         string `json:"caller_id"`
	AssignmentGroup  string `json:"assignment_group"`
	OpenedAt         string `json:"opened_at"`
}

// User is the subset of sys_user columns this client reads.
type User struct {
	SysID     string `json:"sys_id"`
	UserName  string `json:"user_name"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Name      string `json:"name"`
}

// incidentFromRecord maps a raw table record onto the typed Incident shape.
func incidentFromRecord(r Record) Incident {
	return Incident{
		SysID:            r.stringField("sys_id"),
		Number:           r.stringField("number"),
		ShortDescription: r.stringField("short_description"),
		Description:      r.stringField("description"),
		State:            r.stringField("incident_state"),
		Impact:           r.stringField("impact"),
		Urgency:          r.stringField("urgency"),
		Priority:         r.stringField("priority"),
		Category:         r.stringField("category"),
		ContactType:      r.stringField("contact_type"),
		CallerID:         r.stringField("caller_id"),
		AssignmentGroup:  r.stringField("assignment_group"),
		OpenedAt:         r.stringField("opened_at"),
	}
}

// userFromRecord maps a raw table record onto the typed User shape.
func userFromRecord(r Record) User {
	return User{
		SysID:     r.stringField("sys_id"),
		UserName:  r.stringField("user_name"),
		Email:     r.stringField("email"),
		FirstName: r.stringField("first_name"),
		LastName:  r.stringField("last_name"),
		Name:      r.stringField("name"),
	}
}
