package servicenow

import "testing"

func TestWhereEquals(t *testing.T) {
	q := NewQueryBuilder().WhereEquals("number", "INC0010165")
	got := q.Build()
	want := "number=INC0010165"
	if got != want {
		t.Errorf("WhereEquals: got %q, want %q", got, want)
	}
}

func TestMultipleWhereClauses(t *testing.T) {
	q := NewQueryBuilder().
		WhereEquals("first_name", "Ada").
		WhereEquals("last_name", "Lovelace")
	got := q.Build()
	want := "first_name=Ada^last_name=Lovelace"
	if got != want {
		t.Errorf("Multiple where: got %q, want %q", got, want)
	}
}

func TestWhereNotEquals(t *testing.T) {
	q := NewQueryBuilder().WhereNotEquals("incident_state", "7")
	got := q.Build()
	want := "incident_state!=7"
	if got != want {
		t.Errorf("WhereNotEquals: got %q, want %q", got, want)
	}
}

func TestWhereLike(t *testing.T) {
	q := NewQueryBuilder().WhereLike("short_description", "printer jam")
	got := q.Build()
	want := "short_descriptionLIKEprinter jam"
	if got != want {
		t.Errorf("WhereLike: got %q, want %q", got, want)
	}
}

func TestWhereStartsWith(t *testing.T) {
	q := NewQueryBuilder().WhereStartsWith("number", "INC")
	got := q.Build()
	want := "numberSTARTSWITHINC"
	if got != want {
		t.Errorf("WhereStartsWith: got %q, want %q", got, want)
	}
}

func TestWhereIsNotEmpty(t *testing.T) {
	q := NewQueryBuilder().WhereIsNotEmpty("sys_id")
	got := q.Build()
	want := "sys_idISNOTEMPTY"
	if got != want {
		t.Errorf("WhereIsNotEmpty: got %q, want %q", got, want)
	}
}

func TestOrWhereEquals(t *testing.T) {
	q := NewQueryBuilder().
		WhereEquals("impact", "1").
		OrWhereEquals("urgency", "1")
	got := q.Build()
	want := "impact=1^ORurgency=1"
	if got != want {
		t.Errorf("OrWhereEquals: got %q, want %q", got, want)
	}
}

func TestOrderByAsc(t *testing.T) {
	q := NewQueryBuilder().
		WhereIsNotEmpty("sys_id").
		OrderByAsc("number")
	got := q.Build()
	want := "sys_idISNOTEMPTY^ORDERBYnumber"
	if got != want {
		t.Errorf("OrderByAsc: got %q, want %q", got, want)
	}
}

func TestSanitizeValue_EscapesCaret(t *testing.T) {
	q := NewQueryBuilder().WhereEquals("short_description", "a^b")
	got := q.Build()
	want := "short_description=a^^b"
	if got != want {
		t.Errorf("caret escaping: got %q, want %q", got, want)
	}
}

func TestBuild_EmptyQuery(t *testing.T) {
	if got := NewQueryBuilder().Build(); got != "" {
		t.Errorf("empty Build: got %q, want \"\"", got)
	}
}
