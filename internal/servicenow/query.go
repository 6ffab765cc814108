// ServiceNow encoded-query construction.
package servicenow

import (
	"fmt"
	"strings"
)

// ServiceNow query syntax constants.
const (
	snAND        = "^"
	snOR         = "^OR"
	snIS         = "="
	snISNOT      = "!="
	snSTARTSWITH = "STARTSWITH"
	snLIKE       = "LIKE"
	snISNOTEMPTY = "ISNOTEMPTY"
	snORDERBY    = "ORDERBY"
)

// QueryBuilder constructs ServiceNow encoded query strings using a fluent API.
//
// Example output: "caller_id=abc123^short_descriptionLIKEprinter"
//
// The result of Build is the raw filter grammar; URL escaping of '=', '@',
// and spaces happens once, in the request URL construction, so the filter is
// never double-encoded.
type QueryBuilder struct {
	query strings.Builder
}

// NewQueryBuilder creates a new empty QueryBuilder.
func NewQueryBuilder() *QueryBuilder {
	return &QueryBuilder{}
}

// sanitizeValue escapes the '^' character in values to prevent query
// injection. In ServiceNow query syntax '^' is the AND separator, so literal
// carets in values must be escaped as '^^'.
func sanitizeValue(v string) string {
	if strings.TrimSpace(v) == "" {
		return v
	}
	return strings.ReplaceAll(v, snAND, snAND+snAND)
}

// Build returns the final query string, stripping the leading '^' separator.
func (q *QueryBuilder) Build() string {
	s := q.query.String()
	return strings.TrimLeft(s, "^")
}

// WhereEquals adds: ^field=value
func (q *QueryBuilder) WhereEquals(field, value string) *QueryBuilder {
	value = sanitizeValue(value)
	fmt.Fprintf(&q.query, "%s%s%s%s", snAND, field, snIS, value)
	return q
}

// OrWhereEquals adds: ^ORfield=value
func (q *QueryBuilder) OrWhereEquals(field, value string) *QueryBuilder {
	value = sanitizeValue(value)
	fmt.Fprintf(&q.query, "%s%s%s%s", snOR, field, snIS, value)
	return q
}

// WhereNotEquals adds: ^field!=value
func (q *QueryBuilder) WhereNotEquals(field, value string) *QueryBuilder {
	value = sanitizeValue(value)
	fmt.Fprintf(&q.query, "%s%s%s%s", snAND, field, snISNOT, value)
	return q
}

// WhereLike adds the substring-match clause: ^fieldLIKEvalue
func (q *QueryBuilder) WhereLike(field, value string) *QueryBuilder {
	value = sanitizeValue(value)
	fmt.Fprintf(&q.query, "%s%s%s%s", snAND, field, snLIKE, value)
	return q
}

// WhereStartsWith adds: ^fieldSTARTSWITHvalue
func (q *QueryBuilder) WhereStartsWith(field, value string) *QueryBuilder {
	value = sanitizeValue(value)
	fmt.Fprintf(&q.query, "%s%s%s%s", snAND, field, snSTARTSWITH, value)
	return q
}

// WhereIsNotEmpty adds: ^fieldISNOTEMPTY
func (q *QueryBuilder) WhereIsNotEmpty(field string) *QueryBuilder {
	field = sanitizeValue(field)
	fmt.Fprintf(&q.query, "%s%s%s", snAND, field, snISNOTEMPTY)
	return q
}

// OrderByAsc adds: ^ORDERBYfield
func (q *QueryBuilder) OrderByAsc(field string) *QueryBuilder {
	field = sanitizeValue(field)
	fmt.Fprintf(&q.query, "%s%s%s", snAND, snORDERBY, field)
	return q
}
