// Filter resolution: turning loosely typed caller-supplied identifiers into
// exact table query filters.
//
// Callers identify users by account name, email, full name, or sys_id, and
// incidents by number, short-description fragment, or requester. The
// requester form is the interesting one: a single raw string that may be an
// email, a "Last, First" name, a directory account name, or an already
// resolved sys_id. Classification order is load-bearing:
//
//  1. contains '@'  → email lookup
//  2. contains ','  → "Last, First" lookup
//  3. known directory account → account-name lookup
//  4. otherwise     → treated as a sys_id, used verbatim
//
// Email and comma checks must precede the directory check because a raw
// sys_id never contains '@' or ','; the verbatim fallback must be last so
// any opaque identifier still works. Lookups that match zero or more than
// one user abort with a typed error rather than guessing.
package servicenow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hematic/servicenow-client/internal/observability"
)

// refKind tags which variant of a reference is active.
type refKind int

const (
	refNone refKind = iota
	refAccountName
	refEmail
	refFullName
	refSysID
	refNumber
	refSearch
	refCaller
)

// UserRef identifies a sys_user record by exactly one attribute.
// The zero value is invalid; use one of the constructors.
type UserRef struct {
	kind  refKind
	value string
	first string
	last  string
}

// UserByAccountName identifies a user by directory account name (user_name).
func UserByAccountName(name string) UserRef {
	return UserRef{kind: refAccountName, value: name}
}

// UserByEmail identifies a user by email address.
func UserByEmail(email string) UserRef {
	return UserRef{kind: refEmail, value: email}
}

// UserByFullName identifies a user by first and last name.
func UserByFullName(first, last string) UserRef {
	return UserRef{kind: refFullName, first: first, last: last}
}

// UserByID identifies a user by sys_id.
func UserByID(sysID string) UserRef {
	return UserRef{kind: refSysID, value: sysID}
}

// String describes the reference for error and log messages.
func (r UserRef) String() string {
	switch r.kind {
	case refAccountName:
		return "user_name=" + r.value
	case refEmail:
		return "email=" + r.value
	case refFullName:
		return fmt.Sprintf("first_name=%s last_name=%s", r.first, r.last)
	case refSysID:
		return "sys_id=" + r.value
	default:
		return "(empty user reference)"
	}
}

// Query builds the sys_user table filter for this reference.
func (r UserRef) Query() (*QueryBuilder, error) {
	q := NewQueryBuilder()
	switch r.kind {
	case refAccountName:
		q.WhereEquals("user_name", r.value)
	case refEmail:
		q.WhereEquals("email", r.value)
	case refFullName:
		q.WhereEquals("first_name", r.first).WhereEquals("last_name", r.last)
	case refSysID:
		q.WhereEquals("sys_id", r.value)
	default:
		return nil, fmt.Errorf("empty user reference; use one of the UserBy constructors")
	}
	return q, nil
}

// IncidentRef identifies one or more incident records by exactly one
// criterion. The zero value is invalid; use one of the constructors.
type IncidentRef struct {
	kind  refKind
	value string
}

// IncidentByNumber identifies an incident by its human-facing number,
// e.g. "INC0010165". Resolution limits the query to a single result.
func IncidentByNumber(number string) IncidentRef {
	return IncidentRef{kind: refNumber, value: number}
}

// IncidentBySearch identifies incidents whose short description contains
// the given fragment.
func IncidentBySearch(fragment string) IncidentRef {
	return IncidentRef{kind: refSearch, value: fragment}
}

// IncidentByCaller identifies incidents logged for a requester. The raw
// string is classified at resolution time: email, "Last, First" name,
// directory account, or verbatim sys_id.
func IncidentByCaller(raw string) IncidentRef {
	return IncidentRef{kind: refCaller, value: raw}
}

// Directory reports whether an account name exists in an external directory
// service. It is consulted only to tell a bare account name apart from an
// opaque sys_id; a nil Directory skips that step.
type Directory interface {
	AccountExists(ctx context.Context, account string) (bool, error)
}

// userFinder is the lookup capability the resolver needs from UserClient.
type userFinder interface {
	Find(ctx context.Context, ref UserRef) ([]User, error)
}

// Resolver resolves incident references into table query filters, performing
// secondary user lookups for requester references.
type Resolver struct {
	users  userFinder
	dir    Directory
	logger *slog.Logger
}

// NewResolver creates a Resolver. dir may be nil when no directory service
// is available; the account-name classification step is then skipped.
func NewResolver(users userFinder, dir Directory, logger *slog.Logger) *Resolver {
	return &Resolver{
		users:  users,
		dir:    dir,
		logger: logger.With("component", "resolver"),
	}
}

// IncidentQuery resolves ref into an incident table filter and result limit.
// A limit of 0 means the server default page size; lookups by exact number
// are limited to one result.
func (rv *Resolver) IncidentQuery(ctx context.Context, ref IncidentRef) (*QueryBuilder, int, error) {
	switch ref.kind {
	case refNumber:
		observability.Metrics.ResolutionsTotal.WithLabelValues("number").Inc()
		return NewQueryBuilder().WhereEquals("number", ref.value), 1, nil

	case refSearch:
		observability.Metrics.ResolutionsTotal.WithLabelValues("search").Inc()
		return NewQueryBuilder().WhereLike("short_description", ref.value), 0, nil

	case refCaller:
		sysID, err := rv.resolveCaller(ctx, ref.value)
		if err != nil {
			return nil, 0, err
		}
		return NewQueryBuilder().WhereEquals("caller_id", sysID), 0, nil

	default:
		return nil, 0, fmt.Errorf("empty incident reference; use one of the IncidentBy constructors")
	}
}

// resolveCaller classifies a raw requester string and returns the caller's
// sys_id. See the package comment for the classification order.
func (rv *Resolver) resolveCaller(ctx context.Context, raw string) (string, error) {
	switch {
	case strings.Contains(raw, "@"):
		observability.Metrics.ResolutionsTotal.WithLabelValues("email").Inc()
		rv.logger.Debug("classified requester as email", "value", raw)
		return rv.lookupOne(ctx, UserByEmail(raw))

	case strings.Contains(raw, ","):
		last, first, _ := strings.Cut(raw, ",")
		first = strings.TrimSpace(first)
		last = strings.TrimSpace(last)
		observability.Metrics.ResolutionsTotal.WithLabelValues("full_name").Inc()
		rv.logger.Debug("classified requester as full name", "first", first, "last", last)
		return rv.lookupOne(ctx, UserByFullName(first, last))

	default:
		if rv.dir != nil {
			known, err := rv.dir.AccountExists(ctx, raw)
			if err != nil {
				return "", fmt.Errorf("directory lookup for %q: %w", raw, err)
			}
			if known {
				observability.Metrics.ResolutionsTotal.WithLabelValues("account").Inc()
				rv.logger.Debug("classified requester as directory account", "value", raw)
				return rv.lookupOne(ctx, UserByAccountName(raw))
			}
		}
		// Not an email, not a name, not a known account: assume the caller
		// already holds a sys_id and use it verbatim.
		observability.Metrics.ResolutionsTotal.WithLabelValues("sys_id").Inc()
		rv.logger.Debug("treating requester as opaque sys_id", "value", raw)
		return raw, nil
	}
}

// lookupOne performs a user lookup that must match exactly one record.
func (rv *Resolver) lookupOne(ctx context.Context, ref UserRef) (string, error) {
	users, err := rv.users.Find(ctx, ref)
	if err != nil {
		return "", err
	}
	switch len(users) {
	case 0:
		return "", &UserNotFoundError{Query: ref.String()}
	case 1:
		return users[0].SysID, nil
	default:
		return "", &AmbiguousUserError{Query: ref.String(), Matches: len(users)}
	}
}
