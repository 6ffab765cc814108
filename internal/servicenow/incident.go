// Read, create, and update operations against the incident table.
package servicenow

import (
	"context"
	"log/slog"
)

// IncidentClient orchestrates incident operations: it resolves the supplied
// reference into a filter, issues the request, and unwraps the response
// envelope. Multi-step operations abort entirely on any intermediate failure.
type IncidentClient struct {
	api      Client
	resolver *Resolver
	logger   *slog.Logger
}

// NewIncidentClient creates an IncidentClient. users serves the secondary
// lookups requester references need; dir may be nil (see Resolver).
func NewIncidentClient(api Client, users *UserClient, dir Directory, logger *slog.Logger) *IncidentClient {
	return &IncidentClient{
		api:      api,
		resolver: NewResolver(users, dir, logger),
		logger:   logger.With("component", "incident-client"),
	}
}

// Get returns the incidents matching ref. Fails with *NotFoundError when the
// query matches nothing, so absence is never confusable with data.
func (c *IncidentClient) Get(ctx context.Context, ref IncidentRef) ([]Incident, error) {
	query, limit, err := c.resolver.IncidentQuery(ctx, ref)
	if err != nil {
		return nil, err
	}

	records, err := c.api.GetRecords(ctx, TableIncident, query, limit)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &NotFoundError{Table: TableIncident, Query: query.Build()}
	}

	incidents := make([]Incident, 0, len(records))
	for _, r := range records {
		incidents = append(incidents, incidentFromRecord(r))
	}
	return incidents, nil
}

// Create inserts a new incident carrying exactly the supplied fields — no
// defaults are injected. Field values are validated against their enumerated
// sets before any request is sent.
func (c *IncidentClient) Create(ctx context.Context, fields IncidentFields) (*Incident, error) {
	if err := fields.Validate(false); err != nil {
		return nil, err
	}

	record, err := c.api.InsertRecord(ctx, TableIncident, fields.Record())
	if err != nil {
		return nil, err
	}

	created := incidentFromRecord(record)
	c.logger.Info("incident created", "number", created.Number, "sys_id", created.SysID)
	return &created, nil
}

// Update applies a partial update to the incident with the given number.
// The number is first resolved to a sys_id; if no incident matches, the
// operation fails with *NotFoundError and no mutating request is issued.
func (c *IncidentClient) Update(ctx context.Context, number string, fields IncidentFields) (*Incident, error) {
	if err := fields.Validate(true); err != nil {
		return nil, err
	}

	existing, err := c.Get(ctx, IncidentByNumber(number))
	if err != nil {
		return nil, err
	}

	record, err := c.api.UpdateRecord(ctx, TableIncident, existing[0].SysID, fields.Record())
	if err != nil {
		return nil, err
	}

	updated := incidentFromRecord(record)
	c.logger.Info("incident updated", "number", number, "sys_id", updated.SysID)
	return &updated, nil
}
