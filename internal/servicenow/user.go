// Read access to the sys_user table.
package servicenow

import (
	"context"
	"log/slog"
)

// UserClient provides read operations against the sys_user table. There are
// no create or update operations; user records are owned by the instance.
type UserClient struct {
	api    Client
	logger *slog.Logger
}

// NewUserClient creates a UserClient on top of the given table client.
func NewUserClient(api Client, logger *slog.Logger) *UserClient {
	return &UserClient{
		api:    api,
		logger: logger.With("component", "user-client"),
	}
}

// Find returns the users matching ref. An empty result is not an error here;
// the resolver and Get decide what zero matches mean for their operation.
func (u *UserClient) Find(ctx context.Context, ref UserRef) ([]User, error) {
	query, err := ref.Query()
	if err != nil {
		return nil, err
	}

	records, err := u.api.GetRecords(ctx, TableUser, query, 0)
	if err != nil {
		return nil, err
	}

	users := make([]User, 0, len(records))
	for _, r := range records {
		users = append(users, userFromRecord(r))
	}
	return users, nil
}

// Get returns the users matching ref, failing with *NotFoundError when
// nothing matches so absence is never confusable with an empty result.
func (u *UserClient) Get(ctx context.Context, ref UserRef) ([]User, error) {
	users, err := u.Find(ctx, ref)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		query, _ := ref.Query()
		return nil, &NotFoundError{Table: TableUser, Query: query.Build()}
	}
	return users, nil
}
