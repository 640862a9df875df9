package commission

import "context"

// Repository persists commission rules and overrides per booking
type Repository interface {
	// FindFeed returns the rule and overrides of a booking.
	// A booking without commission data yields an empty feed, not an error.
	FindFeed(ctx context.Context, bookingID string) (*Feed, error)

	// SaveRule creates or replaces the base rule, owner pct and precomputed
	// figures of a booking. Overrides are left untouched.
	SaveRule(ctx context.Context, bookingID string, feed *Feed) error

	// SaveOverride creates or replaces the override at target
	SaveOverride(ctx context.Context, bookingID string, target Target, split Split) error

	// DeleteOverride removes the override at target. Deleting a missing
	// override returns shared.ErrNotFound.
	DeleteOverride(ctx context.Context, bookingID string, target Target) error
}
