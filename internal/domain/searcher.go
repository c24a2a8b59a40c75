package domain

import "context"

// SpotSearcher finds spots by free-text query.
type SpotSearcher interface {
	// SearchSpots returns up to limit spots matching the query.
	SearchSpots(ctx context.Context, query string, limit int) (SpotSearchResult, error)
}
