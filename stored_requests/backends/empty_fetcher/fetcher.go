package empty_fetcher

import (
	"context"
	"encoding/json"

	"github.com/prebid/auction-core/stored_requests"
)

// EmptyFetcher is a nil-object which has no Stored Imps.
// If the server is configured to use this, every echovideoattrs lookup reports a missing stored imp.
type EmptyFetcher struct{}

func (fetcher EmptyFetcher) FetchImps(ctx context.Context, impIDs []string) (impData map[string]json.RawMessage, errs []error) {
	errs = make([]error, 0, len(impIDs))
	for _, id := range impIDs {
		errs = append(errs, stored_requests.NotFoundError{
			ID:       id,
			DataType: "Imp",
		})
	}
	return
}
