package exchange

import (
	"errors"
	"fmt"

	"github.com/prebid/openrtb/v20/openrtb2"
)

// ErrUnknownImpression is returned when a bid references an imp the request doesn't contain.
// Request validation rules this out, so seeing it means an upstream bug.
var ErrUnknownImpression = errors.New("bid references an impression missing from the request")

// impIndex looks imps up by id while remembering the request order.
type impIndex struct {
	imps []openrtb2.Imp
	byID map[string]*openrtb2.Imp
}

func newImpIndex(imps []openrtb2.Imp) impIndex {
	byID := make(map[string]*openrtb2.Imp, len(imps))
	for i := range imps {
		byID[imps[i].ID] = &imps[i]
	}
	return impIndex{imps: imps, byID: byID}
}

func (idx impIndex) find(impID string) (*openrtb2.Imp, error) {
	if imp, ok := idx.byID[impID]; ok {
		return imp, nil
	}
	return nil, fmt.Errorf("%w: imp id %q", ErrUnknownImpression, impID)
}
