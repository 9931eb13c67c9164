package stored_requests

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/buger/jsonparser"
	"github.com/golang/glog"
	"github.com/prebid/auction-core/errortypes"
	"github.com/prebid/openrtb/v20/openrtb2"
)

// VideoStoredDataResult holds the video objects of the stored imps behind a request's imps.
type VideoStoredDataResult struct {
	ImpIDToVideo map[string]openrtb2.Video
	Errors       []error
}

// VideoStoredDataFetcher resolves the stored video attributes echoed back on bids.
type VideoStoredDataFetcher interface {
	// FetchVideoStoredData looks up imp.ext.prebid.storedrequest.id for every imp and returns the stored video.
	// The returned Errors carry accumulatedErrors followed by the lookup's own non-fatal errors.
	// A non-nil error means the lookup failed as a whole. Errors then still carries what was collected before the failure.
	FetchVideoStoredData(ctx context.Context, imps []openrtb2.Imp, accumulatedErrors []error, timeout time.Duration) (VideoStoredDataResult, error)
}

type videoStoredDataService struct {
	fetcher ImpFetcher
}

func NewVideoStoredDataService(fetcher ImpFetcher) VideoStoredDataFetcher {
	return &videoStoredDataService{fetcher: fetcher}
}

func (s *videoStoredDataService) FetchVideoStoredData(ctx context.Context, imps []openrtb2.Imp, accumulatedErrors []error, timeout time.Duration) (VideoStoredDataResult, error) {
	result := VideoStoredDataResult{
		ImpIDToVideo: make(map[string]openrtb2.Video, len(imps)),
		Errors:       append([]error(nil), accumulatedErrors...),
	}

	impIDToStoredID := make(map[string]string, len(imps))
	storedIDs := make([]string, 0, len(imps))
	seen := make(map[string]struct{}, len(imps))
	for _, imp := range imps {
		storedID, err := jsonparser.GetString(imp.Ext, "prebid", "storedrequest", "id")
		if err != nil || storedID == "" {
			result.Errors = append(result.Errors, &errortypes.Warning{
				Message:     fmt.Sprintf("No stored request id found for Imp with id %s", imp.ID),
				WarningCode: errortypes.MissingStoredVideoCode,
			})
			continue
		}
		impIDToStoredID[imp.ID] = storedID
		if _, ok := seen[storedID]; !ok {
			seen[storedID] = struct{}{}
			storedIDs = append(storedIDs, storedID)
		}
	}
	if len(storedIDs) == 0 {
		return result, nil
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	storedImps, errs := s.fetcher.FetchImps(ctx, storedIDs)
	for _, err := range errs {
		var notFound NotFoundError
		if errors.As(err, &notFound) {
			continue
		}
		failed := VideoStoredDataResult{ImpIDToVideo: map[string]openrtb2.Video{}, Errors: result.Errors}
		if errors.Is(err, context.DeadlineExceeded) {
			return failed, &errortypes.Timeout{Message: fmt.Sprintf("Stored imp fetch timed out after %v", timeout)}
		}
		glog.Warningf("Stored imp fetch for video attributes failed: %v", err)
		return failed, &errortypes.FailedToFetchStoredData{Message: err.Error()}
	}

	for _, imp := range imps {
		storedID, ok := impIDToStoredID[imp.ID]
		if !ok {
			continue
		}
		data, ok := storedImps[storedID]
		if !ok {
			result.Errors = append(result.Errors, &errortypes.Warning{
				Message:     fmt.Sprintf("No stored Imp found for Imp with id %s", imp.ID),
				WarningCode: errortypes.MissingStoredVideoCode,
			})
			continue
		}
		video, err := parseStoredVideo(data)
		if err != nil {
			result.Errors = append(result.Errors, &errortypes.Warning{
				Message:     fmt.Sprintf("Stored Imp %s for Imp with id %s has no usable video: %v", storedID, imp.ID, err),
				WarningCode: errortypes.MissingStoredVideoCode,
			})
			continue
		}
		result.ImpIDToVideo[imp.ID] = video
	}

	return result, nil
}

func parseStoredVideo(storedImp json.RawMessage) (openrtb2.Video, error) {
	var video openrtb2.Video
	raw, dataType, _, err := jsonparser.Get(storedImp, "video")
	if err != nil {
		return video, err
	}
	if dataType != jsonparser.Object {
		return video, fmt.Errorf("video is a %v", dataType)
	}
	err = json.Unmarshal(raw, &video)
	return video, err
}
