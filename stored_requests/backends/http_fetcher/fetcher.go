package http_fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/prebid/auction-core/metrics"
	"github.com/prebid/auction-core/stored_requests"
	"golang.org/x/net/context/ctxhttp"
)

// NewFetcher returns a Fetcher which uses the Client to pull data from the endpoint.
//
// This file expects the endpoint to satisfy the following API:
//
//	GET {endpoint}?imp-ids=["imp1","imp2","imp3"]
//
// The above endpoint should return a payload like:
//
//	{
//	  "imps": {
//	    "imp1": { ... stored data for imp1 ... },
//	    "imp2": { ... stored data for imp2 ... },
//	    "imp3": null // If imp3 is not found
//	  }
//	}
func NewFetcher(client *http.Client, endpoint string, metricsEngine metrics.MetricsEngine) *HttpFetcher {
	// When we build requests, we'll either want to add `?imp-ids=...` _or_ `&imp-ids=...`.
	if _, err := url.Parse(endpoint); err != nil {
		glog.Fatalf(`Invalid endpoint "%s": %v`, endpoint, err)
	}
	glog.Infof("Making http_fetcher for endpoint %v", endpoint)

	urlPrefix := endpoint
	if strings.Contains(endpoint, "?") {
		urlPrefix = urlPrefix + "&"
	} else {
		urlPrefix = urlPrefix + "?"
	}

	return &HttpFetcher{
		client:        client,
		Endpoint:      urlPrefix,
		metricsEngine: metricsEngine,
	}
}

type HttpFetcher struct {
	client        *http.Client
	Endpoint      string
	metricsEngine metrics.MetricsEngine
}

func (fetcher *HttpFetcher) FetchImps(ctx context.Context, impIDs []string) (impData map[string]json.RawMessage, errs []error) {
	if len(impIDs) == 0 {
		return nil, nil
	}

	httpReq, err := buildRequest(fetcher.Endpoint, impIDs)
	if err != nil {
		return nil, []error{err}
	}

	start := time.Now()
	httpResp, err := ctxhttp.Do(ctx, fetcher.client, httpReq)
	if err != nil {
		fetcher.metricsEngine.RecordStoredDataFetchTime(false, time.Since(start))
		return nil, []error{err}
	}
	defer httpResp.Body.Close()
	impData, errs = unpackResponse(httpResp)
	fetcher.metricsEngine.RecordStoredDataFetchTime(httpResp.StatusCode == http.StatusOK, time.Since(start))
	return
}

func buildRequest(endpoint string, impIDs []string) (*http.Request, error) {
	return http.NewRequest("GET", endpoint+"imp-ids=[\""+strings.Join(impIDs, "\",\"")+"\"]", nil)
}

func unpackResponse(resp *http.Response) (impData map[string]json.RawMessage, errs []error) {
	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		errs = append(errs, err)
		return
	}

	if resp.StatusCode == http.StatusOK {
		var responseObj responseContract
		if err := json.Unmarshal(respBytes, &responseObj); err != nil {
			errs = append(errs, err)
			return
		}

		impData = responseObj.Imps
		errs = convertNullsToErrs(impData, "Imp", errs)
		return
	}

	errs = append(errs, fmt.Errorf("Error fetching Stored Imps via HTTP. Response code was %d", resp.StatusCode))
	return
}

func convertNullsToErrs(m map[string]json.RawMessage, dataType string, errs []error) []error {
	for id, val := range m {
		if bytes.Equal(val, []byte("null")) {
			delete(m, id)
			errs = append(errs, stored_requests.NotFoundError{
				ID:       id,
				DataType: dataType,
			})
		}
	}
	return errs
}

// responseContract is used to unmarshal for the endpoint
type responseContract struct {
	Imps map[string]json.RawMessage `json:"imps"`
}
