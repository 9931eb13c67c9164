package prebid_cache_client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/buger/jsonparser"
	"github.com/golang/glog"
	"github.com/prebid/auction-core/config"
	"github.com/prebid/auction-core/metrics"
	"github.com/prebid/auction-core/openrtb_ext"
	"golang.org/x/net/context/ctxhttp"
)

// Client stores values in Prebid Cache. For more info, see https://github.com/prebid/prebid-cache
type Client interface {
	// PutJson stores the values in the cache with a single request.
	//
	// The returned string slice will always have the same number of elements as the values argument. If a
	// value could not be saved, the element will be an empty string. Implementations are responsible for
	// logging any relevant errors to the app logs.
	//
	// The returned ExtHttpCall describes the request and response for debug output. It is nil if no call was made.
	PutJson(ctx context.Context, values []Cacheable) ([]string, *openrtb_ext.ExtHttpCall, []error)

	// GetExtCacheData returns the scheme, host and path clients should use to fetch cached assets.
	GetExtCacheData() (scheme string, host string, path string)
}

type PayloadType string

const (
	TypeJSON PayloadType = "json"
	TypeXML  PayloadType = "xml"
)

type Cacheable struct {
	Type       PayloadType
	Data       json.RawMessage
	TTLSeconds int64
	Key        string

	BidID  string
	Bidder string
}

func NewClient(conf *config.Cache, extCache *config.ExternalCache, metrics metrics.MetricsEngine) Client {
	return &clientImpl{
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 65 * time.Second,
			},
		},
		putUrl:              conf.GetPutURL(),
		externalCacheScheme: extCache.Scheme,
		externalCacheHost:   extCache.Host,
		externalCachePath:   extCache.Path,
		metrics:             metrics,
	}
}

type clientImpl struct {
	httpClient          *http.Client
	putUrl              string
	externalCacheScheme string
	externalCacheHost   string
	externalCachePath   string
	metrics             metrics.MetricsEngine
}

func (c *clientImpl) GetExtCacheData() (string, string, string) {
	path := c.externalCachePath
	if path == "/" {
		// Only the slash for the path, remove it to empty
		path = ""
	} else if len(path) > 0 && !strings.HasPrefix(path, "/") {
		// Path defined but does not start with "/", prepend it
		path = "/" + path
	}

	return c.externalCacheScheme, c.externalCacheHost, path
}

func (c *clientImpl) PutJson(ctx context.Context, values []Cacheable) (uuids []string, httpCall *openrtb_ext.ExtHttpCall, errs []error) {
	errs = make([]error, 0, 1)
	if len(values) < 1 {
		return nil, nil, errs
	}

	uuidsToReturn := make([]string, len(values))

	postBody, err := encodeValues(values)
	if err != nil {
		glog.Errorf("Error creating JSON for prebid cache: %v", err)
		errs = append(errs, fmt.Errorf("Error creating JSON for prebid cache: %v", err))
		return uuidsToReturn, nil, errs
	}

	httpReq, err := http.NewRequest("POST", c.putUrl, bytes.NewReader(postBody))
	if err != nil {
		glog.Errorf("Error creating POST request to prebid cache: %v", err)
		errs = append(errs, fmt.Errorf("Error creating POST request to prebid cache: %v", err))
		return uuidsToReturn, nil, errs
	}

	httpReq.Header.Add("Content-Type", "application/json;charset=utf-8")
	httpReq.Header.Add("Accept", "application/json")

	httpCall = &openrtb_ext.ExtHttpCall{
		Uri:            c.putUrl,
		RequestBody:    string(postBody),
		RequestHeaders: httpReq.Header.Clone(),
	}

	startTime := time.Now()
	anResp, err := ctxhttp.Do(ctx, c.httpClient, httpReq)
	elapsedTime := time.Since(startTime)
	if err != nil {
		c.metrics.RecordPrebidCacheRequestTime(false, elapsedTime)
		friendlyErr := fmt.Errorf("Error sending the request to Prebid Cache: %v; Duration=%v", err, elapsedTime)
		glog.Error(friendlyErr)
		errs = append(errs, friendlyErr)
		return uuidsToReturn, httpCall, errs
	}
	defer anResp.Body.Close()
	c.metrics.RecordPrebidCacheRequestTime(true, elapsedTime)

	responseBody, err := io.ReadAll(anResp.Body)
	httpCall.Status = anResp.StatusCode
	httpCall.ResponseBody = string(responseBody)
	if err != nil {
		glog.Errorf("Error reading the Prebid Cache response: %v", err)
		errs = append(errs, fmt.Errorf("Error reading the Prebid Cache response: %v", err))
		return uuidsToReturn, httpCall, errs
	}
	if anResp.StatusCode != http.StatusOK {
		glog.Errorf("Prebid Cache call to %s returned %d: %s", c.putUrl, anResp.StatusCode, responseBody)
		errs = append(errs, fmt.Errorf("Prebid Cache call to %s returned %d: %s", c.putUrl, anResp.StatusCode, responseBody))
		return uuidsToReturn, httpCall, errs
	}

	currentIndex := 0
	processResponse := func(uuidObj []byte, _ jsonparser.ValueType, _ int, err error) {
		if currentIndex >= len(uuidsToReturn) {
			currentIndex++
			return
		}
		if uuid, valueType, _, err := jsonparser.Get(uuidObj, "uuid"); err != nil {
			glog.Errorf("Prebid Cache returned a bad value at index %d. Error was: %v. Response body was: %s", currentIndex, err, string(responseBody))
			errs = append(errs, fmt.Errorf("Prebid Cache returned a bad value at index %d. Error was: %v. Response body was: %s", currentIndex, err, string(responseBody)))
		} else if valueType != jsonparser.String {
			glog.Errorf("Prebid Cache returned a %v at index %d in: %v", valueType, currentIndex, string(responseBody))
			errs = append(errs, fmt.Errorf("Prebid Cache returned a %v at index %d in: %v", valueType, currentIndex, string(responseBody)))
		} else {
			if uuidsToReturn[currentIndex], err = jsonparser.ParseString(uuid); err != nil {
				glog.Errorf("Prebid Cache response index %d could not be parsed as string: %v", currentIndex, err)
				errs = append(errs, fmt.Errorf("Prebid Cache response index %d could not be parsed as string: %v", currentIndex, err))
				uuidsToReturn[currentIndex] = ""
			}
		}
		currentIndex++
	}

	if _, err := jsonparser.ArrayEach(responseBody, processResponse, "responses"); err != nil {
		glog.Errorf("Error interpreting Prebid Cache response: %v\nResponse was: %s", err, string(responseBody))
		errs = append(errs, fmt.Errorf("Error interpreting Prebid Cache response: %v\nResponse was: %s", err, string(responseBody)))
		return uuidsToReturn, httpCall, errs
	}

	return uuidsToReturn, httpCall, errs
}

func encodeValues(values []Cacheable) ([]byte, error) {
	// This function assumes that m is non-nil and has at least one element.
	// clientImp.PutBids should respect this.
	var buf bytes.Buffer
	buf.WriteString(`{"puts":[`)
	for i := 0; i < len(values); i++ {
		if err := encodeValueToBuffer(values[i], i != 0, &buf); err != nil {
			return nil, err
		}
	}
	buf.WriteString("]}")
	return buf.Bytes(), nil
}

func encodeValueToBuffer(value Cacheable, leadingComma bool, buffer *bytes.Buffer) error {
	if !json.Valid(value.Data) {
		return fmt.Errorf("cacheable value of type %s is not valid JSON", value.Type)
	}
	if leadingComma {
		buffer.WriteByte(',')
	}

	buffer.WriteString(`{"type":"`)
	buffer.WriteString(string(value.Type))
	if value.TTLSeconds > 0 {
		buffer.WriteString(`","ttlseconds":`)
		buffer.WriteString(strconv.FormatInt(value.TTLSeconds, 10))
		buffer.WriteString(`,"value":`)
	} else {
		buffer.WriteString(`","value":`)
	}
	buffer.Write(value.Data)
	if len(value.Key) > 0 {
		buffer.WriteString(`,"key":"`)
		buffer.WriteString(value.Key)
		buffer.WriteString(`"`)
	}
	if len(value.BidID) > 0 {
		buffer.WriteString(`,"bidid":`)
		writeJSONString(buffer, value.BidID)
	}
	if len(value.Bidder) > 0 {
		buffer.WriteString(`,"bidder":`)
		writeJSONString(buffer, value.Bidder)
	}
	buffer.WriteByte('}')
	return nil
}

func writeJSONString(buffer *bytes.Buffer, s string) {
	b, _ := json.Marshal(s)
	buffer.Write(b)
}
