package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/julienschmidt/httprouter"
	"github.com/prebid/auction-core/config"
	"github.com/prebid/auction-core/errortypes"
	"github.com/prebid/auction-core/exchange"
	"github.com/prebid/auction-core/exchange/entities"
	"github.com/prebid/auction-core/openrtb_ext"
	"github.com/prebid/openrtb/v20/openrtb2"
)

const maxResolveBodyBytes = 1 << 20

// ResolveRequest is the body of POST /debug/resolve: a bid request and the responses its bidders returned.
type ResolveRequest struct {
	BidRequest      *openrtb2.BidRequest    `json:"bidrequest"`
	Account         string                  `json:"account,omitempty"`
	BidderResponses []ResolveBidderResponse `json:"bidderresponses"`
}

type ResolveBidderResponse struct {
	Bidder             openrtb_ext.BidderName         `json:"bidder"`
	ResponseTimeMillis int                            `json:"responsetimemillis,omitempty"`
	Bids               []ResolveBid                   `json:"bids,omitempty"`
	Errors             []openrtb_ext.ExtBidderMessage `json:"errors,omitempty"`
	HttpCalls          []*openrtb_ext.ExtHttpCall     `json:"httpcalls,omitempty"`
}

type ResolveBid struct {
	Bid   *openrtb2.Bid                  `json:"bid"`
	Type  openrtb_ext.BidType            `json:"type"`
	Video *openrtb_ext.ExtBidPrebidVideo `json:"video,omitempty"`
}

type debugResolveEndpoint struct {
	creator         exchange.BidResponseCreator
	accountDefaults config.Account
}

// NewDebugResolveEndpoint replays bidder responses through the response creator and writes the resulting BidResponse.
func NewDebugResolveEndpoint(creator exchange.BidResponseCreator, accountDefaults config.Account) httprouter.Handle {
	e := &debugResolveEndpoint{
		creator:         creator,
		accountDefaults: accountDefaults,
	}
	return e.Handle
}

func (e *debugResolveEndpoint) Handle(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	start := time.Now()
	defer r.Body.Close()

	req, err := parseResolveRequest(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(fmt.Sprintf("Invalid request: %s\n", err.Error())))
		return
	}

	account := e.accountDefaults
	if req.Account != "" {
		account.ID = req.Account
	}
	resolvedRequest, err := json.Marshal(req.BidRequest)
	if err != nil {
		glog.Warningf("Unable to echo the resolved request: %v", err)
	}

	response, err := e.creator.Create(r.Context(), &exchange.AuctionRequest{
		BidRequest:         req.BidRequest,
		ResolvedBidRequest: resolvedRequest,
		Account:            account,
		StartTime:          start,
	}, toBidderResponses(req.BidderResponses))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, exchange.ErrUnknownImpression) {
			status = http.StatusBadRequest
		} else {
			glog.Errorf("/debug/resolve failed: %v", err)
		}
		w.WriteHeader(status)
		w.Write([]byte(fmt.Sprintf("Invalid request: %s\n", err.Error())))
		return
	}

	responseJSON, err := json.Marshal(response)
	if err != nil {
		glog.Errorf("/debug/resolve critical error marshalling the response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(responseJSON)
}

func parseResolveRequest(body io.Reader) (*ResolveRequest, error) {
	payload, err := io.ReadAll(io.LimitReader(body, maxResolveBodyBytes))
	if err != nil {
		return nil, err
	}
	var req ResolveRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, err
	}
	if req.BidRequest == nil {
		return nil, errors.New("bidrequest is required")
	}
	if len(req.BidRequest.Imp) == 0 {
		return nil, errors.New("bidrequest.imp must contain at least one element")
	}
	for i, response := range req.BidderResponses {
		if response.Bidder == "" {
			return nil, fmt.Errorf("bidderresponses[%d].bidder is required", i)
		}
		if openrtb_ext.IsBidderNameReserved(response.Bidder.String()) {
			return nil, fmt.Errorf("bidderresponses[%d].bidder %q is reserved", i, response.Bidder)
		}
		for j, bid := range response.Bids {
			if bid.Bid == nil {
				return nil, fmt.Errorf("bidderresponses[%d].bids[%d].bid is required", i, j)
			}
		}
	}
	return &req, nil
}

func toBidderResponses(responses []ResolveBidderResponse) []*entities.BidderResponse {
	bidderResponses := make([]*entities.BidderResponse, 0, len(responses))
	for _, response := range responses {
		seatBid := &entities.PbsOrtbSeatBid{
			Bids:      make([]*entities.PbsOrtbBid, 0, len(response.Bids)),
			HttpCalls: response.HttpCalls,
		}
		for _, bid := range response.Bids {
			seatBid.Bids = append(seatBid.Bids, &entities.PbsOrtbBid{
				Bid:      bid.Bid,
				BidType:  bid.Type,
				BidVideo: bid.Video,
			})
		}
		for _, message := range response.Errors {
			seatBid.Errors = append(seatBid.Errors, bidderError(message))
		}
		bidderResponses = append(bidderResponses, &entities.BidderResponse{
			Bidder:             response.Bidder,
			SeatBid:            seatBid,
			ResponseTimeMillis: response.ResponseTimeMillis,
		})
	}
	return bidderResponses
}

func bidderError(message openrtb_ext.ExtBidderMessage) error {
	switch message.Code {
	case errortypes.TimeoutErrorCode:
		return &errortypes.Timeout{Message: message.Message}
	case errortypes.BadInputErrorCode:
		return &errortypes.BadInput{Message: message.Message}
	default:
		return &errortypes.BadServerResponse{Message: message.Message}
	}
}
