package exchange

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prebid/auction-core/errortypes"
	nativeRequests "github.com/prebid/openrtb/v20/native1/request"
	nativeResponse "github.com/prebid/openrtb/v20/native1/response"
	"github.com/prebid/openrtb/v20/openrtb2"
)

// addNativeTypes copies the asset types declared in the imp's native request onto the bid's native markup.
// It returns a new bid carrying the rewritten markup. Markup without assets comes back untouched.
func addNativeTypes(bid *openrtb2.Bid, imp *openrtb2.Imp) (*openrtb2.Bid, error) {
	var nativeMarkup nativeResponse.Response
	if err := json.Unmarshal([]byte(bid.AdM), &nativeMarkup); err != nil {
		return nil, &errortypes.InvalidNativeMarkup{
			Message: fmt.Sprintf("Unable to parse native markup of bid %s: %v", bid.ID, err),
		}
	}
	if len(nativeMarkup.Assets) == 0 {
		return bid, nil
	}

	if imp.Native == nil {
		return nil, &errortypes.InvalidNativeMarkup{
			Message: fmt.Sprintf("Could not find native imp %s for bid %s", imp.ID, bid.ID),
		}
	}
	var nativePayload nativeRequests.Request
	if err := json.Unmarshal([]byte(imp.Native.Request), &nativePayload); err != nil {
		return nil, &errortypes.InvalidNativeMarkup{
			Message: fmt.Sprintf("Unable to parse native request of imp %s: %v", imp.ID, err),
		}
	}

	for _, asset := range nativeMarkup.Assets {
		if err := setAssetTypes(asset, nativePayload); err != nil {
			return nil, &errortypes.InvalidNativeMarkup{Message: err.Error()}
		}
	}

	adm, err := json.Marshal(nativeMarkup)
	if err != nil {
		return nil, &errortypes.InvalidNativeMarkup{
			Message: fmt.Sprintf("Unable to encode native markup of bid %s: %v", bid.ID, err),
		}
	}
	updated := *bid
	updated.AdM = string(adm)
	return &updated, nil
}

func setAssetTypes(asset nativeResponse.Asset, nativePayload nativeRequests.Request) error {
	if asset.Img != nil {
		if asset.ID == nil {
			return errors.New("Response Image asset doesn't have an ID")
		}
		tempAsset, err := getAssetByID(*asset.ID, nativePayload.Assets)
		if err != nil {
			return err
		}
		if tempAsset.Img == nil {
			return fmt.Errorf("Response has an Image asset with ID:%d present that doesn't exist in the request", *asset.ID)
		}
		if tempAsset.Img.Type != 0 {
			asset.Img.Type = tempAsset.Img.Type
		}
	}

	if asset.Data != nil {
		if asset.ID == nil {
			return errors.New("Response Data asset doesn't have an ID")
		}
		tempAsset, err := getAssetByID(*asset.ID, nativePayload.Assets)
		if err != nil {
			return err
		}
		if tempAsset.Data == nil {
			return fmt.Errorf("Response has a Data asset with ID:%d present that doesn't exist in the request", *asset.ID)
		}
		if tempAsset.Data.Type != 0 {
			asset.Data.Type = tempAsset.Data.Type
		}
	}
	return nil
}

func getAssetByID(id int64, assets []nativeRequests.Asset) (nativeRequests.Asset, error) {
	for _, asset := range assets {
		if id == asset.ID {
			return asset, nil
		}
	}
	return nativeRequests.Asset{}, fmt.Errorf("Unable to find asset with ID:%d in the request", id)
}
