package errortypes

// Timeout should be used to flag that a collaborator failed to answer before the auction deadline.
type Timeout struct {
	Message string
}

func (err *Timeout) Error() string {
	return err.Message
}

func (err *Timeout) Code() int {
	return TimeoutErrorCode
}

func (err *Timeout) Severity() Severity {
	return SeverityFatal
}

// BadInput should be used when returning errors which are caused by bad input.
// It should _not_ be used if the error is a server-side issue (e.g. failed to send the external request).
type BadInput struct {
	Message string
}

func (err *BadInput) Error() string {
	return err.Message
}

func (err *BadInput) Code() int {
	return BadInputErrorCode
}

func (err *BadInput) Severity() Severity {
	return SeverityFatal
}

// BadServerResponse should be used when returning errors which are caused by bad/unexpected behavior on the remote server.
//
// For example, a bidder returning a native bid whose markup can't be reconciled with the request.
type BadServerResponse struct {
	Message string
}

func (err *BadServerResponse) Error() string {
	return err.Message
}

func (err *BadServerResponse) Code() int {
	return BadServerResponseErrorCode
}

func (err *BadServerResponse) Severity() Severity {
	return SeverityFatal
}

// FailedToCacheBids is used when the Prebid Cache round trip fails for the whole auction.
// These errors are reported under the prebid bucket and never fail the auction.
type FailedToCacheBids struct {
	Message string
}

func (err *FailedToCacheBids) Error() string {
	return err.Message
}

func (err *FailedToCacheBids) Code() int {
	return FailedToCacheBidsErrorCode
}

func (err *FailedToCacheBids) Severity() Severity {
	return SeverityFatal
}

// FailedToFetchStoredData is used when stored imp data could not be loaded.
type FailedToFetchStoredData struct {
	Message string
}

func (err *FailedToFetchStoredData) Error() string {
	return err.Message
}

func (err *FailedToFetchStoredData) Code() int {
	return FailedToFetchStoredDataErrorCode
}

func (err *FailedToFetchStoredData) Severity() Severity {
	return SeverityFatal
}

// InvalidNativeMarkup flags a native bid whose assets don't line up with the native request.
// The bid is dropped and the error is reported against its bidder.
type InvalidNativeMarkup struct {
	Message string
}

func (err *InvalidNativeMarkup) Error() string {
	return err.Message
}

func (err *InvalidNativeMarkup) Code() int {
	return InvalidNativeMarkupErrorCode
}

func (err *InvalidNativeMarkup) Severity() Severity {
	return SeverityFatal
}

type FailedToGenerateBidID struct {
	Message string
}

func (err *FailedToGenerateBidID) Error() string {
	return err.Message
}

func (err *FailedToGenerateBidID) Code() int {
	return FailedToGenerateBidIDErrorCode
}

func (err *FailedToGenerateBidID) Severity() Severity {
	return SeverityFatal
}

// DeprecatedBidder is used when an imp refers to a bidder by a name that has been retired.
type DeprecatedBidder struct {
	Message string
}

func (err *DeprecatedBidder) Error() string {
	return err.Message
}

func (err *DeprecatedBidder) Code() int {
	return DeprecatedBidderCode
}

func (err *DeprecatedBidder) Severity() Severity {
	return SeverityWarning
}

// Warning is a generic non-fatal error. Throughout the codebase, an error can
// only be a warning if it's of the type defined below
type Warning struct {
	Message     string
	WarningCode int
}

func (err *Warning) Error() string {
	return err.Message
}

func (err *Warning) Code() int {
	if err.WarningCode == 0 {
		return UnknownWarningCode
	}
	return err.WarningCode
}

func (err *Warning) Severity() Severity {
	return SeverityWarning
}
