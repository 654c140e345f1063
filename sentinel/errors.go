package sentinel

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error is a failure reported by the sentinel program. Callers compare errors.Cause(err) against the values below.
type Error struct {
	Code uint32
	Name string
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Name, e.Code, e.Msg)
}

// Program errors. Codes start at 6000 like other on-ledger programs.
var (
	ErrAddressCollision     = &Error{Code: 6000, Name: "AddressCollision", Msg: "a record already exists for this transaction id"}
	ErrFundingFailure       = &Error{Code: 6001, Name: "FundingFailure", Msg: "sender cannot pay for the record"}
	ErrOversizeField        = &Error{Code: 6002, Name: "OversizeField", Msg: "field exceeds the space reserved for the record"}
	ErrInvalidTransactionID = &Error{Code: 6003, Name: "InvalidTransactionID", Msg: "transaction id must not be empty"}
	ErrAddressMismatch      = &Error{Code: 6004, Name: "AddressMismatch", Msg: "record account is not the address derived from the transaction id"}
	ErrUnauthorized         = &Error{Code: 6005, Name: "Unauthorized", Msg: "caller is not an authorized oracle"}
	ErrRecordNotFound       = &Error{Code: 6006, Name: "RecordNotFound", Msg: "no record for this transaction id"}
)

// ErrorCode returns the program error code behind err, if there is one.
func ErrorCode(err error) (uint32, bool) {
	e, ok := errors.Cause(err).(*Error)
	if !ok {
		return 0, false
	}
	return e.Code, true
}
