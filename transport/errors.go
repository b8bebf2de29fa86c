package transport

import (
	"errors"

	"github.com/dexgs/transpo-go/crypto"
	"github.com/dexgs/transpo-go/limits"
	"github.com/dexgs/transpo-go/transfer"
)

// classifyDecodeError maps a decoder failure onto the error taxonomy:
// authentication failures are distinguished from protocol violations so
// the caller can present the right message.
func classifyDecodeError(err error) transfer.ErrorCode {
	switch {
	case errors.Is(err, crypto.ErrDecryptFailed):
		return transfer.CodeAuthFailure
	case errors.Is(err, limits.ErrRecordTooLarge):
		return transfer.CodeProtocolViolation
	default:
		return transfer.CodeProtocolViolation
	}
}
