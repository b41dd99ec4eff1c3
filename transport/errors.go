package transport

import (
	"fmt"
	"strconv"
)

// ErrorCode is a QUIC transport error code as sent in a CONNECTION_CLOSE frame.
// https://quicwg.org/base-drafts/draft-ietf-quic-transport.html#section-20
type ErrorCode uint64

// Transport error codes.
const (
	NoError ErrorCode = iota
	InternalError
	ConnectionRefused
	FlowControlError
	StreamLimitError
	StreamStateError
	FinalSizeError
	FrameEncodingError
	TransportParameterError
	ConnectionIDLimitError
	ProtocolViolation
	InvalidToken
	ApplicationError
	CryptoBufferExceeded
	KeyUpdateError
	AEADLimitReached
	NoViablePath
)

// cryptoErrorCode builds the error code for a TLS alert as per
// https://quicwg.org/base-drafts/draft-ietf-quic-tls.html#section-4.8
func cryptoErrorCode(alert uint8) ErrorCode {
	return ErrorCode(0x100) + ErrorCode(alert)
}

func errorCodeString(code ErrorCode) string {
	switch {
	case code >= 0x100 && code <= 0x1ff:
		return "crypto_error_" + strconv.FormatUint(uint64(code-0x100), 10)
	case int(code) < len(errorCodeNames):
		return errorCodeNames[code]
	default:
		return "unknown_error_" + strconv.FormatUint(uint64(code), 10)
	}
}

var errorCodeNames = [...]string{
	"no_error",
	"internal_error",
	"connection_refused",
	"flow_control_error",
	"stream_limit_error",
	"stream_state_error",
	"final_size_error",
	"frame_encoding_error",
	"transport_parameter_error",
	"connection_id_limit_error",
	"protocol_violation",
	"invalid_token",
	"application_error",
	"crypto_buffer_exceeded",
	"key_update_error",
	"aead_limit_reached",
	"no_viable_path",
}

// Error is a transport-level error. It carries enough information to be
// turned into a CONNECTION_CLOSE frame.
type Error struct {
	Code    ErrorCode
	Message string
}

func newError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return errorCodeString(e.Code)
	}
	return errorCodeString(e.Code) + ": " + e.Message
}

// StreamError is an application-level error reported by RESET_STREAM or
// STOP_SENDING. It never closes the connection.
type StreamError struct {
	StreamID uint64
	Code     uint64
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream %d aborted: %d", e.StreamID, e.Code)
}

// Sentinel errors used internally by the pipeline. errDrop marks a packet
// that must simply be dropped (spec.md §7); errStreamAborted is returned to
// the application writing to an aborted stream; the others are ordinary
// transport errors.
var (
	errInvalidToken  = newError(InvalidToken, "invalid retry token")
	errFlowControl   = newError(FlowControlError, "flow control limit exceeded")
	errShortBuffer   = newError(InternalError, "buffer too short")
	errDrop          = fmt.Errorf("packet dropped")
	errStreamAborted = fmt.Errorf("stream aborted")
)

func sprint(args ...interface{}) string {
	return fmt.Sprint(args...)
}
