// Package errors provides structured error handling for the study engine.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Assignment errors
	CodeAssignParticipantMissing Code = "ASSIGN_PARTICIPANT_MISSING"
	CodeAssignCandidatesTooFew   Code = "ASSIGN_CANDIDATES_TOO_FEW"
	CodeAssignCandidatesRepeated Code = "ASSIGN_CANDIDATES_REPEATED"

	// Response errors
	CodeResponsePairSize          Code = "RESPONSE_PAIR_SIZE"
	CodeResponseParticipantMissing Code = "RESPONSE_PARTICIPANT_MISSING"
	CodeResponsePayloadMissing    Code = "RESPONSE_PAYLOAD_MISSING"

	// Auth errors
	CodeAuthTokenMissing Code = "AUTH_TOKEN_MISSING"
	CodeAuthTokenInvalid Code = "AUTH_TOKEN_INVALID"

	// Content errors
	CodeContentUnknownDocument Code = "CONTENT_UNKNOWN_DOCUMENT"
	CodeContentUnknownStudy    Code = "CONTENT_UNKNOWN_STUDY"

	// Storage errors
	CodeNotFound           Code = "NOT_FOUND"
	CodeStorageUnavailable Code = "STORAGE_UNAVAILABLE"
)

// HTTPStatus maps an error code onto an HTTP response status.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeAssignParticipantMissing,
		CodeAssignCandidatesTooFew,
		CodeAssignCandidatesRepeated,
		CodeResponsePairSize,
		CodeResponseParticipantMissing,
		CodeResponsePayloadMissing:
		return http.StatusBadRequest
	case CodeAuthTokenMissing, CodeAuthTokenInvalid:
		return http.StatusUnauthorized
	case CodeNotFound, CodeContentUnknownDocument, CodeContentUnknownStudy:
		return http.StatusNotFound
	case CodeStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// IsValidation reports whether the code describes a client-input failure that
// must not be retried automatically.
func (c Code) IsValidation() bool {
	return c.HTTPStatus() == http.StatusBadRequest
}
