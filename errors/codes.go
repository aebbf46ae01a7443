package errors

import "strconv"

// ErrorCode is the machine readable code returned with every error body.
type ErrorCode int32

const (
	ErrorCode_UNSPECIFIED ErrorCode = 0
	ErrorCode_HTTP_OK     ErrorCode = 200

	// General
	ErrorCode_INTERNAL          ErrorCode = 1000
	ErrorCode_INVALID_ARGUMENT  ErrorCode = 1001
	ErrorCode_NOT_FOUND         ErrorCode = 1002
	ErrorCode_PERMISSION_DENIED ErrorCode = 1004
	ErrorCode_INVALID_PAYLOAD   ErrorCode = 1005

	// Notes and documents
	ErrorCode_NOTE_NOT_FOUND     ErrorCode = 2000
	ErrorCode_DOCUMENT_MALFORMED ErrorCode = 2001
	ErrorCode_UPLOAD_FAILED      ErrorCode = 2002
	ErrorCode_UNSUPPORTED_MEDIA  ErrorCode = 2003

	// Recordings and transcripts
	ErrorCode_RECORDING_NOT_FOUND       ErrorCode = 3000
	ErrorCode_TRANSCRIPTION_UNAVAILABLE ErrorCode = 3001
	ErrorCode_TRANSCRIPTION_IN_PROGRESS ErrorCode = 3002
	ErrorCode_SPEAKER_NOT_FOUND         ErrorCode = 3003
	ErrorCode_SPEAKER_UPDATE_FAILED     ErrorCode = 3004
	ErrorCode_MISSING_RECORDING_URL     ErrorCode = 3005
	ErrorCode_PERSON_NOT_FOUND          ErrorCode = 3006

	// Integrations
	ErrorCode_INTEGRATION_STORAGE_FAILED      ErrorCode = 4000
	ErrorCode_INTEGRATION_EXTERNAL_API_FAILED ErrorCode = 4002

	// Database
	ErrorCode_DB_QUERY_FAILED       ErrorCode = 5001
	ErrorCode_DB_TRANSACTION_FAILED ErrorCode = 5002
)

var codeNames = map[ErrorCode]string{
	ErrorCode_UNSPECIFIED:                     "UNSPECIFIED",
	ErrorCode_HTTP_OK:                         "HTTP_OK",
	ErrorCode_INTERNAL:                        "INTERNAL",
	ErrorCode_INVALID_ARGUMENT:                "INVALID_ARGUMENT",
	ErrorCode_NOT_FOUND:                       "NOT_FOUND",
	ErrorCode_PERMISSION_DENIED:               "PERMISSION_DENIED",
	ErrorCode_INVALID_PAYLOAD:                 "INVALID_PAYLOAD",
	ErrorCode_NOTE_NOT_FOUND:                  "NOTE_NOT_FOUND",
	ErrorCode_DOCUMENT_MALFORMED:              "DOCUMENT_MALFORMED",
	ErrorCode_UPLOAD_FAILED:                   "UPLOAD_FAILED",
	ErrorCode_UNSUPPORTED_MEDIA:               "UNSUPPORTED_MEDIA",
	ErrorCode_RECORDING_NOT_FOUND:             "RECORDING_NOT_FOUND",
	ErrorCode_TRANSCRIPTION_UNAVAILABLE:       "TRANSCRIPTION_UNAVAILABLE",
	ErrorCode_TRANSCRIPTION_IN_PROGRESS:       "TRANSCRIPTION_IN_PROGRESS",
	ErrorCode_SPEAKER_NOT_FOUND:               "SPEAKER_NOT_FOUND",
	ErrorCode_SPEAKER_UPDATE_FAILED:           "SPEAKER_UPDATE_FAILED",
	ErrorCode_MISSING_RECORDING_URL:           "MISSING_RECORDING_URL",
	ErrorCode_PERSON_NOT_FOUND:                "PERSON_NOT_FOUND",
	ErrorCode_INTEGRATION_STORAGE_FAILED:      "INTEGRATION_STORAGE_FAILED",
	ErrorCode_INTEGRATION_EXTERNAL_API_FAILED: "INTEGRATION_EXTERNAL_API_FAILED",
	ErrorCode_DB_QUERY_FAILED:                 "DB_QUERY_FAILED",
	ErrorCode_DB_TRANSACTION_FAILED:           "DB_TRANSACTION_FAILED",
}

func (c ErrorCode) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return strconv.Itoa(int(c))
}
