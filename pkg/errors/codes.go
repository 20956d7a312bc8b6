package errors

// ErrorCode identifies a specific failure category.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes.
const (
	ErrCodeInternal        ErrorCode = "COMMON_001"
	ErrCodeValidation      ErrorCode = "COMMON_002"
	ErrCodeNotFound        ErrorCode = "COMMON_003"
	ErrCodeConflict        ErrorCode = "COMMON_004"
	ErrCodeTooManyRequests ErrorCode = "COMMON_005"
	ErrCodeTimeout         ErrorCode = "COMMON_006"
	ErrCodeSerialization   ErrorCode = "COMMON_007"
	ErrCodeUnknown         ErrorCode = "COMMON_000"
	CodeOK                 ErrorCode = "OK"
)

// Configuration error codes. All fatal at startup.
const (
	ErrCodeConfigInvalid ErrorCode = "CFG_001"
	ErrCodeConfigMissing ErrorCode = "CFG_002"
)

// Taxonomy / matcher error codes.
const (
	ErrCodeTaxonomyInvalid        ErrorCode = "TAX_001"
	ErrCodeTaxonomyPatternInvalid ErrorCode = "TAX_002"
)

// Classification pipeline error codes.
const (
	ErrCodeClassificationFailed ErrorCode = "CLS_001"
	ErrCodeCitationDataInvalid  ErrorCode = "CLS_002"
	ErrCodeSnapshotInvalid      ErrorCode = "CLS_003"
)

// Scoring error codes.
const (
	ErrCodeProfileInvalid ErrorCode = "SCR_001"
	ErrCodeSignalUnknown  ErrorCode = "SCR_002"
)

// Store error codes (cache, relational, object storage).
const (
	ErrCodeStoreUnavailable ErrorCode = "STORE_001"
	ErrCodeStoreCorrupt     ErrorCode = "STORE_002"
	ErrCodeStoreWriteFailed ErrorCode = "STORE_003"
)

// External API error codes.
const (
	ErrCodeAPIRequestFailed  ErrorCode = "API_001"
	ErrCodeAPIRateLimited    ErrorCode = "API_002"
	ErrCodeAPIRetriesExhausted ErrorCode = "API_003"
)
