package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown          ErrorCode = 1
	ErrCodePositionNotFound ErrorCode = 2

	// Signal errors (100-199)
	ErrCodeNoSignalFound ErrorCode = 100
	ErrCodeEmptySignal   ErrorCode = 101

	// Sizing errors (200-299)
	ErrCodeInvalidPrice ErrorCode = 200
	ErrCodeZeroQuantity ErrorCode = 201
	ErrCodeInvalidLot   ErrorCode = 202

	// Gateway errors (300-399)
	ErrCodeGatewayError  ErrorCode = 300
	ErrCodeQuoteFailed   ErrorCode = 301
	ErrCodeOrderFailed   ErrorCode = 302
	ErrCodeCancelFailed  ErrorCode = 303
	ErrCodeBalanceFailed ErrorCode = 304

	// Stoploss errors (400-499)
	ErrCodeStoplossError     ErrorCode = 400
	ErrCodeStoplossPlacement ErrorCode = 401
	ErrCodeStoplossRelease   ErrorCode = 402

	// Persistence errors (500-599)
	ErrCodePersistenceError ErrorCode = 500
	ErrCodeSnapshotWrite    ErrorCode = 501

	// Configuration errors (600-699)
	ErrCodeInvalidConfiguration ErrorCode = 600
	ErrCodeMissingCredentials   ErrorCode = 601
)
