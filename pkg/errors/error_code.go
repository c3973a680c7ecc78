package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidOrderIntent   ErrorCode = 102
	ErrCodeInvalidPeriod        ErrorCode = 103
	ErrCodeInsufficientData     ErrorCode = 104
	ErrCodeMissingParameter     ErrorCode = 105

	// Input data errors (200-299)
	// Malformed or out-of-order bar sequences. Always fatal for the run
	// that consumed them.
	ErrCodeInputDataEmpty        ErrorCode = 200
	ErrCodeInputDataOutOfOrder   ErrorCode = 201
	ErrCodeInputDataDuplicate    ErrorCode = 202
	ErrCodeInputDataMalformed    ErrorCode = 203
	ErrCodeDataSourceUnavailable ErrorCode = 204

	// Strategy errors (400-499)
	ErrCodeStrategyNotFound     ErrorCode = 400
	ErrCodeStrategyConfigError  ErrorCode = 401
	ErrCodeStrategyRuntimeError ErrorCode = 402

	// Broker errors (500-599)
	// Transient errors are retried with bounded backoff; rejected errors
	// are surfaced without retry and leave the recorded position unchanged.
	ErrCodeBrokerTransient     ErrorCode = 500
	ErrCodeBrokerRejected      ErrorCode = 501
	ErrCodeBrokerOrderNotFound ErrorCode = 502
	ErrCodeBrokerUnavailable   ErrorCode = 503

	// Backtest errors (600-699)
	ErrCodeBacktestInitFailed  ErrorCode = 600
	ErrCodeBacktestConfigError ErrorCode = 601
	ErrCodeBacktestAborted     ErrorCode = 602

	// Live engine errors (700-799)
	ErrCodeLiveInitFailed ErrorCode = 700
	ErrCodePersistence    ErrorCode = 701
	ErrCodeCycleFailed    ErrorCode = 702

	// Market data errors (800-899)
	ErrCodeMarketDataFetchFailed ErrorCode = 800
	ErrCodeMarketDataParseFailed ErrorCode = 801
	ErrCodeInvalidInterval       ErrorCode = 802
	ErrCodeInvalidProvider       ErrorCode = 803
)
