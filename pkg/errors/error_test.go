package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (suite *ErrorTestSuite) TestNewError() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	suite.NotNil(err)
	suite.Equal(ErrCodeInvalidParameter, err.Code)
	suite.Equal("invalid parameter", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestNewfError() {
	err := Newf(ErrCodeInvalidParameter, "invalid parameter: %s", "test")
	suite.NotNil(err)
	suite.Equal(ErrCodeInvalidParameter, err.Code)
	suite.Equal("invalid parameter: test", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestWrapError() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeMarketDataFetchFailed, "fetch failed", cause)
	suite.NotNil(err)
	suite.Equal(ErrCodeMarketDataFetchFailed, err.Code)
	suite.Equal("fetch failed", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestWrapfError() {
	cause := errors.New("underlying error")
	err := Wrapf(ErrCodeMarketDataFetchFailed, cause, "fetch failed for symbol: %s", "BTCUSDT")
	suite.NotNil(err)
	suite.Equal(ErrCodeMarketDataFetchFailed, err.Code)
	suite.Equal("fetch failed for symbol: BTCUSDT", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestErrorString() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	suite.Equal("[100] invalid parameter", err.Error())
}

func (suite *ErrorTestSuite) TestErrorStringWithCause() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeInputDataOutOfOrder, "bar out of order", cause)
	suite.Equal("[201] bar out of order: underlying error", err.Error())
}

func (suite *ErrorTestSuite) TestUnwrap() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeInputDataOutOfOrder, "bar out of order", cause)
	suite.Equal(cause, err.Unwrap())
}

func (suite *ErrorTestSuite) TestGetCodeFromWrapped() {
	cause := New(ErrCodeBrokerRejected, "insufficient balance")
	wrapped := fmt.Errorf("order submit: %w", cause)
	suite.Equal(ErrCodeBrokerRejected, GetCode(wrapped))
}

func (suite *ErrorTestSuite) TestGetCodeUnknown() {
	err := errors.New("plain error")
	suite.Equal(ErrCodeUnknown, GetCode(err))
}

func (suite *ErrorTestSuite) TestHasCode() {
	err := New(ErrCodePersistence, "cannot write state")
	suite.True(HasCode(err, ErrCodePersistence))
	suite.False(HasCode(err, ErrCodeBrokerTransient))
}

func (suite *ErrorTestSuite) TestIsTransient() {
	suite.True(IsTransient(New(ErrCodeBrokerTransient, "rate limited")))
	suite.True(IsTransient(New(ErrCodeBrokerUnavailable, "connection reset")))
	suite.False(IsTransient(New(ErrCodeBrokerRejected, "insufficient balance")))
	suite.False(IsTransient(errors.New("plain error")))
}

func (suite *ErrorTestSuite) TestIsRejected() {
	suite.True(IsRejected(New(ErrCodeBrokerRejected, "insufficient balance")))
	suite.False(IsRejected(New(ErrCodeBrokerTransient, "rate limited")))
}

func (suite *ErrorTestSuite) TestIsRejectedWrapped() {
	cause := New(ErrCodeBrokerRejected, "insufficient balance")
	wrapped := fmt.Errorf("cycle failed: %w", cause)
	suite.True(IsRejected(wrapped))
}

func (suite *ErrorTestSuite) TestIsInputData() {
	suite.True(IsInputData(New(ErrCodeInputDataOutOfOrder, "out of order")))
	suite.True(IsInputData(New(ErrCodeInputDataDuplicate, "duplicate")))
	suite.False(IsInputData(New(ErrCodeStrategyRuntimeError, "strategy failed")))
}

func (suite *ErrorTestSuite) TestInsufficientDataError() {
	err := NewInsufficientDataErrorf(30, 10, "BTCUSDT", "need %d bars, have %d", 30, 10)
	suite.Equal("need 30 bars, have 10", err.Error())
	suite.Equal(30, err.Required)
	suite.Equal(10, err.Actual)
	suite.True(IsInsufficientDataError(err))
	suite.True(IsInsufficientDataError(fmt.Errorf("wrapped: %w", err)))
	suite.False(IsInsufficientDataError(errors.New("other")))
}
