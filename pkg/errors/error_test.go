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
	err := New(ErrCodeNoSignalFound, "no signal token in message")
	suite.NotNil(err)
	suite.Equal(ErrCodeNoSignalFound, err.Code)
	suite.Equal("no signal token in message", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestNewfError() {
	err := Newf(ErrCodeZeroQuantity, "budget %s too small at price %s", "1", "100")
	suite.NotNil(err)
	suite.Equal(ErrCodeZeroQuantity, err.Code)
	suite.Equal("budget 1 too small at price 100", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestWrapError() {
	cause := errors.New("connection refused")
	err := Wrap(ErrCodeQuoteFailed, "failed to fetch quote", cause)
	suite.NotNil(err)
	suite.Equal(ErrCodeQuoteFailed, err.Code)
	suite.Equal("failed to fetch quote", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestWrapfError() {
	cause := errors.New("connection refused")
	err := Wrapf(ErrCodeOrderFailed, cause, "failed to buy %s", "FOOBTC")
	suite.NotNil(err)
	suite.Equal(ErrCodeOrderFailed, err.Code)
	suite.Equal("failed to buy FOOBTC", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestErrorString() {
	err := New(ErrCodeNoSignalFound, "no signal token in message")
	suite.Equal("[100] no signal token in message", err.Error())
}

func (suite *ErrorTestSuite) TestErrorStringWithCause() {
	cause := errors.New("connection refused")
	err := Wrap(ErrCodeOrderFailed, "failed to place order", cause)
	suite.Equal("[302] failed to place order: connection refused", err.Error())
}

func (suite *ErrorTestSuite) TestUnwrap() {
	cause := errors.New("connection refused")
	err := Wrap(ErrCodeCancelFailed, "failed to cancel order", cause)
	suite.Equal(cause, err.Unwrap())
}

func (suite *ErrorTestSuite) TestUnwrapNil() {
	err := New(ErrCodeInvalidPrice, "price must be positive")
	suite.Nil(err.Unwrap())
}

func (suite *ErrorTestSuite) TestGetCode() {
	err := New(ErrCodeInvalidPrice, "price must be positive")
	suite.Equal(ErrCodeInvalidPrice, GetCode(err))
}

func (suite *ErrorTestSuite) TestGetCodeFromWrapped() {
	cause := New(ErrCodeQuoteFailed, "failed to fetch quote")
	err := Wrap(ErrCodeStoplossPlacement, "failed to place protection", cause)
	// GetCode should return the outermost error's code
	suite.Equal(ErrCodeStoplossPlacement, GetCode(err))
}

func (suite *ErrorTestSuite) TestGetCodeFromStandardError() {
	err := errors.New("standard error")
	suite.Equal(ErrCodeUnknown, GetCode(err))
}

func (suite *ErrorTestSuite) TestGetCodeThroughFmtWrap() {
	inner := New(ErrCodeZeroQuantity, "quantity rounds to zero")
	err := fmt.Errorf("cycle failed: %w", inner)
	suite.Equal(ErrCodeZeroQuantity, GetCode(err))
}

func (suite *ErrorTestSuite) TestHasCode() {
	err := New(ErrCodeStoplossRelease, "cancel rejected by venue")
	suite.True(HasCode(err, ErrCodeStoplossRelease))
	suite.False(HasCode(err, ErrCodeStoplossPlacement))
}

func (suite *ErrorTestSuite) TestIsGateway() {
	suite.True(IsGateway(New(ErrCodeQuoteFailed, "quote")))
	suite.True(IsGateway(New(ErrCodeOrderFailed, "order")))
	suite.False(IsGateway(New(ErrCodeNoSignalFound, "signal")))
	suite.False(IsGateway(New(ErrCodeStoplossRelease, "stoploss")))
}
