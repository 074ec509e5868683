package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainErrorCarriesParam(t *testing.T) {
	err := Domain("volatility", -0.1, "> 0")

	assert.True(t, IsDomain(err))
	assert.False(t, IsComputation(err))
	assert.Equal(t, "volatility", ParamOf(err))
	assert.Equal(t, "volatility must be > 0, got -0.1", err.Error())
}

func TestWrapPreservesKindAndParam(t *testing.T) {
	base := Domain("spot", 0, "> 0")
	wrapped := Wrapf(base, "contract %d under condition %d", 1, 0)

	require.Error(t, wrapped)
	assert.Equal(t, ErrorTypeDomain, TypeOf(wrapped))
	assert.Equal(t, "spot", ParamOf(wrapped))
	assert.True(t, Is(wrapped, base))
	assert.Contains(t, wrapped.Error(), "contract 1 under condition 0")
}

func TestWrapForeignError(t *testing.T) {
	wrapped := Wrap(fmt.Errorf("boom"), "context")

	assert.Equal(t, ErrorTypeUnknown, TypeOf(wrapped))
	assert.Equal(t, "context: boom", wrapped.Error())
	assert.Nil(t, Wrap(nil, "ignored"))
}

func TestWithTypeDoesNotMutateOriginal(t *testing.T) {
	base := InvalidArgument("bad body")
	retyped := WithType(base, ErrorTypeInternal)

	assert.Equal(t, ErrorTypeInternal, TypeOf(retyped))
	assert.Equal(t, ErrorTypeInvalidArgument, TypeOf(base))
}

func TestErrorTypeString(t *testing.T) {
	assert.Equal(t, "domain_error", ErrorTypeDomain.String())
	assert.Equal(t, "computation_error", ErrorTypeComputation.String())
	assert.Equal(t, "resource_exhausted", ErrorTypeResourceExhausted.String())
	assert.Equal(t, "unknown", ErrorType(99).String())
}
