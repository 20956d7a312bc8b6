package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormat(t *testing.T) {
	err := New(ErrCodeTaxonomyPatternInvalid, "pattern does not compile")
	assert.Equal(t, "[TAX_002] pattern does not compile", err.Error())

	withDetail := err.WithDetail("pattern=[samsung")
	assert.Equal(t, "[TAX_002] pattern does not compile: pattern=[samsung", withDetail.Error())
	// Original is not mutated.
	assert.Empty(t, err.Detail)
}

func TestWrapNilReturnsNil(t *testing.T) {
	var err error
	require.Nil(t, Wrap(err, ErrCodeStoreCorrupt, "should be nil"))
}

func TestWrapPreservesChain(t *testing.T) {
	root := stderrors.New("disk full")
	wrapped := Wrap(root, ErrCodeStoreWriteFailed, "put failed")
	outer := fmt.Errorf("classify patent 10000001: %w", wrapped)

	assert.True(t, IsCode(outer, ErrCodeStoreWriteFailed))
	assert.True(t, stderrors.Is(outer, root))
	assert.Equal(t, ErrCodeStoreWriteFailed, GetCode(outer))
}

func TestWrapUnknownCodePreservesOriginal(t *testing.T) {
	inner := New(ErrCodeNotFound, "no record")
	wrapped := Wrap(inner, ErrCodeUnknown, "lookup failed")
	assert.Equal(t, ErrCodeNotFound, wrapped.Code)
	assert.True(t, IsNotFound(wrapped))
}

func TestGetCodeForeignError(t *testing.T) {
	assert.Equal(t, ErrCodeUnknown, GetCode(stderrors.New("plain")))
	assert.Equal(t, CodeOK, GetCode(nil))
}
