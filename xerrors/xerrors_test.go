package xerrors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	base := New("boom")
	wrapped := Wrap(base, "doing thing")

	assert.EqualError(t, wrapped, "doing thing: boom")
	assert.True(t, Is(wrapped, base))
	assert.Nil(t, Wrap(nil, "ignored"))
}

func TestWrapf(t *testing.T) {
	base := New("boom")
	wrapped := Wrapf(base, "attempt %d", 3)

	assert.EqualError(t, wrapped, "attempt 3: boom")
	assert.True(t, Is(wrapped, base))
	assert.Nil(t, Wrapf(nil, "attempt %d", 3))
}

func TestWithCode(t *testing.T) {
	base := New("boom")
	coded := WithCode(base, "BRK_OPEN")

	assert.Equal(t, "BRK_OPEN", GetCode(coded))
	assert.True(t, Is(coded, base))
	assert.Nil(t, WithCode(nil, "BRK_OPEN"))

	// 外层再包装一次，错误码仍能被提取
	outer := Wrap(coded, "outer")
	assert.Equal(t, "BRK_OPEN", GetCode(outer))
}

func TestGetCodeWithoutCode(t *testing.T) {
	assert.Equal(t, "", GetCode(New("plain")))
	assert.Equal(t, "", GetCode(nil))
}
