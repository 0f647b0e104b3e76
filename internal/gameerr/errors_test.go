package gameerr

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	err := Wrap(ErrInsufficientFunds, nil, "balance 50 < cost 100")

	assert.True(t, errors.Is(err, ErrInsufficientFunds))
	assert.False(t, errors.Is(err, ErrAlreadyUnlocked))
	assert.Equal(t, "hashquest: [2] insufficient funds: balance 50 < cost 100", err.Error())
}

func TestWrapKeepsCause(t *testing.T) {
	err := fmt.Errorf("save slot main: %w", Wrap(ErrStorageWriteFailed, io.ErrUnexpectedEOF, "3 attempts"))

	assert.True(t, errors.Is(err, ErrStorageWriteFailed))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	assert.Equal(t, CodeStorageWriteFailed, CodeOf(err))
	assert.Equal(t, 0, CodeOf(io.EOF))
}
