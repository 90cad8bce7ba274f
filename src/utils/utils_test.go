package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOrDefault(t *testing.T) {
	assert.Equal(t, 3, OrDefault(0, 3))
	assert.Equal(t, 5, OrDefault(5, 3))
	assert.Equal(t, "fallback", OrDefault("", "fallback"))
	assert.Equal(t, "value", OrDefault("value", "fallback"))
}

func TestRecoverPanicAsError(t *testing.T) {
	boom := errors.New("boom")

	panicky := func() (err error) {
		defer RecoverPanicAsError(&err)
		panic(boom)
	}

	err := panicky()
	assert.True(t, errors.Is(err, boom))
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := SleepContext(ctx, time.Hour)
	assert.ErrorIs(t, err, ErrSleepInterrupted)

	err = SleepContext(context.Background(), time.Millisecond)
	assert.Nil(t, err)
}
