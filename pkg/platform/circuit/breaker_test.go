package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b := New("redis", WithFailureThreshold(3), WithSuccessThreshold(2))

	for i := 0; i < 2; i++ {
		open, tr := b.RecordFailure()
		assert.False(t, open)
		assert.False(t, tr.Opened)
	}
	open, tr := b.RecordFailure()
	assert.True(t, open)
	assert.True(t, tr.Opened)
	assert.Equal(t, StateOpen, b.State())
	assert.Equal(t, "open", b.State().String())

	open, tr = b.RecordFailure()
	assert.True(t, open)
	assert.False(t, tr.Opened, "already open")
}

func TestBreakerSuccessResetsFailureRun(t *testing.T) {
	b := New("redis", WithFailureThreshold(2))
	b.RecordFailure()
	b.RecordSuccess()
	open, _ := b.RecordFailure()
	assert.False(t, open)
}

func TestBreakerClosesAfterSuccessRun(t *testing.T) {
	b := New("redis", WithFailureThreshold(1), WithSuccessThreshold(2))
	b.RecordFailure()
	assert.True(t, b.IsOpen())

	closed, tr := b.RecordSuccess()
	assert.False(t, closed)
	assert.False(t, tr.Closed)

	b.RecordFailure()
	closed, _ = b.RecordSuccess()
	assert.False(t, closed, "a failure restarts the success run")

	closed, tr = b.RecordSuccess()
	assert.True(t, closed)
	assert.True(t, tr.Closed)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerReset(t *testing.T) {
	b := New("redis", WithFailureThreshold(1))
	b.RecordFailure()
	b.Reset()
	assert.False(t, b.IsOpen())
	assert.Equal(t, "redis", b.Name())
}
