package paystatus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindPartition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw   string
		kind  Kind
		final bool
	}{
		{"success", KindSuccess, true},
		{"WAIT_COMPENSATION", KindSuccess, true},
		{"hold_wait", KindApproved, true},
		{"wait_accept", KindApproved, true},
		{"reversed", KindFailure, true},
		{" FAIL ", KindFailure, true},
		{"3ds_verify", KindPending, false},
		{"processing", KindPending, false},
		{"CLIENT_WAIT", KindPending, false},
		{"something_new", KindPending, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()

			s := Parse(tt.raw)
			assert.Equal(t, tt.kind, s.Kind())
			assert.Equal(t, tt.final, s.Final())
		})
	}
}

func TestNeedsHoldCompletion(t *testing.T) {
	t.Parallel()

	assert.True(t, NeedsHoldCompletion(HoldWait, "paypart", true))
	assert.True(t, NeedsHoldCompletion(HoldWait, " Moment_Part", true))
	assert.False(t, NeedsHoldCompletion(HoldWait, "card", true))
	assert.False(t, NeedsHoldCompletion(HoldWait, "paypart", false))
	assert.False(t, NeedsHoldCompletion(Success, "paypart", true))
}
