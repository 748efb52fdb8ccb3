package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatus_Apply(t *testing.T) {
	cases := []struct {
		name    string
		from    Status
		outcome Outcome
		want    Status
	}{
		{"never reached stays on failure", StatusNeverReached, ProtocolFailure, StatusNeverReached},
		{"never reached promotes on success", StatusNeverReached, ProtocolSuccess, StatusRunning},
		{"running stays on success", StatusRunning, ProtocolSuccess, StatusRunning},
		{"running degrades on failure", StatusRunning, ProtocolFailure, StatusUnavailable},
		{"unavailable recovers on success", StatusUnavailable, ProtocolSuccess, StatusRunning},
		{"unavailable stays on failure", StatusUnavailable, ProtocolFailure, StatusUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.from.Apply(tc.outcome))
		})
	}
}

func TestStatus_ApplySequence(t *testing.T) {
	status := StatusNeverReached
	outcomes := []Outcome{ProtocolFailure, ProtocolFailure, ProtocolSuccess, ProtocolFailure}
	want := []Status{StatusNeverReached, StatusNeverReached, StatusRunning, StatusUnavailable}

	for i, outcome := range outcomes {
		status = status.Apply(outcome)
		require.Equal(t, want[i], status, "after outcome %d", i)
	}
}

func TestStatus_Valid(t *testing.T) {
	require.True(t, StatusNeverReached.Valid())
	require.True(t, StatusUnavailable.Valid())
	require.True(t, StatusRunning.Valid())
	require.False(t, Status("").Valid())
	require.False(t, Status("degraded").Valid())
}
