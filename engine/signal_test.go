package engine

import (
	"errors"
	"testing"

	"github.com/ftahirops/killa/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// recordingSignaler records deliveries and fails for pids in fail.
type recordingSignaler struct {
	calls []int
	sigs  []unix.Signal
	fail  map[int]error
}

func (r *recordingSignaler) Signal(pid int, sig unix.Signal) error {
	r.calls = append(r.calls, pid)
	r.sigs = append(r.sigs, sig)
	if err, ok := r.fail[pid]; ok {
		return err
	}
	return nil
}

func TestParseSignal(t *testing.T) {
	tests := []struct {
		in   string
		want unix.Signal
	}{
		{"TERM", unix.SIGTERM},
		{"term", unix.SIGTERM},
		{"SIGKILL", unix.SIGKILL},
		{"sigint", unix.SIGINT},
		{"9", unix.SIGKILL},
		{" 15 ", unix.SIGTERM},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSignal(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "nope", "0", "-3", "999"} {
		_, err := ParseSignal(bad)
		assert.Error(t, err, "ParseSignal(%q)", bad)
	}
}

func TestSignalName(t *testing.T) {
	assert.Equal(t, "SIGTERM", SignalName(unix.SIGTERM))
	assert.Equal(t, "signal 999", SignalName(unix.Signal(999)))
}

func TestDispatch_ContinuesPastFailures(t *testing.T) {
	rows := []model.Row{{PID: 5, Name: "a"}, {PID: 6, Name: "b"}, {PID: 7, Name: "c"}}
	sig := &recordingSignaler{fail: map[int]error{6: unix.ESRCH}}

	rep := Dispatch(rows, unix.SIGTERM, sig, Protection{})
	assert.Equal(t, []int{5, 6, 7}, sig.calls, "every pid is attempted, in order")
	assert.Equal(t, []int{5, 7}, rep.Sent)
	require.Len(t, rep.Failures, 1)
	assert.Equal(t, 6, rep.Failures[0].PID)
	assert.Equal(t, "b", rep.Failures[0].Name)
	assert.ErrorIs(t, rep.Failures[0].Err, unix.ESRCH)
	assert.Equal(t, 3, rep.Total())
	assert.NotEmpty(t, rep.ID)
	assert.Equal(t, "SIGTERM sent to 2/3 processes, 1 failed", rep.Summary())
}

func TestDispatch_SkipsProtected(t *testing.T) {
	rows := []model.Row{{PID: 100, Name: "self"}, {PID: 5, Name: "sshd"}, {PID: 6, Name: "worker"}}
	prot := NewProtection([]string{"sshd", " "})
	prot.SelfPID = 100
	sig := &recordingSignaler{}

	rep := Dispatch(rows, unix.SIGKILL, sig, prot)
	assert.Equal(t, []int{6}, sig.calls)
	assert.Equal(t, []int{6}, rep.Sent)
	require.Len(t, rep.Failures, 2)
	for _, f := range rep.Failures {
		assert.True(t, errors.Is(f.Err, ErrProtected), "pid %d", f.PID)
	}
}

func TestUnixSignaler_RejectsInvalidPID(t *testing.T) {
	err := UnixSignaler{}.Signal(0, unix.SIGTERM)
	assert.Error(t, err)
}
