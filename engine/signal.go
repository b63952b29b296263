package engine

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ftahirops/killa/model"
	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

// ErrProtected is reported for rows the dispatcher refuses to signal.
var ErrProtected = errors.New("process is protected")

// Signaler delivers a signal to a process.
type Signaler interface {
	Signal(pid int, sig unix.Signal) error
}

// UnixSignaler delivers signals with kill(2).
type UnixSignaler struct{}

func (UnixSignaler) Signal(pid int, sig unix.Signal) error {
	if pid <= 0 {
		return fmt.Errorf("invalid PID: %d", pid)
	}
	if err := unix.Kill(pid, sig); err != nil {
		return fmt.Errorf("send %s to pid %d: %w", SignalName(sig), pid, err)
	}
	return nil
}

// SignalName returns the conventional name of sig, e.g. "SIGTERM".
func SignalName(sig unix.Signal) string {
	if name := unix.SignalName(sig); name != "" {
		return name
	}
	return "signal " + strconv.Itoa(int(sig))
}

// ParseSignal accepts "TERM", "sigterm" or "15".
func ParseSignal(s string) (unix.Signal, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 || unix.SignalName(unix.Signal(n)) == "" {
			return 0, fmt.Errorf("unknown signal %q", s)
		}
		return unix.Signal(n), nil
	}
	name := strings.ToUpper(s)
	if !strings.HasPrefix(name, "SIG") {
		name = "SIG" + name
	}
	sig := unix.SignalNum(name)
	if sig == 0 {
		return 0, fmt.Errorf("unknown signal %q", s)
	}
	return sig, nil
}

// Protection lists processes that are never signalled: killa itself and
// any process whose name is in Names.
type Protection struct {
	SelfPID int
	Names   map[string]struct{}
}

// NewProtection protects the current process and the given names.
func NewProtection(names []string) Protection {
	p := Protection{SelfPID: os.Getpid(), Names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			p.Names[n] = struct{}{}
		}
	}
	return p
}

// Check returns ErrProtected (wrapped) if r must not be signalled.
func (p Protection) Check(r *model.Row) error {
	if p.SelfPID > 0 && r.PID == p.SelfPID {
		return fmt.Errorf("%w: pid %d is this process", ErrProtected, r.PID)
	}
	if _, ok := p.Names[r.Name]; ok {
		return fmt.Errorf("%w: %s", ErrProtected, r.Name)
	}
	return nil
}

// DispatchFailure is one pid that could not be signalled.
type DispatchFailure struct {
	PID  int
	Name string
	Err  error
}

// DispatchReport summarises one confirmed signal batch.
type DispatchReport struct {
	ID       string
	Signal   unix.Signal
	At       time.Time
	Sent     []int
	Failures []DispatchFailure
}

// Total returns the number of rows the batch covered.
func (r *DispatchReport) Total() int {
	return len(r.Sent) + len(r.Failures)
}

// Summary is a one-line description for status bars and logs.
func (r *DispatchReport) Summary() string {
	s := fmt.Sprintf("%s sent to %d/%d processes", SignalName(r.Signal), len(r.Sent), r.Total())
	if len(r.Failures) > 0 {
		s += fmt.Sprintf(", %d failed", len(r.Failures))
	}
	return s
}

// Dispatch sends sig to every row in order. A failure on one pid is
// recorded and the loop moves on.
func Dispatch(rows []model.Row, sig unix.Signal, s Signaler, prot Protection) *DispatchReport {
	rep := &DispatchReport{
		ID:     uuid.New().String(),
		Signal: sig,
		At:     time.Now(),
	}
	for i := range rows {
		r := &rows[i]
		err := prot.Check(r)
		if err == nil {
			err = s.Signal(r.PID, sig)
		}
		if err != nil {
			rep.Failures = append(rep.Failures, DispatchFailure{PID: r.PID, Name: r.Name, Err: err})
			continue
		}
		rep.Sent = append(rep.Sent, r.PID)
	}
	return rep
}
