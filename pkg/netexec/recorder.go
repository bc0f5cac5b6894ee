package netexec

import (
	"context"
	"strings"
	"sync"
)

// Call is one recorded command invocation.
type Call struct {
	Name string
	Args []string
}

func (c Call) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Recorder is a Runner for tests. It records every invocation instead of
// executing it and returns canned results keyed by binary name.
type Recorder struct {
	mu    sync.Mutex
	calls []Call

	// Errs maps binary name to the error Run should return for it.
	Errs map[string]error
	// Outputs maps binary name to the output Run should return for it.
	Outputs map[string][]byte
	// MissingBinaries lists names LookPath should fail for.
	MissingBinaries []string
}

func NewRecorder() *Recorder {
	return &Recorder{
		Errs:    make(map[string]error),
		Outputs: make(map[string][]byte),
	}
}

func (r *Recorder) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, Call{Name: name, Args: args})
	return r.Outputs[name], r.Errs[name]
}

func (r *Recorder) LookPath(name string) (string, error) {
	for _, missing := range r.MissingBinaries {
		if missing == name {
			return "", &missingBinaryError{name: name}
		}
	}
	return "/usr/bin/" + name, nil
}

// Calls returns a copy of all recorded invocations in order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// CallsTo returns the recorded invocations of the named binary.
func (r *Recorder) CallsTo(name string) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

type missingBinaryError struct {
	name string
}

func (e *missingBinaryError) Error() string {
	return "executable file not found in $PATH: " + e.name
}
