package sshsession

import (
	"context"
	"io"
	"testing"
	"time"
)

// scriptedReader hands back one fixed chunk per Read call, then blocks
// (simulating a quiet stream) once exhausted so callers fall through on
// their own read timeout instead of getting EOF.
type scriptedReader struct {
	chunks [][]byte
	i      int
	block  chan struct{}
}

func newScriptedReader(chunks ...string) *scriptedReader {
	r := &scriptedReader{block: make(chan struct{})}
	for _, c := range chunks {
		r.chunks = append(r.chunks, []byte(c))
	}
	return r
}

func (r *scriptedReader) Read(p []byte) (int, error) {
	if r.i >= len(r.chunks) {
		<-r.block
		return 0, io.EOF
	}
	n := copy(p, r.chunks[r.i])
	r.i++
	return n, nil
}

type discardWriteCloser struct{}

func (discardWriteCloser) Write(p []byte) (int, error) { return len(p), nil }
func (discardWriteCloser) Close() error                { return nil }

func TestClassifyPromptState(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want promptLoopState
	}{
		{"password prompt", "Password: ", stateExpectPassword},
		{"password case insensitive", "PASSWORD:", stateExpectPassword},
		{"yes/no prompt", "Are you sure you want to continue connecting (yes/no)? ", stateExpectYesNo},
		{"continue connecting alt phrasing", "The authenticity... continue connecting?", stateExpectYesNo},
		{"hash prompt connected", "router#", stateExpectPrompt},
		{"angle prompt connected", "router>", stateExpectPrompt},
		{"empty output idle", "", stateIdleWait},
		{"banner text idle", "Welcome to the device\n", stateIdleWait},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := classifyPromptState(c.in); got != c.want {
				t.Errorf("classifyPromptState(%q) = %q, want %q", c.in, got, c.want)
			}
		})
	}
}

// TestNegotiateHopIdleWaitAccumulates drives negotiateHop through a
// password prompt split across two reads ("Pass" then "word:\n"). If the
// idle-wait branch discarded the first chunk instead of appending to it,
// the accumulated output would never contain "password:" and the loop
// would exhaust its iterations and fail the hop.
func TestNegotiateHopIdleWaitAccumulates(t *testing.T) {
	ct := &chainedTransport{
		stdin:  discardWriteCloser{},
		stdout: newScriptedReader("Pass", "word:\n", "router#"),
	}

	err := ct.negotiateHop(context.Background(), "10.1.0.5", Credentials{Username: "admin", Password: "secret"}, 20*time.Second)
	if err != nil {
		t.Fatalf("negotiateHop: %v", err)
	}
}
