// Package sshsession implements the two-mode SSH session layer:
// direct mode, a structured single command/response session, and chained
// mode, a raw interactive pseudo-terminal that nests `ssh -l USER IP`
// invocations through jump hosts. Direct mode follows
// aldrin-isaac-newtron's pkg/device/tunnel.go golang.org/x/crypto/ssh
// dial/session pattern; chained mode follows
// mpecarina-tmux-ssh-manager's cmd/tmux-ssh-manager/main.go
// runConnectSubcommand PTY prompt-reaction loop, expanded into the
// 4-state machine named by the design notes: expect_password,
// expect_yesno, expect_prompt, idle_wait.
package sshsession

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/ssh"
)

// Mode records which transport a session uses for command execution. A
// session that ever went through the chained prompt-reaction loop stays
// chained for its lifetime even if a later hop would have been directly
// reachable.
type Mode string

const (
	ModeDirect  Mode = "direct"
	ModeChained Mode = "chained"
)

// Session is the common handle both modes share; callers route command
// execution through RunCommand without needing to know which transport
// backs it.
type Session struct {
	Mode Mode

	// Direct-mode fields.
	client         *ssh.Client
	commandTimeout time.Duration

	// Chained-mode fields.
	chained *chainedTransport

	// ProxyMode, TargetIP and JumpPath are diagnostic tags set on
	// successful chained connection.
	ProxyMode bool
	TargetIP  string
	JumpPath  []string
}

// Credentials is a resolved username/password pair for one hop.
type Credentials struct {
	Username string
	Password string
}

// Close releases the underlying transport for either mode.
func (s *Session) Close() error {
	switch s.Mode {
	case ModeDirect:
		if s.client != nil {
			return s.client.Close()
		}
	case ModeChained:
		if s.chained != nil {
			return s.chained.Close()
		}
	}
	return nil
}

// RunCommand executes one command against the device and returns its
// output. Direct-mode sessions use the framed send with expected prompt
// `#`; chained-mode sessions use the timing-based send with the read
// timeout negotiated at connect time.
func (s *Session) RunCommand(ctx context.Context, command string) (string, error) {
	switch s.Mode {
	case ModeDirect:
		return s.runDirectCommand(command)
	case ModeChained:
		return s.chained.runTimingCommand(ctx, command, s.chained.commandReadTimeout)
	default:
		return "", fmt.Errorf("sshsession: unknown mode %q", s.Mode)
	}
}
