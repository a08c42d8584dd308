package sshsession

import (
	"bytes"
	"fmt"
	"time"

	"golang.org/x/crypto/ssh"
)

// Timeouts bundles every duration the session layer needs, sourced from
// internal/config so none of them are hardcoded past the call site that
// dials or drives a session.
type Timeouts struct {
	Connect     time.Duration // TCP+auth dial timeout, both modes.
	Command     time.Duration // Direct-mode framed command timeout.
	ChainedRead time.Duration // Chained-mode first-hop command read timeout.
	ChainedStep time.Duration // Chained-mode post-connect RunCommand read timeout.
}

// DefaultTimeouts matches the values internal/config.Load defaults to.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Connect:     10 * time.Second,
		Command:     10 * time.Second,
		ChainedRead: 20 * time.Second,
		ChainedStep: 30 * time.Second,
	}
}

// Dial opens a structured SSH session using platform-driver semantics
// (e.g. cisco_ios), matching aldrin-isaac-newtron's
// ssh.Dial/ssh.ClientConfig pattern.
func Dial(host, username, password string, t Timeouts) (*Session, error) {
	config := &ssh.ClientConfig{
		User: username,
		Auth: []ssh.AuthMethod{
			ssh.Password(password),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         t.Connect,
	}

	client, err := ssh.Dial("tcp", host+":22", config)
	if err != nil {
		return nil, fmt.Errorf("sshsession: direct dial %s: %w", host, err)
	}

	return &Session{Mode: ModeDirect, client: client, commandTimeout: t.Command}, nil
}

// runDirectCommand sends one command over a fresh ssh.Session and returns
// its output framed by the library (only the command's output, no
// prompt echo), matching the expected-prompt `#` semantics of direct mode.
func (s *Session) runDirectCommand(command string) (string, error) {
	session, err := s.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("sshsession: new session: %w", err)
	}
	defer session.Close()

	var stdout bytes.Buffer
	session.Stdout = &stdout

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case err := <-done:
		if err != nil {
			return "", fmt.Errorf("sshsession: run %q: %w", command, err)
		}
		return stdout.String(), nil
	case <-time.After(s.commandTimeout):
		return "", fmt.Errorf("sshsession: command %q timed out after %s", command, s.commandTimeout)
	}
}
