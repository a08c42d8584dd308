package sshsession

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

const chainedStepMaxIterations = 10

// promptLoopState is the explicit state machine named by the design
// notes for the chained-mode prompt-reaction loop.
type promptLoopState string

const (
	stateExpectPassword promptLoopState = "expect_password"
	stateExpectYesNo    promptLoopState = "expect_yesno"
	stateExpectPrompt   promptLoopState = "expect_prompt"
	stateIdleWait       promptLoopState = "idle_wait"
)

// HopCredentialsFunc resolves the username/password to use for one hop.
// For the final hop it is the target device's own credentials (falling
// back to admin/""); for an intermediate hop it must look up the device
// by host=nextIP and requires both fields set, aborting the chain
// otherwise.
type HopCredentialsFunc func(ctx context.Context, hopIP string, isFinal bool) (Credentials, error)

// chainedTransport drives a raw interactive PTY shell over the first
// hop's SSH client, nesting further `ssh -l user ip` invocations through
// it.
type chainedTransport struct {
	client  *ssh.Client
	session *ssh.Session
	stdin   io.WriteCloser
	stdout  io.Reader

	// commandReadTimeout is used for every RunCommand read once the
	// chain is established (negotiateHop's own pacing is independent).
	commandReadTimeout time.Duration

	buf strings.Builder
}

func (c *chainedTransport) Close() error {
	if c.session != nil {
		c.session.Close()
	}
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// ConnectChained opens the first hop with structured SSH (credentials
// stored locally for the jump host), then drives an interactive PTY
// through the remaining hops in jumpPath using HopCredentialsFunc to
// resolve per-hop credentials. jumpPath's first element is the first
// hop's IP, dialed here; remaining elements (1..N-1) are the
// intermediate and, finally, target hops.
func ConnectChained(ctx context.Context, jumpPath []string, firstHopCreds Credentials, resolveHopCreds HopCredentialsFunc, t Timeouts) (*Session, error) {
	if len(jumpPath) < 2 {
		return nil, fmt.Errorf("sshsession: chained connect requires at least 2 hops, got %d", len(jumpPath))
	}

	config := &ssh.ClientConfig{
		User:            firstHopCreds.Username,
		Auth:            []ssh.AuthMethod{ssh.Password(firstHopCreds.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         t.Connect,
	}
	client, err := ssh.Dial("tcp", jumpPath[0]+":22", config)
	if err != nil {
		return nil, fmt.Errorf("sshsession: chained first-hop dial %s: %w", jumpPath[0], err)
	}

	session, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("sshsession: chained first-hop session: %w", err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := session.RequestPty("vt100", 80, 200, modes); err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("sshsession: request pty: %w", err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("sshsession: stdin pipe: %w", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("sshsession: stdout pipe: %w", err)
	}

	if err := session.Shell(); err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("sshsession: start shell: %w", err)
	}

	ct := &chainedTransport{client: client, session: session, stdin: stdin, stdout: stdout, commandReadTimeout: t.ChainedStep}

	for i := 1; i < len(jumpPath); i++ {
		nextIP := jumpPath[i]
		isFinal := i == len(jumpPath)-1
		creds, err := resolveHopCreds(ctx, nextIP, isFinal)
		if err != nil {
			ct.Close()
			return nil, fmt.Errorf("sshsession: resolve credentials for hop %s: %w", nextIP, err)
		}
		if err := ct.negotiateHop(ctx, nextIP, creds, t.ChainedRead); err != nil {
			ct.Close()
			return nil, err
		}
	}

	return &Session{
		Mode:      ModeChained,
		chained:   ct,
		ProxyMode: true,
		TargetIP:  jumpPath[len(jumpPath)-1],
		JumpPath:  jumpPath,
	}, nil
}

// negotiateHop sends `ssh -l <username> <nextIP>` and drives the
// prompt-reaction loop, maximum 10 iterations per hop.
func (c *chainedTransport) negotiateHop(ctx context.Context, nextIP string, creds Credentials, firstHopReadTimeout time.Duration) error {
	cmd := fmt.Sprintf("ssh -l %s %s", creds.Username, nextIP)
	output, err := c.runTimingCommand(ctx, cmd, firstHopReadTimeout)
	if err != nil {
		return fmt.Errorf("sshsession: send ssh hop command: %w", err)
	}

	for iter := 0; iter < chainedStepMaxIterations; iter++ {
		state := classifyPromptState(output)
		switch state {
		case stateExpectPassword:
			output, err = c.runTimingCommand(ctx, creds.Password, 15*time.Second)
		case stateExpectYesNo:
			output, err = c.runTimingCommand(ctx, "yes", 10*time.Second)
		case stateExpectPrompt:
			return nil
		case stateIdleWait:
			if strings.TrimSpace(output) == "" {
				time.Sleep(2 * time.Second)
				output, err = c.runTimingCommand(ctx, "", 10*time.Second)
			} else {
				time.Sleep(1 * time.Second)
				var more string
				more, err = c.runTimingCommand(ctx, "", 10*time.Second)
				output += more
			}
		}
		if err != nil {
			return fmt.Errorf("sshsession: prompt loop: %w", err)
		}
	}
	return fmt.Errorf("sshsession: chain failure, no prompt after %d iterations for hop %s", chainedStepMaxIterations, nextIP)
}

// classifyPromptState inspects accumulated output and returns which state
// of the 4-state machine it matches: expect_password when the lowercased
// output contains "password:"; expect_yesno when it contains
// "(yes/no" or "continue connecting"; expect_prompt when the trimmed last
// line ends with # or >; idle_wait otherwise (including empty output).
func classifyPromptState(output string) promptLoopState {
	lower := strings.ToLower(output)
	if strings.Contains(lower, "password:") {
		return stateExpectPassword
	}
	if strings.Contains(lower, "(yes/no") || strings.Contains(lower, "continue connecting") {
		return stateExpectYesNo
	}

	lines := strings.Split(strings.ReplaceAll(output, "\r\n", "\n"), "\n")
	last := ""
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			last = strings.TrimSpace(lines[i])
			break
		}
	}
	if strings.HasSuffix(last, "#") || strings.HasSuffix(last, ">") {
		return stateExpectPrompt
	}
	return stateIdleWait
}

// runTimingCommand writes command (plus a trailing newline, unless empty)
// to the transport and reads back accumulated output until readTimeout
// elapses or the stream goes quiet, matching the source's
// send_command_timing semantics (delay-factor-scaled reads rather than
// prompt-framed reads).
func (c *chainedTransport) runTimingCommand(ctx context.Context, command string, readTimeout time.Duration) (string, error) {
	if command != "" {
		if _, err := io.WriteString(c.stdin, command+"\n"); err != nil {
			return "", fmt.Errorf("write: %w", err)
		}
	}

	type readResult struct {
		chunk []byte
		err   error
	}
	out := make(chan readResult, 1)
	go func() {
		buf := make([]byte, 4096)
		n, err := c.stdout.Read(buf)
		out <- readResult{chunk: buf[:n], err: err}
	}()

	var collected strings.Builder
	select {
	case r := <-out:
		collected.Write(r.chunk)
	case <-time.After(readTimeout):
	case <-ctx.Done():
		return collected.String(), ctx.Err()
	}

	return collected.String(), nil
}
