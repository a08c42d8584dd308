package orchestrator

import (
	"context"

	"github.com/servak/topology-manager/internal/sshsession"
)

// Transport is the subset of *sshsession.Session the orchestrator needs.
// Exposed as an interface so tests can substitute a fake session without
// a live device or network access.
type Transport interface {
	RunCommand(ctx context.Context, command string) (string, error)
	Close() error
}

// dialDirectFunc and dialChainedFunc let tests replace real SSH dialing;
// production orchestrators get the defaults wired in New.
type dialDirectFunc func(host, username, password string, t sshsession.Timeouts) (Transport, error)
type dialChainedFunc func(ctx context.Context, path []string, creds sshsession.Credentials, resolve sshsession.HopCredentialsFunc, t sshsession.Timeouts) (Transport, error)

func defaultDialDirect(host, username, password string, t sshsession.Timeouts) (Transport, error) {
	return sshsession.Dial(host, username, password, t)
}

func defaultDialChained(ctx context.Context, path []string, creds sshsession.Credentials, resolve sshsession.HopCredentialsFunc, t sshsession.Timeouts) (Transport, error) {
	return sshsession.ConnectChained(ctx, path, creds, resolve, t)
}
