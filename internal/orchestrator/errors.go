package orchestrator

import "errors"

// Error taxonomy: kinds, not type names. All per-device errors
// are caught inside the orchestrator, recorded on the device record, and
// swallowed so the consumer can ack.
var (
	ErrConfigMissing  = errors.New("orchestrator: config missing")
	ErrUnreachable    = errors.New("orchestrator: unreachable")
	ErrChainFailure   = errors.New("orchestrator: chain failure")
	ErrCommandFailure = errors.New("orchestrator: command failure")
	ErrParseAnomaly   = errors.New("orchestrator: parse anomaly")
)
