package agents

import "errors"

// ErrUnknownProjectType indicates no orchestrator is registered for the
// requested project type. Not retryable.
var ErrUnknownProjectType = errors.New("unknown project type")

// ErrAgentNotFound indicates an invocation referenced an unregistered agent.
// Not retryable.
var ErrAgentNotFound = errors.New("agent not found")

// ErrInvocationFailed wraps a downstream transport or model failure.
// Callers treat it as retryable up to a small fixed bound.
var ErrInvocationFailed = errors.New("agent invocation failed")
