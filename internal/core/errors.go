package core

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by stores when a rule, policy or alert does not
// exist for the given identifier.
var ErrNotFound = errors.New("not found")

// ConfigurationError reports invalid tenant configuration: bad policy
// thresholds or a malformed rule referenced at evaluation time.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// SignalError reports a raw message that cannot be normalized. It is fatal
// for that single message only; the pipeline treats the message as
// suspicious pending manual review rather than letting it through.
type SignalError struct {
	Field  string
	Reason string
}

func (e *SignalError) Error() string {
	return fmt.Sprintf("signal error: %s: %s", e.Field, e.Reason)
}
