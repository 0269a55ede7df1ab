// Package client implements the native client boundary: the single choke
// point through which every slow external operation (model completion,
// embedding generation, document load, text split) is executed.
//
// Invocations run under the reliability layer (a per-dependency circuit
// breaker around a retry/backoff policy) and under the reentrancy guard of
// the caller's execution context: starting a native operation from inside
// the dynamic extent of another native operation on the same context is a
// fatal programming error surfaced immediately as core.ErrNestedExecution,
// never a silent deadlock.
package client
