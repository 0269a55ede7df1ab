// Package embedding defines the vector embedding provider interface and its
// implementations. Embedders are native clients: callers invoke them through
// the reliability boundary, never directly from inside another native call.
package embedding
