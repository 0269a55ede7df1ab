// Package splitter cuts document text into overlapping chunks sized either
// in runes or in model tokens. Splitting is treated as a native operation
// (token counting can be expensive), so pipelines run it through the
// reliability boundary.
package splitter
