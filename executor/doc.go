// Package executor runs sealed workflows over a bounded worker pool. The
// scheduler walks the graph's topological layers: every node of a layer is
// dispatched in parallel across the pool, and the next layer starts only
// when the whole layer is terminal. A single scheduler goroutine owns all
// state transitions; workers only compute.
package executor
