// Package dispatch provides a serial dispatcher that plays the role of the
// UI main queue: functions submitted with Async run one at a time, in
// submission order, on a single goroutine. Index change notifications and
// thumbnail completions are marshaled through it so subscribers never see
// concurrent callbacks.
package dispatch
