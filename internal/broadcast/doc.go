// Package broadcast implements the real-time motion channel.
//
// A Registry tracks live subscribers, a StateCache holds the last published reading and
// the Engine fans readings out to every subscriber. Each Subscriber owns a buffered send
// queue drained by its own writer goroutine, so a stalled connection never blocks the
// fan-out: a full queue counts as a failed send and the subscriber is pruned.
//
// The Acceptor drives one connection from upgrade to close. Attach runs under the same
// lock as Publish, which guarantees a new subscriber gets the cached reading first and
// every later reading exactly once, in publish order.
package broadcast
