// Package app wires reading sources to the broadcast engine.
//
// Feed is the only use case: it runs a domain.ReadingSource, publishes each reading,
// mirrors it to the optional domain.StateStore, and restores the last stored reading
// at startup. It depends on domain interfaces, not concrete adapters.
package app
