// Package domain defines the core domain types and interfaces.
//
// Holds the Reading value type with its wire codec, the contracts between sensor
// sources and the broadcaster, and the sentinel errors shared across adapters.
// No transport code lives here.
package domain
