// Package sensor provides reading sources that feed the broadcast engine.
//
// Simulator produces synthetic readings on a fixed interval. MQTTSource and
// KafkaSource decode readings that devices publish onto a message bus. All three
// implement domain.ReadingSource.
package sensor
