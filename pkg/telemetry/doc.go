// Package telemetry records OpenTelemetry metrics for handler-chain
// evaluations.
//
// Instruments are created lazily against the globally registered meter
// provider, so applications that never install one pay nothing. Exporter
// wiring belongs to the embedding process, not to this library.
package telemetry
