// Package infra contains technical adapters: input loaders, the zerolog
// logger, MQTT publishing and metrics exporters. These packages depend only
// on the interfaces defined in the core packages.
package infra
