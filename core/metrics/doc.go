// Package metrics defines the contract between the optimisation pipeline and
// its observability backends. A Sink records phase timings and transition
// row deviations; richer backends implement the optional recorder interfaces
// and are detected by type assertion.
package metrics
