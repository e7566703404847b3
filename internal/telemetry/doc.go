// Package telemetry turns the line stream of a filament extruder controller
// into typed events: boot chatter, the column header and 37-field data rows.
package telemetry
