// Package app wires the application together: configuration, logging, rig
// loading, action registration, planning, and execution.
package app
