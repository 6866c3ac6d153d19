// Package recovery implements the wallet recovery state machine: session
// persistence, the status lifecycle, and the orchestrator that drives an
// external Divi daemon from mnemonic submission through desktop launch.
package recovery
