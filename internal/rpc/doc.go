// Package rpc implements the JSON-RPC client for the external divid daemon:
// readiness ping, mnemonic-based wallet recreation, sync-progress query, and
// shutdown. The wire schema is daemon-defined and treated as versioned and
// possibly unavailable.
package rpc
