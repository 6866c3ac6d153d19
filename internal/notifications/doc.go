// Package notifications delivers optional ntfy push notifications for
// recovery milestones.
package notifications
