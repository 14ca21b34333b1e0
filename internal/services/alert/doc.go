// Package alert stores emergency alerts raised by authenticated principals
// and fans them out over best-effort real-time channels.
//
// Storage is authoritative. Broadcast failures are logged and never fail
// the request; acknowledgement is a compare-and-set on the stored state so
// an alert moves from OPEN to ACKNOWLEDGED exactly once.
package alert
