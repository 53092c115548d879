// shared/redis/constants.go
package redis

const (
	// Key for a running machine session: session:{machineID}
	// Hash tag keeps all session keys for a machine on one cluster slot.
	RunningSessionKeyPrefix = "session:{%s}:"
)
