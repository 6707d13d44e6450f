package partition

import "hash/fnv"

// DefaultCount is the number of intake partitions when none is configured.
const DefaultCount = 4

// For returns the intake partition for an order ID.
// Stable for a given count: the same order always lands on the same partition,
// so a resubmitted order queues behind its earlier copy.
// Uses FNV-32a. A count <= 0 maps everything to partition 0.
func For(orderID string, count int) int {
	if count <= 1 {
		return 0
	}
	h := fnv.New32a()
	h.Write([]byte(orderID))
	return int(h.Sum32() % uint32(count))
}
