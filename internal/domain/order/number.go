package order

import (
	"fmt"
	"time"
)

// numberPrefix prefixes every human-readable order number.
const numberPrefix = "ORD"

// FormatNumber builds the human-readable order number from the creation time
// and a storage-owned sequence value. The timestamp keeps numbers roughly
// sortable for humans; uniqueness comes entirely from the sequence, so two
// orders created in the same millisecond still get distinct numbers.
func FormatNumber(createdAt time.Time, seq int64) string {
	return fmt.Sprintf("%s-%d-%d", numberPrefix, createdAt.UnixMilli(), seq)
}
