package statement

import (
	"strings"

	"github.com/google/uuid"
)

// recordNamespace scopes raw record identities
var recordNamespace = uuid.MustParse("8d3c0f4e-2b1a-5e6f-9c7d-4a5b6c7d8e9f")

// GenerateRecordKey maps a statement line's document key and entry id to a stable uuid (v5).
// Re-importing the same statement yields the same keys.
func GenerateRecordKey(docKey, entriesID string) uuid.UUID {
	name := strings.TrimSpace(docKey) + "_" + strings.TrimSpace(entriesID)
	return uuid.NewSHA1(recordNamespace, []byte(name))
}
