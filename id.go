package economy

import "github.com/xraph/economy/id"

// ID is the primary identifier type for generated economy records.
type ID = id.ID

// Prefix identifies the record type encoded in a TypeID.
type Prefix = id.Prefix
