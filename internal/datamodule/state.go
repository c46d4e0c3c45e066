package datamodule

import (
	"time"

	"github.com/roach88/datamod/internal/ir"
)

// State is a module's slice of the state tree.
type State struct {
	// IsLoading is true while a read is in flight.
	IsLoading bool

	// IsModifying is true while a create, update or delete is in flight.
	IsModifying bool

	// IsError is true when the most recent completed operation failed.
	IsError bool

	// IsLoaded becomes true after the first successful read and stays true.
	IsLoaded bool

	// LastUpdated is the wall time of the last successful operation.
	// The zero time means never.
	LastUpdated time.Time

	// Data is the local copy of the collection.
	Data Collection

	// Extra carries caller-supplied initial fields beyond the flags above.
	// The lifecycle never modifies it.
	Extra ir.IRObject
}

// Snapshot renders the state as a plain object: Extra fields first, then
// the flags, lastUpdated as Unix milliseconds (0 for never) and data.
func (s State) Snapshot() ir.IRObject {
	out := make(ir.IRObject, len(s.Extra)+6)
	for k, v := range s.Extra {
		out[k] = v
	}
	out["isLoading"] = ir.IRBool(s.IsLoading)
	out["isModifying"] = ir.IRBool(s.IsModifying)
	out["isError"] = ir.IRBool(s.IsError)
	out["isLoaded"] = ir.IRBool(s.IsLoaded)
	out["lastUpdated"] = ir.IRInt(lastUpdatedMillis(s.LastUpdated))
	out["data"] = s.Data.Value()
	return out
}

func lastUpdatedMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
