// Package idgen wires google/uuid into a single global script function,
// uuid_v4(), for generating opaque identifiers (row ids, correlation ids
// for the websocket/db foreign objects) without the core VM depending on
// a uuid library.
package idgen

import (
	"github.com/google/uuid"

	"hulascript/internal/foreign"
	"hulascript/internal/instance"
	"hulascript/internal/value"
)

// Register binds uuid_v4() as a global.
func Register(in *instance.Instance) bool {
	gen := in.MakeForeignFunction(func(args []value.Value, host foreign.Host) (value.Value, error) {
		return host.MakeString(uuid.New().String()), nil
	})
	return in.DeclareGlobal("uuid_v4", gen)
}
