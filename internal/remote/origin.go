package remote

import (
	"os"

	"github.com/corralhq/corral/internal/command"
)

// Environment variables carrying the origin identity of an invocation.
// corrald sets these for commands it runs on behalf of a remote caller so
// that error output can be routed back to where the command started.
const (
	EnvOriginNode = "CORRAL_ORIGIN_NODE"
	EnvOriginAddr = "CORRAL_ORIGIN_ADDR"
)

// HTTP headers used to propagate origin identity across agent hops.
const (
	HeaderOriginNode = "X-Corral-Origin-Node"
	HeaderOriginAddr = "X-Corral-Origin-Addr"
)

// ResolveOrigin reads the origin identity from the execution environment.
// Returns a zero (local) origin when the invocation did not arrive from a
// remote node.
func ResolveOrigin() command.Origin {
	return command.Origin{
		Node: os.Getenv(EnvOriginNode),
		Addr: os.Getenv(EnvOriginAddr),
	}
}

// ExecOrigin returns the identity an issuing process stamps on remote
// executions: the ambient origin when this invocation itself arrived from
// another node, otherwise the issuer's own identity. Without the self
// fallback a fan-out started locally would present an empty origin and the
// executing node would keep the error output instead of routing it back.
func ExecOrigin(self command.Origin) command.Origin {
	if origin := ResolveOrigin(); !origin.IsLocal() {
		return origin
	}
	return self
}
