package lock

import (
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/ArdentAILabs/benchlock/types"
)

// NewHolderID generates a holder identity for the calling process:
// hostname, PID, and a random suffix. Generate it once per logical actor
// (commonly at process startup) and reuse it for that actor's lifetime;
// the random suffix keeps identities distinct even when hostname and PID
// collide, as they do across container restarts.
func NewHolderID() types.HolderID {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return types.HolderID(fmt.Sprintf("%s:%d:%s", host, os.Getpid(), uuid.NewString()))
}
