package sim

import (
	"log"
)

// LogHookBase provides the logger shared by hooks that record what a
// component does.
type LogHookBase struct {
	*log.Logger
}
