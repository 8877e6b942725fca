package filesystem

import (
	"fmt"
	"os"

	"github.com/blokfs/blokfs/pkg/errors"
	"github.com/blokfs/blokfs/pkg/utils"
)

// MountContext is the read-only state shared by every request of one mount.
type MountContext struct {
	root string
	log  *utils.StructuredLogger
}

// NewMountContext canonicalizes root and binds it to the diagnostic log. root must be an existing
// directory; a nil log discards diagnostics.
func NewMountContext(root string, log *utils.StructuredLogger) (*MountContext, error) {
	canonical, err := utils.RealPath(root)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodePathInvalid, fmt.Sprintf("cannot resolve root directory %q", root), err).
			WithComponent("mount")
	}

	info, err := os.Stat(canonical)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodePathInvalid, "cannot stat root directory", err).
			WithComponent("mount")
	}
	if !info.IsDir() {
		return nil, errors.NewError(errors.ErrCodePathInvalid, fmt.Sprintf("root %s is not a directory", canonical)).
			WithComponent("mount")
	}

	if log == nil {
		log = utils.Discard()
	}

	return &MountContext{root: canonical, log: log}, nil
}

// Root returns the canonical backing root.
func (m *MountContext) Root() string {
	return m.root
}

// Log returns the diagnostic log sink.
func (m *MountContext) Log() *utils.StructuredLogger {
	return m.log
}
