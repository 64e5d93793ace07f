package blockv

import "github.com/pkg/errors"

// Error kinds returned by registry and device operations. A caller tells
// them apart with errors.Is; wrapping with
// errors.Wrap along the way preserves the original cause for logging.
var (
	ErrNotFound          = errors.New("blockv: not found")
	ErrExists            = errors.New("blockv: already exists")
	ErrPermissionDenied  = errors.New("blockv: permission denied")
	ErrAccessDenied      = errors.New("blockv: access denied")
	ErrBadFileDescriptor = errors.New("blockv: bad file descriptor")
	ErrIO                = errors.New("blockv: i/o error")
)
