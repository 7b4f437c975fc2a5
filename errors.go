package suit

import "errors"

// Sentinel errors for runtime operations.
var (
	ErrTemplateNotFound    = errors.New("suit: template not found")
	ErrCompositionMismatch = errors.New("suit: template composition mismatch")
	ErrRegionNotFound      = errors.New("suit: region not found")
	ErrNotMounted          = errors.New("suit: widget is not mounted")
	ErrNoInitiator         = errors.New("suit: initiator resolves to no element")
	ErrBootstrap           = errors.New("suit: bootstrap payload rejected")
	ErrTransport           = errors.New("suit: transport failure")
)

// IsTemplateNotFound checks if err is a template lookup miss.
func IsTemplateNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound)
}

// IsCompositionMismatch checks if err is a refresh rejected because the
// mounted and rendered region layouts could not be matched.
func IsCompositionMismatch(err error) bool {
	return errors.Is(err, ErrCompositionMismatch) || errors.Is(err, ErrRegionNotFound)
}

// IsTransport checks if err came from a network collaborator.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}
