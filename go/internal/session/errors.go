package session

import "errors"

var (
	// ErrJoinRejected is returned by Connect when the event channel closes
	// before the initialize snapshot arrives.
	ErrJoinRejected = errors.New("join rejected: channel closed before initialize")

	// ErrBadSnapshot is returned by Connect when the initialize snapshot
	// cannot be applied in full; partial application is not permitted.
	ErrBadSnapshot = errors.New("initialize snapshot could not be applied")

	// ErrNotConnected is returned by intent methods outside the Joined state.
	ErrNotConnected = errors.New("not connected to a town")

	// ErrAlreadyConnected is returned by Connect when a session is already
	// established or being established.
	ErrAlreadyConnected = errors.New("session already connected")
)
