package urcu

import "errors"

var (
	// ErrDefaultDomain is returned when closing the process-wide domain.
	ErrDefaultDomain = errors.New("urcu: default domain cannot be closed")

	// ErrDomainClosed is returned when registering with a closed domain.
	ErrDomainClosed = errors.New("urcu: domain closed")

	// ErrNotRegistered is returned when unregistering a reader twice.
	ErrNotRegistered = errors.New("urcu: reader not registered")

	// ErrReaderActive is returned when the last reference to a reader is
	// dropped while it is inside a critical section.
	ErrReaderActive = errors.New("urcu: reader inside critical section")

	// ErrDoubleRetire is the panic value when an object is retired twice.
	ErrDoubleRetire = errors.New("urcu: object retired twice")

	// ErrSyncInCriticalSection is the panic value when Synchronize or
	// Barrier is called from inside a read-side critical section.
	ErrSyncInCriticalSection = errors.New("urcu: synchronize called inside read-side critical section")

	// ErrUnbalancedUnlock is the panic value for Unlock without Lock.
	ErrUnbalancedUnlock = errors.New("urcu: unlock outside critical section")
)
