package disk

import "sync/atomic"

/*
Ref is a reference-counted handle onto a Driver's live mapping. While a
Ref is held, the owning Driver cannot complete a grow-triggered remap
(Driver.ensureSize blocks acquiring its exclusive lock until every
outstanding Ref has been released), so the Ref's View stays valid for
its whole lifetime.

A Ref must be released exactly once; Release is idempotent but only
the first call has effect.
*/
type Ref struct {
	d        *Driver
	view     View
	released int32
}

/*
View returns the byte window this Ref pins.
*/
func (r *Ref) View() View {
	return r.view
}

/*
Release drops this Ref's pin on the mapping. After Release the View
must not be used: the next grow may remap the file and invalidate it.
*/
func (r *Ref) Release() {
	if atomic.CompareAndSwapInt32(&r.released, 0, 1) {
		r.d.mu.RUnlock()
	}
}
