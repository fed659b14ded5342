package instrument

import (
	"sync"
)

// Status byte bit assignments. Bits 4-6 follow the IEEE 488.2 convention;
// the remaining bits are device-defined. The trigger latch occupies bit 0.
const (
	// StatusTriggered is the latched trigger bit. It is set by AssertTrigger
	// and cleared by Clear.
	StatusTriggered byte = 0x01

	// StatusMAV is the message-available bit.
	StatusMAV byte = 0x10

	// StatusESB is the standard event summary bit.
	StatusESB byte = 0x20

	// StatusRQS is the service request bit.
	StatusRQS byte = 0x40
)

// StatusRegister holds the latched status state of one logical instrument:
// the status byte, the trigger latch and the clear-in-progress flag.
//
// All mutations are serialized per instrument. The register is shared by every
// session connected to the instrument, regardless of transport.
type StatusRegister struct {
	mu       sync.Mutex
	status   byte
	clearing bool
	onClear  func()
	subs     []chan byte
}

// NewStatusRegister creates an empty status register.
func NewStatusRegister() *StatusRegister {
	return &StatusRegister{}
}

// OnClear registers a hook invoked during Clear, while the clear-in-progress
// flag is set. Transports use it to abort in-flight device activity.
func (r *StatusRegister) OnClear(hook func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.onClear = hook
}

// AssertTrigger sets the trigger latch bit. The side effect is visible to all
// subsequent ReadStatusByte calls from any session until cleared.
func (r *StatusRegister) AssertTrigger() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.status |= StatusTriggered
	r.broadcast()
}

// Clear clears the trigger latch and all other latched event bits.
//
// While the clear runs, ClearInProgress reports true and the dispatcher
// rejects mutating operations from any session, so in-flight commands observe
// a deterministic abort rather than a race. A Clear issued while another clear
// is already in progress is an idempotent no-op.
func (r *StatusRegister) Clear() {
	r.mu.Lock()
	if r.clearing {
		r.mu.Unlock()
		return
	}
	r.clearing = true
	r.status = 0
	hook := r.onClear
	r.mu.Unlock()

	if hook != nil {
		hook()
	}

	r.mu.Lock()
	r.clearing = false
	r.broadcast()
	r.mu.Unlock()
}

// ReadStatusByte returns the current latched status byte. Reading does not
// clear latched bits; clearing is explicit via Clear.
func (r *StatusRegister) ReadStatusByte() byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.status
}

// ClearInProgress reports whether a device clear is currently running.
func (r *StatusRegister) ClearInProgress() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.clearing
}

// Set sets the given device-defined bits in the status byte.
func (r *StatusRegister) Set(bits byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.status |= bits
	r.broadcast()
}

// ClearBits clears the given bits in the status byte.
func (r *StatusRegister) ClearBits(bits byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.status &^= bits
	r.broadcast()
}

// Subscribe returns a channel that receives the status byte after every
// latching mutation. The channel has a one-element buffer; a slow subscriber
// only observes the most recent value. Call Unsubscribe when done.
func (r *StatusRegister) Subscribe() <-chan byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan byte, 1)
	r.subs = append(r.subs, ch)
	return ch
}

// Unsubscribe removes a channel previously returned by Subscribe.
func (r *StatusRegister) Unsubscribe(ch <-chan byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, sub := range r.subs {
		if sub == ch {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			close(sub)
			return
		}
	}
}

// broadcast pushes the current status byte to all subscribers.
// Must be called with r.mu held.
func (r *StatusRegister) broadcast() {
	for _, sub := range r.subs {
		// Replace a stale undelivered value instead of blocking.
		select {
		case sub <- r.status:
		default:
			select {
			case <-sub:
			default:
			}
			select {
			case sub <- r.status:
			default:
			}
		}
	}
}
