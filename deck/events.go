package deck

import (
	"github.com/beevik/etree"

	"slidefit/layout"
)

// Event is delivered to listeners before resolved geometry is written onto
// an element. Listeners run in registration order; a canceled event stops
// delivery and leaves the element untouched.
type Event struct {
	Ref      string
	Element  *etree.Element
	Result   layout.Result
	canceled bool
}

// Cancel prevents the pending geometry from being applied.
func (e *Event) Cancel() {
	e.canceled = true
}

// Canceled reports whether a listener canceled the event.
func (e *Event) Canceled() bool {
	return e.canceled
}

// Listener observes positioning events.
type Listener func(*Event)

// Subscribe registers a listener for positioning events. Not safe for
// concurrent use with Position.
func (d *Driver) Subscribe(l Listener) {
	d.listeners = append(d.listeners, l)
}

func (d *Driver) dispatch(ev *Event) {
	for _, l := range d.listeners {
		l(ev)
		if ev.canceled {
			return
		}
	}
}
