package progress

import (
	"github.com/easyfiletransfer/eft/internal/events"
)

// Renderer draws transfer events.
type Renderer interface {
	// Handle renders one transfer event.
	Handle(ev *events.TransferEvent)
	// Close finishes rendering; bars left open are aborted.
	Close()
}

// Consume feeds transfer events from ch to r until stop is closed, then
// drains what is already buffered and closes r. Publishing is synchronous,
// so every event of a finished transfer is in the buffer by the time the
// caller closes stop.
func Consume(ch <-chan events.Event, stop <-chan struct{}, r Renderer) {
	defer r.Close()
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			handle(r, ev)
		case <-stop:
			for {
				select {
				case ev, ok := <-ch:
					if !ok {
						return
					}
					handle(r, ev)
				default:
					return
				}
			}
		}
	}
}

func handle(r Renderer, ev events.Event) {
	if te, ok := ev.(*events.TransferEvent); ok {
		r.Handle(te)
	}
}
