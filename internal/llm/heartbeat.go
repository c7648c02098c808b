package llm

import (
	"fmt"
	"io"
	"strings"
	"time"
)

var spinnerFrames = []string{"|", "/", "-", "\\"}

// heartbeat is the cosmetic spinner shown while a blocking model call
// is outstanding. It has no effect on control flow or data; stopping
// waits for the goroutine with a bounded join and clears the line.
type heartbeat struct {
	done chan struct{}
	gone chan struct{}
}

func startHeartbeat(w io.Writer, label string, interval time.Duration) *heartbeat {
	hb := &heartbeat{
		done: make(chan struct{}),
		gone: make(chan struct{}),
	}
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	go func() {
		defer close(hb.gone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		frame := 0
		for {
			select {
			case <-hb.done:
				// Clear the spinner line.
				fmt.Fprintf(w, "\r%s\r", strings.Repeat(" ", len(label)+4))
				return
			case <-ticker.C:
				fmt.Fprintf(w, "\r%s %s ", label, spinnerFrames[frame%len(spinnerFrames)])
				frame++
			}
		}
	}()

	return hb
}

func (hb *heartbeat) stop() {
	close(hb.done)
	select {
	case <-hb.gone:
	case <-time.After(500 * time.Millisecond):
	}
}
