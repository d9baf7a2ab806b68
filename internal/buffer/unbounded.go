package buffer

import (
	"io"
	"log/slog"
)

// Unbounded creates a channel buffer that grows as needed.
// It returns a write-only channel to feed data in, and a read-only channel to read data out.
// Closing in flushes whatever is queued, then closes out.
//
// initialCap: The starting size of the backing slice.
// hardLimit: The maximum number of items to buffer before dropping the oldest.
//
// Usage:
//
//	in, out := buffer.Unbounded[event.Event](256, 65536, logger)
//	in <- ev
//	ev := <-out
func Unbounded[T any](initialCap int, hardLimit int, logger *slog.Logger) (chan<- T, <-chan T) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	in := make(chan T, 10)
	out := make(chan T, 10)

	go func() {
		defer close(out)

		queue := make([]T, 0, initialCap)
		dropped := 0

		for {
			var next T
			var downstream chan T

			// Enable the out case only when there is something to send
			if len(queue) > 0 {
				next = queue[0]
				downstream = out
			}

			select {
			case val, ok := <-in:
				if !ok {
					for _, item := range queue {
						out <- item
					}
					return
				}

				if len(queue) >= hardLimit {
					dropped++
					logger.Warn("queue limit reached, dropping oldest item", "limit", hardLimit, "dropped", dropped)
					queue = queue[1:]
				}

				queue = append(queue, val)

			case downstream <- next:
				queue = queue[1:]
			}
		}
	}()

	return in, out
}
