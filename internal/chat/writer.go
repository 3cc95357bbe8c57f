package chat

import (
	"bufio"
	"net"
)

// StartOutboundWriter owns all writes to conn: responses, delivered messages
// and system notices all pass through the out channel, one line per payload.
// The goroutine exits when out is closed (teardown) or the connection breaks.
func StartOutboundWriter(conn net.Conn, out <-chan string) {
	go func() {
		w := bufio.NewWriter(conn)
		for msg := range out {
			// Best-effort. If the connection breaks, just stop the writer.
			if _, err := w.WriteString(msg + "\n"); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	}()
}
