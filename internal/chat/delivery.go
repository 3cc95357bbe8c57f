package chat

// sendLine queues one line for the client's writer goroutine.
func sendLine(c *Client, line string) {
	// Non-blocking send prevents slow/disconnected clients from blocking the registry.
	select {
	case c.Out <- line:
	default:
		DeliveriesDropped.WithLabelValues("slow_client").Inc()
	}
}

// deliver sends payload to the named user unless the recipient has blocked
// from. An empty from marks a system-originated payload, which bypasses
// block sets. Unknown recipients are skipped silently; delivery is
// best-effort and never fails the sender's operation.
func (r *Registry) deliver(to, payload, from string) {
	c, ok := r.clients[to]
	if !ok {
		return
	}
	if from != "" {
		if _, blocked := r.blocked[to][from]; blocked {
			DeliveriesDropped.WithLabelValues("blocked").Inc()
			return
		}
	}
	sendLine(c, payload)
}

// broadcastFrom sends payload to every connected user except the sender,
// applying each recipient's block set. The recipient snapshot and the block
// checks happen in the registry goroutine, so no recipient can be removed
// mid-broadcast.
func (r *Registry) broadcastFrom(payload, sender string) {
	for user := range r.clients {
		if user != sender {
			r.deliver(user, payload, sender)
		}
	}
}

// broadcastSystem sends payload to every connected user except exclude,
// bypassing block sets. Used for departure notices.
func (r *Registry) broadcastSystem(payload, exclude string) {
	for user := range r.clients {
		if user != exclude {
			r.deliver(user, payload, "")
		}
	}
}
