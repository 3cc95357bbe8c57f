package chat

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// HandleSession drives one connection through its lifecycle: handshake until
// a username is accepted, then the receive loop feeding parsed commands into
// the registry until @quit, peer close, or a read error.
func HandleSession(c *Client, events chan<- Event) {
	defer func() {
		_ = c.Conn.Close()
	}()

	StartOutboundWriter(c.Conn, c.Out)

	reader := bufio.NewReader(c.Conn)

	// Username handshake loop.
	for {
		sendLine(c, "Enter your username: ")
		line, err := readLine(reader)
		if err != nil {
			return
		}

		reply := make(chan error, 1)
		events <- Event{
			Type:      EventRegister,
			Client:    c,
			Username:  strings.TrimSpace(line),
			ReplyChan: reply,
		}
		if regErr := <-reply; regErr != nil {
			switch {
			case errors.Is(regErr, ErrUsernameTaken):
				sendLine(c, "Username taken. Try another.")
			case errors.Is(regErr, ErrUsernameInvalid):
				sendLine(c, "Invalid username. No spaces allowed.")
			default:
				sendLine(c, "Registration failed. Try again.")
			}
			continue
		}
		break
	}

	// Main input loop.
	for {
		line, err := readLine(reader)
		if err != nil {
			events <- Event{Type: EventUnregister, Client: c}
			return
		}
		if line == "" {
			continue
		}

		cmd, parseErr := ParseLine(line)
		if parseErr != nil {
			// Malformed input never reaches the registry.
			sendLine(c, parseErr.Error())
			continue
		}

		switch cmd.Kind {
		case CmdQuit:
			events <- Event{Type: EventUnregister, Client: c}
			return
		case CmdNames:
			events <- Event{Type: EventNames, Client: c}
		case CmdStatus:
			events <- Event{Type: EventStatus, Client: c, Text: cmd.Text}
		case CmdWhois:
			events <- Event{Type: EventWhois, Client: c, Target: cmd.Target}
		case CmdBlockList:
			events <- Event{Type: EventBlockList, Client: c}
		case CmdBlock:
			events <- Event{Type: EventBlock, Client: c, Target: cmd.Target}
		case CmdUnblock:
			events <- Event{Type: EventUnblock, Client: c, Target: cmd.Target}
		case CmdGroupCreate:
			events <- Event{Type: EventGroupCreate, Client: c, Target: cmd.Target, Members: cmd.Members}
		case CmdGroupSend:
			events <- Event{Type: EventGroupSend, Client: c, Target: cmd.Target, Text: cmd.Text}
		case CmdGroupLeave:
			events <- Event{Type: EventGroupLeave, Client: c, Target: cmd.Target}
		case CmdGroupDelete:
			events <- Event{Type: EventGroupDelete, Client: c, Target: cmd.Target}
		case CmdHistory:
			events <- Event{Type: EventHistory, Client: c, Query: cmd.Query}
		case CmdDirect:
			events <- Event{Type: EventDirect, Client: c, Target: cmd.Target, Text: cmd.Text}
		case CmdBroadcast:
			events <- Event{Type: EventBroadcast, Client: c, Text: cmd.Text}
		}
	}
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err == nil {
		return strings.TrimRight(line, "\r\n"), nil
	}
	if err == io.EOF && line != "" {
		// last line without newline
		return strings.TrimRight(line, "\r\n"), nil
	}
	if err == io.EOF {
		return "", io.EOF
	}
	return "", fmt.Errorf("read: %w", err)
}
