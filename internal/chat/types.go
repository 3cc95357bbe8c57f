package chat

import (
	"net"
	"time"

	"github.com/google/uuid"
)

type Client struct {
	Conn     net.Conn
	Username string
	Out      chan string // outbound messages to be written by the writer goroutine
}

// Scope classifies a message as public, direct or group.
type Scope string

const (
	ScopePublic Scope = "public"
	ScopeDM     Scope = "dm"
	ScopeGroup  Scope = "group"
)

// HistoryRecord is one immutable entry of the append-only message log.
// Target holds the recipient username for dm records, the group name for
// group records, and "all" for public broadcasts.
type HistoryRecord struct {
	ID     uuid.UUID
	At     time.Time
	Sender string
	Scope  Scope
	Target string
	Text   string
}

type EventType int

const (
	EventRegister EventType = iota
	EventUnregister
	EventBroadcast
	EventNames
	EventStatus
	EventWhois
	EventBlockList
	EventBlock
	EventUnblock
	EventGroupCreate
	EventGroupSend
	EventGroupLeave
	EventGroupDelete
	EventHistory
	EventDirect
)

type Event struct {
	Type      EventType
	Client    *Client
	Username  string       // register only
	Target    string       // peer username or group name
	Text      string
	Members   []string     // group create only
	Query     HistoryQuery // history only
	ReplyChan chan error   // used by register to ack success/failure
}

// HistoryQuery selects a slice of the message log. Peer is the other dm
// party or the group name depending on Scope; Limit caps the suffix taken.
type HistoryQuery struct {
	Scope Scope
	Peer  string
	Limit int
}

var (
	ErrUsernameTaken   = errorString("username_taken")
	ErrUsernameInvalid = errorString("username_invalid")
)

type errorString string

func (e errorString) Error() string { return string(e) }
