package chat

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
)

const (
	maxUsernameLen = 16
	maxMessageLen  = 512
)

// Registry is the single owner of all cross-session mutable state. Sessions
// reach it only through its event channel; every event is handled
// start-to-finish in the Run goroutine, which makes each table-level
// operation atomic without locks.
type Registry struct {
	events chan Event
	stopCh chan struct{}
	doneCh chan struct{}
	logger *slog.Logger

	// Single-writer ownership: these maps are only accessed in the Run goroutine.
	clients  map[string]*Client
	statuses map[string]string
	blocked  map[string]map[string]struct{}
	groups   map[string]map[string]struct{}
	history  historyLog
}

func NewRegistry(buffer int, logger *slog.Logger) *Registry {
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		events:   make(chan Event, buffer),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		logger:   logger,
		clients:  make(map[string]*Client),
		statuses: make(map[string]string),
		blocked:  make(map[string]map[string]struct{}),
		groups:   make(map[string]map[string]struct{}),
	}
}

func (r *Registry) Events() chan<- Event {
	return r.events
}

// Stop signals the Run loop to exit.
func (r *Registry) Stop() {
	close(r.stopCh)
}

// Wait blocks until the Run loop has completely finished.
func (r *Registry) Wait() {
	<-r.doneCh
}

func (r *Registry) Run() {
	defer close(r.doneCh)

	for {
		select {
		case ev := <-r.events:
			start := time.Now()
			eventType := ""

			switch ev.Type {
			case EventRegister:
				eventType = "register"
				r.handleRegister(ev)
				ConnectedClients.Set(float64(len(r.clients)))
			case EventUnregister:
				eventType = "unregister"
				r.handleUnregister(ev)
				ConnectedClients.Set(float64(len(r.clients)))
			case EventBroadcast:
				eventType = "broadcast"
				r.handleBroadcast(ev)
			case EventNames:
				eventType = "names"
				r.handleNames(ev)
			case EventStatus:
				eventType = "status"
				r.handleStatus(ev)
			case EventWhois:
				eventType = "whois"
				r.handleWhois(ev)
			case EventBlockList:
				eventType = "blocklist"
				r.handleBlockList(ev)
			case EventBlock:
				eventType = "block"
				r.handleBlock(ev)
			case EventUnblock:
				eventType = "unblock"
				r.handleUnblock(ev)
			case EventGroupCreate:
				eventType = "group_create"
				r.handleGroupCreate(ev)
			case EventGroupSend:
				eventType = "group_send"
				r.handleGroupSend(ev)
			case EventGroupLeave:
				eventType = "group_leave"
				r.handleGroupLeave(ev)
			case EventGroupDelete:
				eventType = "group_delete"
				r.handleGroupDelete(ev)
			case EventHistory:
				eventType = "history"
				r.handleHistory(ev)
			case EventDirect:
				eventType = "direct"
				r.handleDirect(ev)
			}

			MessagesTotal.WithLabelValues(eventType).Inc()
			EventProcessingDuration.WithLabelValues(eventType).Observe(time.Since(start).Seconds())
		case <-r.stopCh:
			return
		}
	}
}

func (r *Registry) handleRegister(ev Event) {
	defer func() {
		// ReplyChan is only used for register.
		if ev.ReplyChan != nil {
			close(ev.ReplyChan)
		}
	}()

	username := strings.TrimSpace(ev.Username)
	if username == "" || strings.Contains(username, " ") || len(username) > maxUsernameLen {
		if ev.ReplyChan != nil {
			ev.ReplyChan <- ErrUsernameInvalid
		}
		return
	}
	if _, exists := r.clients[username]; exists {
		if ev.ReplyChan != nil {
			ev.ReplyChan <- ErrUsernameTaken
		}
		return
	}

	ev.Client.Username = username
	r.clients[username] = ev.Client
	r.statuses[username] = "Available"
	r.blocked[username] = make(map[string]struct{})

	r.logger.Info("user registered", "username", username)

	// The join notice carries the joiner as sender, so users who blocked
	// that name earlier do not see it.
	r.broadcastFrom("["+username+"] has joined the chat.", username)

	if ev.ReplyChan != nil {
		ev.ReplyChan <- nil
	}
}

func (r *Registry) handleUnregister(ev Event) {
	if ev.Client == nil || ev.Client.Username == "" {
		return
	}
	username := ev.Client.Username
	if _, ok := r.clients[username]; !ok {
		return
	}
	delete(r.clients, username)
	delete(r.statuses, username)
	delete(r.blocked, username)
	// Group memberships are intentionally left in place; group sends skip
	// members who are no longer connected.

	r.logger.Info("user left", "username", username)

	// Closing Out stops the writer goroutine gracefully.
	close(ev.Client.Out)
	r.broadcastSystem("["+username+"] has left the chat.", "")
}

func (r *Registry) handleBroadcast(ev Event) {
	if ev.Client == nil || ev.Client.Username == "" {
		return
	}
	msg := clipMessage(ev.Text)
	if msg == "" {
		return
	}
	username := ev.Client.Username

	r.broadcastFrom("["+username+"]: "+msg, username)
	r.history.append(username, ScopePublic, "all", msg)
}

func (r *Registry) handleNames(ev Event) {
	if ev.Client == nil {
		return
	}
	names := lo.Keys(r.clients)
	sort.Strings(names)
	sendLine(ev.Client, "Connected users: "+strings.Join(names, ", "))
}

func (r *Registry) handleStatus(ev Event) {
	if ev.Client == nil || ev.Client.Username == "" {
		return
	}
	r.statuses[ev.Client.Username] = ev.Text
	sendLine(ev.Client, "Status updated to '"+ev.Text+"'.")
}

func (r *Registry) handleWhois(ev Event) {
	if ev.Client == nil {
		return
	}
	if status, ok := r.statuses[ev.Target]; ok {
		sendLine(ev.Client, ev.Target+" is '"+status+"'.")
	} else {
		sendLine(ev.Client, "No such user '"+ev.Target+"'.")
	}
}

func (r *Registry) handleBlockList(ev Event) {
	if ev.Client == nil || ev.Client.Username == "" {
		return
	}
	names := lo.Keys(r.blocked[ev.Client.Username])
	sort.Strings(names)
	listed := lo.Ternary(len(names) > 0, strings.Join(names, ", "), "<empty>")
	sendLine(ev.Client, "Currently blocked: "+listed)
}

func (r *Registry) handleBlock(ev Event) {
	if ev.Client == nil || ev.Client.Username == "" {
		return
	}
	username := ev.Client.Username
	if ev.Target == username {
		sendLine(ev.Client, "You cannot block yourself.")
		return
	}
	r.blocked[username][ev.Target] = struct{}{}
	sendLine(ev.Client, "Blocked '"+ev.Target+"'.")
}

func (r *Registry) handleUnblock(ev Event) {
	if ev.Client == nil || ev.Client.Username == "" {
		return
	}
	delete(r.blocked[ev.Client.Username], ev.Target)
	sendLine(ev.Client, "Unblocked '"+ev.Target+"'.")
}

func (r *Registry) handleGroupCreate(ev Event) {
	if ev.Client == nil || ev.Client.Username == "" {
		return
	}
	gname := ev.Target
	if _, exists := r.groups[gname]; exists {
		sendLine(ev.Client, "Group already exists.")
		return
	}

	// The creator is always a member.
	members := make(map[string]struct{}, len(ev.Members)+1)
	for _, m := range ev.Members {
		if m != "" {
			members[m] = struct{}{}
		}
	}
	members[ev.Client.Username] = struct{}{}
	r.groups[gname] = members

	r.logger.Info("group created", "group", gname, "members", len(members))
	sendLine(ev.Client, "Group '"+gname+"' created.")
}

func (r *Registry) handleGroupSend(ev Event) {
	if ev.Client == nil || ev.Client.Username == "" {
		return
	}
	username := ev.Client.Username
	members, ok := r.groups[ev.Target]
	if !ok {
		sendLine(ev.Client, "Group not found / not a member.")
		return
	}
	if _, in := members[username]; !in {
		sendLine(ev.Client, "Group not found / not a member.")
		return
	}

	msg := clipMessage(ev.Text)
	line := "[" + ev.Target + " from " + username + "]: " + msg
	for member := range members {
		if member != username {
			// deliver skips members who are not currently connected.
			r.deliver(member, line, username)
		}
	}
	r.history.append(username, ScopeGroup, ev.Target, msg)
}

func (r *Registry) handleGroupLeave(ev Event) {
	if ev.Client == nil || ev.Client.Username == "" {
		return
	}
	username := ev.Client.Username
	members, ok := r.groups[ev.Target]
	if !ok {
		sendLine(ev.Client, "You are not in that group.")
		return
	}
	if _, in := members[username]; !in {
		sendLine(ev.Client, "You are not in that group.")
		return
	}
	// An emptied group stays registered; its name remains taken until a
	// member deletes it.
	delete(members, username)
	sendLine(ev.Client, "You left '"+ev.Target+"'.")
}

func (r *Registry) handleGroupDelete(ev Event) {
	if ev.Client == nil || ev.Client.Username == "" {
		return
	}
	members, ok := r.groups[ev.Target]
	if ok {
		_, ok = members[ev.Client.Username]
	}
	if !ok {
		sendLine(ev.Client, "Cannot delete - either no such group or you're not a member.")
		return
	}
	delete(r.groups, ev.Target)
	r.logger.Info("group deleted", "group", ev.Target)
	sendLine(ev.Client, "Group '"+ev.Target+"' deleted.")
}

func (r *Registry) handleHistory(ev Event) {
	if ev.Client == nil || ev.Client.Username == "" {
		return
	}
	username := ev.Client.Username
	q := ev.Query

	var keep func(HistoryRecord) bool
	switch q.Scope {
	case ScopeDM:
		keep = func(rec HistoryRecord) bool {
			return rec.Scope == ScopeDM &&
				((rec.Sender == username && rec.Target == q.Peer) ||
					(rec.Sender == q.Peer && rec.Target == username))
		}
	case ScopeGroup:
		if _, in := r.groups[q.Peer][username]; !in {
			sendLine(ev.Client, "You are not in that group.")
			return
		}
		keep = func(rec HistoryRecord) bool {
			return rec.Scope == ScopeGroup && rec.Target == q.Peer
		}
	default:
		keep = func(rec HistoryRecord) bool {
			return rec.Scope == ScopePublic
		}
	}

	sendLine(ev.Client, formatHistory(r.history.query(keep, q.Limit)))
}

func (r *Registry) handleDirect(ev Event) {
	if ev.Client == nil || ev.Client.Username == "" {
		return
	}
	username := ev.Client.Username
	if _, ok := r.clients[ev.Target]; !ok {
		sendLine(ev.Client, "User '"+ev.Target+"' not found.")
		return
	}

	msg := clipMessage(ev.Text)
	if msg == "" {
		return
	}
	r.deliver(ev.Target, "[DM from "+username+"]: "+msg, username)
	// History logs the attempt even when the recipient's block set
	// suppresses delivery.
	r.history.append(username, ScopeDM, ev.Target, msg)
}

func clipMessage(text string) string {
	msg := strings.TrimRight(text, "\r\n")
	if len(msg) > maxMessageLen {
		msg = msg[:maxMessageLen]
	}
	return msg
}
