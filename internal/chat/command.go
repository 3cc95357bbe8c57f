package chat

import (
	"strconv"
	"strings"

	"github.com/samber/lo"
)

type CommandKind int

const (
	CmdQuit CommandKind = iota
	CmdNames
	CmdStatus
	CmdWhois
	CmdBlockList
	CmdBlock
	CmdUnblock
	CmdGroupCreate
	CmdGroupSend
	CmdGroupLeave
	CmdGroupDelete
	CmdHistory
	CmdDirect
	CmdBroadcast
)

// Command is the parsed form of one input line. Fields beyond Kind are
// populated per kind: Target carries the peer username or group name, Text
// the message body, Members the initial group member list, Query the
// history selection.
type Command struct {
	Kind    CommandKind
	Target  string
	Text    string
	Members []string
	Query   HistoryQuery
}

// usageError carries the exact response text for malformed input. Sessions
// answer it locally; it never reaches the registry.
type usageError string

func (e usageError) Error() string { return string(e) }

// ParseLine maps one client line onto the closed command set. The first
// token must match a keyword exactly; any other @-prefixed token is taken
// as a direct-message recipient; anything else is a public broadcast.
func ParseLine(line string) (Command, error) {
	if !strings.HasPrefix(line, "@") {
		return Command{Kind: CmdBroadcast, Text: line}, nil
	}

	tokens := strings.Fields(line)
	switch tokens[0] {
	case "@quit":
		return Command{Kind: CmdQuit}, nil
	case "@names":
		return Command{Kind: CmdNames}, nil
	case "@status":
		text := strings.TrimSpace(strings.TrimPrefix(line, "@status"))
		if text == "" {
			return Command{}, usageError("Usage: @status <new_status>")
		}
		return Command{Kind: CmdStatus, Text: text}, nil
	case "@whois":
		if len(tokens) != 2 {
			return Command{}, usageError("Usage: @whois <username>")
		}
		return Command{Kind: CmdWhois, Target: tokens[1]}, nil
	case "@blocklist":
		return Command{Kind: CmdBlockList}, nil
	case "@block":
		if len(tokens) != 2 {
			return Command{}, usageError("Usage: @block <username>")
		}
		return Command{Kind: CmdBlock, Target: tokens[1]}, nil
	case "@unblock":
		if len(tokens) != 2 {
			return Command{}, usageError("Usage: @unblock <username>")
		}
		return Command{Kind: CmdUnblock, Target: tokens[1]}, nil
	case "@group":
		return parseGroup(tokens)
	case "@history":
		return parseHistory(tokens)
	}

	// "@<user> <text>" direct-message form.
	head, text, _ := strings.Cut(line, " ")
	text = strings.TrimSpace(text)
	if text == "" {
		return Command{}, usageError("Invalid private message format.")
	}
	return Command{Kind: CmdDirect, Target: strings.TrimPrefix(head, "@"), Text: text}, nil
}

func parseGroup(tokens []string) (Command, error) {
	if len(tokens) < 3 {
		return Command{}, usageError("Invalid group command.")
	}
	action, gname := tokens[1], tokens[2]

	switch action {
	case "set":
		// Member lists may be comma-separated; strip the separators.
		members := lo.Map(tokens[3:], func(m string, _ int) string {
			return strings.Trim(m, ",")
		})
		return Command{Kind: CmdGroupCreate, Target: gname, Members: members}, nil
	case "send":
		if len(tokens) < 4 {
			return Command{}, usageError("Usage: @group send <gname> <msg>")
		}
		return Command{Kind: CmdGroupSend, Target: gname, Text: strings.Join(tokens[3:], " ")}, nil
	case "leave":
		return Command{Kind: CmdGroupLeave, Target: gname}, nil
	case "delete":
		return Command{Kind: CmdGroupDelete, Target: gname}, nil
	}
	return Command{}, usageError("Unknown group sub-command.")
}

func parseHistory(tokens []string) (Command, error) {
	switch {
	case len(tokens) == 2:
		n, err := strconv.Atoi(tokens[1])
		if err != nil {
			return Command{}, usageError("N must be an integer.")
		}
		return Command{Kind: CmdHistory, Query: HistoryQuery{Scope: ScopePublic, Limit: n}}, nil
	case len(tokens) == 4 && (tokens[1] == "user" || tokens[1] == "group"):
		n, err := strconv.Atoi(tokens[3])
		if err != nil {
			return Command{}, usageError("N must be an integer.")
		}
		scope := ScopeDM
		if tokens[1] == "group" {
			scope = ScopeGroup
		}
		return Command{Kind: CmdHistory, Query: HistoryQuery{Scope: scope, Peer: tokens[2], Limit: n}}, nil
	}
	return Command{}, usageError("Usage: @history [user|group] <name> N")
}
