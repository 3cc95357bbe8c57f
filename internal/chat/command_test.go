package chat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLine_Commands(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Command
	}{
		{"quit", "@quit", Command{Kind: CmdQuit}},
		{"names", "@names", Command{Kind: CmdNames}},
		{"status", "@status In a meeting", Command{Kind: CmdStatus, Text: "In a meeting"}},
		{"whois", "@whois bob", Command{Kind: CmdWhois, Target: "bob"}},
		{"blocklist", "@blocklist", Command{Kind: CmdBlockList}},
		{"block", "@block bob", Command{Kind: CmdBlock, Target: "bob"}},
		{"unblock", "@unblock bob", Command{Kind: CmdUnblock, Target: "bob"}},
		{"group set", "@group set devs bob carol", Command{Kind: CmdGroupCreate, Target: "devs", Members: []string{"bob", "carol"}}},
		{"group set comma members", "@group set devs bob, carol", Command{Kind: CmdGroupCreate, Target: "devs", Members: []string{"bob", "carol"}}},
		{"group set no members", "@group set devs", Command{Kind: CmdGroupCreate, Target: "devs", Members: []string{}}},
		{"group send", "@group send devs hello there", Command{Kind: CmdGroupSend, Target: "devs", Text: "hello there"}},
		{"group leave", "@group leave devs", Command{Kind: CmdGroupLeave, Target: "devs"}},
		{"group delete", "@group delete devs", Command{Kind: CmdGroupDelete, Target: "devs"}},
		{"history public", "@history 5", Command{Kind: CmdHistory, Query: HistoryQuery{Scope: ScopePublic, Limit: 5}}},
		{"history user", "@history user bob 3", Command{Kind: CmdHistory, Query: HistoryQuery{Scope: ScopeDM, Peer: "bob", Limit: 3}}},
		{"history group", "@history group devs 7", Command{Kind: CmdHistory, Query: HistoryQuery{Scope: ScopeGroup, Peer: "devs", Limit: 7}}},
		{"direct", "@bob hello there", Command{Kind: CmdDirect, Target: "bob", Text: "hello there"}},
		{"broadcast", "hello everyone", Command{Kind: CmdBroadcast, Text: "hello everyone"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLine(tt.line)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseLine_MalformedInput(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		response string
	}{
		{"status empty", "@status", "Usage: @status <new_status>"},
		{"status blank", "@status   ", "Usage: @status <new_status>"},
		{"whois missing arg", "@whois", "Usage: @whois <username>"},
		{"whois extra args", "@whois bob carol", "Usage: @whois <username>"},
		{"block missing arg", "@block", "Usage: @block <username>"},
		{"unblock missing arg", "@unblock", "Usage: @unblock <username>"},
		{"group too short", "@group set", "Invalid group command."},
		{"group unknown sub", "@group rename devs", "Unknown group sub-command."},
		{"group send no msg", "@group send devs", "Usage: @group send <gname> <msg>"},
		{"history no args", "@history", "Usage: @history [user|group] <name> N"},
		{"history bad shape", "@history user bob", "Usage: @history [user|group] <name> N"},
		{"history bad mode", "@history room devs 3", "Usage: @history [user|group] <name> N"},
		{"history non-integer", "@history five", "N must be an integer."},
		{"history user non-integer", "@history user bob five", "N must be an integer."},
		{"dm empty text", "@bob", "Invalid private message format."},
		{"dm blank text", "@bob   ", "Invalid private message format."},
		{"bare at", "@", "Invalid private message format."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLine(tt.line)
			require.Error(t, err)
			require.Equal(t, tt.response, err.Error())
		})
	}
}

func TestParseLine_CommandKeywordsAreCaseSensitive(t *testing.T) {
	// "@Names text" is a direct message to user "Names", not a command.
	got, err := ParseLine("@Names hello")
	require.NoError(t, err)
	require.Equal(t, Command{Kind: CmdDirect, Target: "Names", Text: "hello"}, got)
}
