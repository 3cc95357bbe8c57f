package chat

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// chatConn is a test client speaking the wire protocol over a real TCP socket.
type chatConn struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
}

func dialChat(t *testing.T, addr string) *chatConn {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return &chatConn{t: t, conn: conn, reader: bufio.NewReader(conn)}
}

func (c *chatConn) send(line string) {
	c.t.Helper()
	_, err := c.conn.Write([]byte(line + "\n"))
	require.NoError(c.t, err)
}

// expect reads lines until one starts with prefix, skipping notices that
// interleave with the awaited response.
func (c *chatConn) expect(prefix string) string {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		line, err := c.reader.ReadString('\n')
		require.NoError(c.t, err, "waiting for prefix %q", prefix)
		line = strings.TrimRight(line, "\r\n")
		if strings.HasPrefix(line, prefix) {
			return line
		}
	}
}

// join completes the handshake and waits for the registry to confirm via
// @names, so callers can rely on registration ordering.
func (c *chatConn) join(username string) {
	c.t.Helper()
	c.expect("Enter your username: ")
	c.send(username)
	c.send("@names")
	c.expect("Connected users: ")
}

func startTestServer(t *testing.T) *Server {
	t.Helper()
	srv := NewServer("127.0.0.1:0", "", nil)
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Stop)
	return srv
}

func TestServer_BroadcastAndDirectMessages(t *testing.T) {
	srv := startTestServer(t)

	alice := dialChat(t, srv.Addr())
	alice.join("alice")

	bob := dialChat(t, srv.Addr())
	bob.join("bob")

	alice.send("hello")
	require.Equal(t, "[alice]: hello", bob.expect("[alice]: "))

	bob.send("@alice hi there")
	require.Equal(t, "[DM from bob]: hi there", alice.expect("[DM from "))
}

func TestServer_BlockedDirectMessageStillLogged(t *testing.T) {
	srv := startTestServer(t)

	alice := dialChat(t, srv.Addr())
	alice.join("alice")

	bob := dialChat(t, srv.Addr())
	bob.join("bob")

	bob.send("@block alice")
	bob.expect("Blocked 'alice'.")

	alice.send("@bob hi")
	alice.send("@history user bob 5")
	hist := alice.expect("(history) ")
	require.Contains(t, hist, "alice->bob: hi")

	// Bob never saw the dm; his next line is a names response.
	bob.send("@names")
	line := bob.expect("")
	for !strings.HasPrefix(line, "Connected users: ") {
		require.NotContains(t, line, "[DM from alice]")
		line = bob.expect("")
	}
}

func TestServer_QuitFreesUsername(t *testing.T) {
	srv := startTestServer(t)

	observer := dialChat(t, srv.Addr())
	observer.join("dora")

	first := dialChat(t, srv.Addr())
	first.join("carol")
	first.send("@quit")

	// The departure notice confirms teardown has completed.
	observer.expect("[carol] has left the chat.")

	second := dialChat(t, srv.Addr())
	second.join("carol")
	second.send("@names")
	require.Equal(t, "Connected users: carol, dora", second.expect("Connected users: "))
}
