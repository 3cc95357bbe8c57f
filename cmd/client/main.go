package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

type Config struct {
	ServerAddress string `env:"CHAT_SERVER_ADDR,default=localhost:5000"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run connects, relays the username handshake, then forwards stdin lines to
// the socket while a background goroutine prints server lines. A typed
// "@quit" leaves the send loop and closes the connection.
func run() (int, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	conn, err := net.Dial("tcp", config.ServerAddress)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to %s: %w", config.ServerAddress, err)
	}
	defer conn.Close()

	go func() {
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			printServerLine(scanner.Text())
		}
	}()

	stdin := bufio.NewScanner(os.Stdin)
	writer := bufio.NewWriter(conn)
	for stdin.Scan() {
		line := stdin.Text()
		if _, err := writer.WriteString(line + "\n"); err != nil {
			return exitRuntime, fmt.Errorf("send: %w", err)
		}
		if err := writer.Flush(); err != nil {
			return exitRuntime, fmt.Errorf("send: %w", err)
		}
		if strings.HasPrefix(line, "@quit") {
			break
		}
	}
	return exitOK, nil
}

// printServerLine colors well-known payload shapes so DMs, history and
// join/leave notices stand out in a busy terminal.
func printServerLine(line string) {
	switch {
	case strings.HasPrefix(line, "[DM from "):
		color.Magenta.Println(line)
	case strings.HasPrefix(line, "(history) "):
		color.Cyan.Println(line)
	case strings.HasSuffix(line, "has joined the chat.") || strings.HasSuffix(line, "has left the chat."):
		color.Yellow.Println(line)
	default:
		fmt.Println(line)
	}
}
