package main

import (
	"bufio"
	"chat-relay/gateway"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerURL string `envconfig:"CHAT_SERVER_URL" default:"ws://localhost:3000/ws"`
	Room      string `envconfig:"CHAT_ROOM" default:"lobby"`
	Username  string `envconfig:"CHAT_USERNAME" required:"true"`
	Token     string `envconfig:"CHAT_TOKEN"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"INFO"`
}

func main() {
	// The main function manages the OS exit code based on run()'s return.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run handles the WebSocket client lifecycle: configuration, dialing,
// the receive loop, and the stdin send loop.
func run() (int, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	url := config.ServerURL
	if config.Token != "" {
		url = fmt.Sprintf("%s?token=%s", url, config.Token)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to %s: %w", config.ServerURL, err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = conn.Close()
	}()

	if err := send(conn, gateway.EventJoinRoom,
		gateway.JoinPayload{Username: config.Username, Room: config.Room}); err != nil {
		return exitRuntime, fmt.Errorf("failed to join room: %w", err)
	}

	color.Green.Printf(">>> Connected to %s, room %q (Ctrl+C to quit, /leave to leave)\n",
		config.ServerURL, config.Room)

	// Receive loop.
	go func() {
		for {
			var frame gateway.Frame
			if err := conn.ReadJSON(&frame); err != nil {
				if ctx.Err() == nil {
					log.Error("stream error", "error", err)
				}
				stop()
				return
			}
			render(frame)
		}
	}()

	// Send loop: every stdin line becomes a chat message.
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info("Stopping client...")
			return exitOK, nil
		case line, ok := <-lines:
			if !ok {
				return exitOK, nil
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			if text == "/leave" {
				if err := send(conn, gateway.EventLeaveRoom, struct{}{}); err != nil {
					return exitRuntime, err
				}
				continue
			}
			if err := send(conn, gateway.EventChatMessage, gateway.ChatPayload{Text: text}); err != nil {
				return exitRuntime, fmt.Errorf("failed to send message: %w", err)
			}
		}
	}
}

func send(conn *websocket.Conn, eventName string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return conn.WriteJSON(gateway.Frame{Event: eventName, Data: data})
}

// render prints one inbound frame. Rosters get a table, notices go grey,
// chat is prefixed with the colored sender name.
func render(frame gateway.Frame) {
	switch frame.Event {
	case gateway.EventSystemMessage:
		var text string
		if err := json.Unmarshal(frame.Data, &text); err == nil {
			color.Gray.Printf("-- %s\n", text)
		}

	case gateway.EventRoomUsers:
		var users []string
		if err := json.Unmarshal(frame.Data, &users); err != nil {
			return
		}
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Room members"})
		for _, user := range users {
			table.Append([]string{user})
		}
		table.Render()

	case gateway.EventChatMessage:
		var msg gateway.ChatEventPayload
		if err := json.Unmarshal(frame.Data, &msg); err != nil {
			return
		}
		color.Cyan.Printf("%s: ", msg.Sender)
		fmt.Println(msg.Text)
	}
}
