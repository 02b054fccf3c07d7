// Package main provides a terminal chat client for the /ws/ask endpoint.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/gorilla/websocket"

	"github.com/KaanK026/Harvia/internal/domain"
	"github.com/KaanK026/Harvia/internal/transport/ws"
)

// Client is a WebSocket chat client.
type Client struct {
	conn      *websocket.Conn
	sessionID string
	renderer  *glamour.TermRenderer
	out       io.Writer
	fragments chan domain.Fragment
	readErr   error
}

// NewClient connects to addr, authenticating with token when set.
func NewClient(addr, token, sessionID string) (*Client, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := websocket.DefaultDialer.Dial(addr, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial: %w", err)
	}

	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create renderer: %w", err)
	}

	c := &Client{
		conn:      conn,
		sessionID: sessionID,
		renderer:  renderer,
		out:       os.Stdout,
		fragments: make(chan domain.Fragment, 16),
	}
	go c.readLoop()
	return c, nil
}

// readLoop is the only reader of the connection.
func (c *Client) readLoop() {
	defer close(c.fragments)
	for {
		var f domain.Fragment
		if err := c.conn.ReadJSON(&f); err != nil {
			c.readErr = err
			return
		}
		c.fragments <- f
	}
}

// Close closes the client connection.
func (c *Client) Close() error {
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}

// Ask sends a question and prints the rendered answer once it completes. A value on interrupt
// cancels the answer in flight.
func (c *Client) Ask(question string, interrupt <-chan os.Signal) error {
	if err := c.conn.WriteJSON(ws.ClientMessage{Type: ws.TypeAsk, Question: question, SessionID: c.sessionID}); err != nil {
		return fmt.Errorf("write ask: %w", err)
	}

	var answer strings.Builder
	started := false
	for {
		select {
		case <-interrupt:
			c.clearLine()
			fmt.Fprintln(c.out, "[cancelled]")
			if err := c.conn.WriteJSON(ws.ClientMessage{Type: ws.TypeCancel}); err != nil {
				return fmt.Errorf("write cancel: %w", err)
			}
			// No terminal fragment follows a cancelled stream.
			return nil
		case f, ok := <-c.fragments:
			if !ok {
				return c.readErr
			}
			if !started && f.Type != domain.FragmentSessionInit && f.Type != domain.FragmentError {
				// Leftover of a cancelled answer.
				continue
			}
			switch f.Type {
			case domain.FragmentSessionInit:
				started = true
				if c.sessionID != f.SessionID {
					c.sessionID = f.SessionID
					fmt.Fprintf(c.out, "[session %s]\n", c.sessionID)
				}
			case domain.FragmentToken:
				if answer.Len() == 0 {
					fmt.Fprint(c.out, "...")
				}
				answer.WriteString(f.Content)
			case domain.FragmentComplete:
				c.clearLine()
				c.render(answer.String())
				return nil
			case domain.FragmentError:
				c.clearLine()
				return errors.New(f.Content)
			}
		}
	}
}

// clearLine erases the progress marker printed while tokens arrive.
func (c *Client) clearLine() {
	fmt.Fprint(c.out, "\r\033[K")
}

func (c *Client) render(markdown string) {
	out, err := c.renderer.Render(markdown)
	if err != nil {
		fmt.Fprintln(c.out, markdown)
		return
	}
	fmt.Fprint(c.out, out)
}

func main() {
	addr := flag.String("addr", "ws://localhost:8000/ws/ask", "WebSocket endpoint")
	token := flag.String("token", os.Getenv("HARVIA_TOKEN"), "Bearer ID token")
	session := flag.String("session", "", "Session id to continue")
	flag.Parse()

	log.SetFlags(log.Ltime)

	fmt.Printf("Connecting to %s...\n", *addr)

	client, err := NewClient(*addr, *token, *session)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer client.Close()

	fmt.Println("Connected. Ask about saunas and press Enter.")
	fmt.Println("Commands: /quit to exit, Ctrl+C cancels an answer")

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/quit" {
			fmt.Println("Bye!")
			return
		}

		select {
		case <-interrupt:
		default:
		}
		if err := client.Ask(input, interrupt); err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				log.Fatalf("Connection closed: %v", err)
			}
			log.Printf("Error: %v", err)
		}
	}
}
