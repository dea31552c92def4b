// Package ipc connects the presence service to the application shell over
// newline-delimited JSON on a pair of streams, normally the process's stdin
// and stdout.
package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	"github.com/actionsum/presence/internal/export"
	"github.com/actionsum/presence/internal/idle"
	"github.com/actionsum/presence/internal/models"
)

// Channel names shared with the shell
const (
	ChannelUserStatus    = "user-status-changed"
	ChannelDownload      = "downloadStateData"
	ChannelEventResponse = "event-response"
	ChannelExportResult  = "export-result"
	ChannelError         = "error"
)

const maxMessageSize = 16 << 20

// Message is one line on the wire
type Message struct {
	Channel string          `json:"channel"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ExportResult is the payload sent back after a downloadStateData request
type ExportResult struct {
	RunID   string `json:"runId"`
	Path    string `json:"path"`
	Rows    int    `json:"rows"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Handler is the service side of the bridge
type Handler interface {
	SetUserStatus(active bool) error
	Export(users []export.UserRecord) (*models.ExportRun, error)
	Subscribe() (<-chan idle.Event, func())
}

// Bridge reads shell messages from in and writes replies and idle events
// to out. All writes happen on the Run goroutine.
type Bridge struct {
	handler Handler
	in      io.Reader
	enc     *json.Encoder
}

func NewBridge(handler Handler, in io.Reader, out io.Writer) *Bridge {
	return &Bridge{
		handler: handler,
		in:      in,
		enc:     json.NewEncoder(out),
	}
}

// Run serves until in reaches EOF (returns nil), ctx is cancelled, or
// writing to out fails
func (b *Bridge) Run(ctx context.Context) error {
	events, unsubscribe := b.handler.Subscribe()
	defer unsubscribe()

	lines := make(chan []byte)
	readErr := make(chan error, 1)

	// The reader may stay blocked on in after Run returns; it exits at EOF.
	go func() {
		scanner := bufio.NewScanner(b.in)
		scanner.Buffer(make([]byte, 0, 64*1024), maxMessageSize)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-readErr:
			if err != nil {
				return fmt.Errorf("failed to read shell message: %w", err)
			}
			log.Println("Shell closed the IPC stream")
			return nil

		case line := <-lines:
			if err := b.handle(line); err != nil {
				return err
			}

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := b.send(ChannelEventResponse, ev.Active); err != nil {
				return err
			}
		}
	}
}

// handle processes one line. Only write failures are returned; bad input
// is answered on the error channel.
func (b *Bridge) handle(line []byte) error {
	if len(line) == 0 {
		return nil
	}

	var msg Message
	if err := json.Unmarshal(line, &msg); err != nil {
		return b.sendError(fmt.Errorf("malformed message: %w", err))
	}

	switch msg.Channel {
	case ChannelUserStatus:
		var active bool
		if err := json.Unmarshal(msg.Payload, &active); err != nil {
			return b.sendError(fmt.Errorf("%s payload must be a boolean: %w", msg.Channel, err))
		}
		if err := b.handler.SetUserStatus(active); err != nil {
			return b.sendError(err)
		}
		return nil

	case ChannelDownload:
		users, err := export.ParseUsers(msg.Payload)
		if err != nil {
			return b.sendError(err)
		}
		log.Printf("Current sessions: %d users", len(users))

		run, err := b.handler.Export(users)
		result := ExportResult{Success: err == nil}
		if run != nil {
			result.RunID = run.RunID
			result.Path = run.Path
			result.Rows = run.RowCount
		}
		if err != nil {
			result.Error = err.Error()
		}
		return b.send(ChannelExportResult, result)

	default:
		return b.sendError(fmt.Errorf("unknown channel %q", msg.Channel))
	}
}

func (b *Bridge) send(channel string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", channel, err)
	}
	if err := b.enc.Encode(Message{Channel: channel, Payload: raw}); err != nil {
		return fmt.Errorf("failed to write %s message: %w", channel, err)
	}
	return nil
}

func (b *Bridge) sendError(err error) error {
	log.Printf("IPC error: %v", err)
	return b.send(ChannelError, err.Error())
}
