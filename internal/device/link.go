package device

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"go.bug.st/serial"
)

// Link exchanges newline-terminated text messages with the card terminal.
type Link interface {
	// ReceiveMessage blocks until a complete line arrives, with no upper
	// bound on the wait; it returns between read attempts when ctx is done.
	ReceiveMessage(ctx context.Context) (string, error)
	// SendMessage writes the text followed by a line terminator. No
	// acknowledgement happens at this layer.
	SendMessage(text string) error
}

// SerialLinkConfig parameterizes the serial transport.
type SerialLinkConfig struct {
	Port        string
	BaudRate    int
	ReadTimeout time.Duration
	SettleDelay time.Duration
}

// serialPort is the slice of serial.Port the link actually uses.
type serialPort interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// SerialLink is a Link over a serial port. A single instance owns the port
// for the process lifetime.
type SerialLink struct {
	port    serialPort
	pending []byte
}

// OpenSerialLink opens the port, bounds each read attempt by the configured
// timeout and waits out the settle delay before first use.
func OpenSerialLink(cfg SerialLinkConfig) (*SerialLink, error) {
	mode := &serial.Mode{BaudRate: cfg.BaudRate}
	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("device: open %s: %w", cfg.Port, err)
	}
	if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("device: set read timeout: %w", err)
	}

	// The terminal needs a moment after the port opens before it talks.
	time.Sleep(cfg.SettleDelay)

	return &SerialLink{port: port}, nil
}

// ReceiveMessage accumulates bytes until a newline, then returns the line with
// terminators and surrounding whitespace stripped. A timed-out read attempt
// retries; ctx cancellation between attempts aborts the wait.
func (l *SerialLink) ReceiveMessage(ctx context.Context) (string, error) {
	chunk := make([]byte, 256)
	for {
		if i := bytes.IndexByte(l.pending, '\n'); i >= 0 {
			line := string(bytes.TrimSpace(l.pending[:i]))
			l.pending = append(l.pending[:0], l.pending[i+1:]...)
			return line, nil
		}

		if err := ctx.Err(); err != nil {
			return "", err
		}

		n, err := l.port.Read(chunk)
		if err != nil {
			return "", fmt.Errorf("device: read: %w", err)
		}
		l.pending = append(l.pending, chunk[:n]...)
	}
}

// SendMessage writes the text plus newline to the port.
func (l *SerialLink) SendMessage(text string) error {
	if _, err := l.port.Write([]byte(text + "\n")); err != nil {
		return fmt.Errorf("device: write: %w", err)
	}
	return nil
}

// Close releases the port.
func (l *SerialLink) Close() error {
	return l.port.Close()
}
