// Package daemon exposes a running bar over a Unix socket so scripts and
// key bindings can inspect it, inject clicks, force refreshes and trigger
// a reload.
package daemon

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"
)

// IPCHandler processes incoming IPC commands.
type IPCHandler interface {
	HandleCommand(cmd string, args []string) (string, error)
}

// IPCServer listens on a Unix domain socket for line-based text commands
// and returns JSON responses.
//
// Protocol:
//   - Client sends a single line: COMMAND [arg1] [arg2] ...
//   - Server responds with one JSON line.
//   - Commands: INFO, BAR, CLICK <instance> <button>, REFRESH, RELOAD
//
// Connections from other users are refused.
type IPCServer struct {
	socketPath string
	handler    IPCHandler
	logger     *slog.Logger
	listener   net.Listener
	wg         sync.WaitGroup
	done       chan struct{}
	once       sync.Once
}

// NewIPCServer creates an IPC server that will listen on socketPath and
// dispatch commands to handler.
func NewIPCServer(socketPath string, handler IPCHandler, logger *slog.Logger) *IPCServer {
	return &IPCServer{
		socketPath: socketPath,
		handler:    handler,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Start begins listening on the socket with mode 0600. A stale socket
// file at the path is removed first, but a live one is an error.
func (s *IPCServer) Start() error {
	if conn, err := net.DialTimeout("unix", s.socketPath, 200*time.Millisecond); err == nil {
		conn.Close()
		return fmt.Errorf("socket %s is in use by another instance", s.socketPath)
	}
	os.Remove(s.socketPath)

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.socketPath, err)
	}
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		ln.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}
	s.listener = ln

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Serve starts the server and stops it when ctx is done.
func (s *IPCServer) Serve(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

// Stop closes the listener, waits for active connections and removes the
// socket file. It is safe to call more than once.
func (s *IPCServer) Stop() {
	s.once.Do(func() {
		close(s.done)
		if s.listener != nil {
			s.listener.Close()
		}
		s.wg.Wait()
		os.Remove(s.socketPath)
	})
}

func (s *IPCServer) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}

		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

// handleConn reads one command line and writes one response line.
func (s *IPCServer) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	if err := checkPeer(conn); err != nil {
		s.logger.Warn("ipc connection refused", "error", err)
		writeIPCError(conn, err)
		return
	}

	conn.SetDeadline(time.Now().Add(5 * time.Second))
	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		return
	}
	line := strings.TrimSpace(scanner.Text())
	if line == "" {
		return
	}

	cmd, args := parseIPCCommand(line)
	s.logger.Debug("ipc command", "cmd", cmd, "args", args)

	response, err := s.handler.HandleCommand(cmd, args)
	if err != nil {
		writeIPCError(conn, err)
		return
	}

	// Responses must fit on one line.
	if compacted, err := compactJSON(response); err == nil {
		response = compacted
	}
	fmt.Fprintf(conn, "%s\n", response)
}

func writeIPCError(conn net.Conn, err error) {
	data, _ := json.Marshal(map[string]string{"error": err.Error()})
	fmt.Fprintf(conn, "%s\n", data)
}

// parseIPCCommand splits a command line into its upper-cased name and
// positional arguments.
//
//	INFO           -> "INFO", []
//	click 2 1      -> "CLICK", ["2", "1"]
func parseIPCCommand(line string) (string, []string) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return "", nil
	}
	return strings.ToUpper(parts[0]), parts[1:]
}

// IPCClient connects to a running bar via its Unix socket.
type IPCClient struct {
	socketPath string
	timeout    time.Duration
}

// NewIPCClient creates a client for the bar at socketPath.
func NewIPCClient(socketPath string) *IPCClient {
	return &IPCClient{socketPath: socketPath, timeout: 5 * time.Second}
}

// SendCommand sends one command and returns the response line. A
// response carrying an "error" key is returned as an error.
func (c *IPCClient) SendCommand(cmd string) (string, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return "", fmt.Errorf("connect to bar: %w", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(c.timeout))

	if _, err := fmt.Fprintf(conn, "%s\n", cmd); err != nil {
		return "", fmt.Errorf("send command: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("read response: %w", err)
		}
		return "", fmt.Errorf("empty response from bar")
	}

	resp := scanner.Text()
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal([]byte(resp), &e) == nil && e.Error != "" {
		return "", errors.New(e.Error)
	}
	return resp, nil
}

// compactJSON removes whitespace from JSON to produce a single line.
func compactJSON(s string) (string, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(s)); err != nil {
		return "", err
	}
	return buf.String(), nil
}
