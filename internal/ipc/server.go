// Package ipc broadcasts the active lyric line to local clients over a
// unix socket, one line per change.
package ipc

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"

	"lyricwidget/internal/lyrics"
)

var logger = log.With().Str("component", "ipc").Logger()

type Server struct {
	socketPath      string
	listener        net.Listener
	clientConns     map[net.Conn]struct{}
	clientConnsLock sync.Mutex
	current         string
	currentLock     sync.Mutex
	lockFile        *os.File
	lockFilePath    string
	statusFile      string
	closed          chan struct{}
	closeOnce       sync.Once
}

// Option configures a Server.
type Option func(*Server)

// WithStatusFile also writes every non-empty line to path, for status bars
// that poll a file instead of a socket.
func WithStatusFile(path string) Option {
	return func(s *Server) { s.statusFile = path }
}

func NewServer(socketPath string, opts ...Option) *Server {
	s := &Server{
		socketPath:   socketPath,
		clientConns:  make(map[net.Conn]struct{}),
		lockFilePath: socketPath + ".lock",
		closed:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) checkAndCleanOldLock() {
	// 锁文件不存在，无需清理
	content, err := os.ReadFile(s.lockFilePath)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to read lock file, removing it")
		os.Remove(s.lockFilePath)
		return
	}

	pidStr := strings.TrimSpace(string(content))
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		logger.Warn().Str("pid_str", pidStr).Msg("Invalid PID in lock file, removing it")
		os.Remove(s.lockFilePath)
		return
	}

	if !isProcessRunning(pid) {
		logger.Info().Int("old_pid", pid).Msg("Process in lock file is not running, removing lock file")
		os.Remove(s.lockFilePath)
		return
	}
	logger.Info().Int("existing_pid", pid).Msg("Another process is still running")
}

// kill(pid, 0) 不发送信号，只检查进程是否存在
func isProcessRunning(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}

func (s *Server) acquireLock() error {
	s.checkAndCleanOldLock()

	file, err := os.OpenFile(s.lockFilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create lock file: %w", err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		file.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return fmt.Errorf("another lyricwidget instance is already serving %s", s.socketPath)
		}
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	if _, err := fmt.Fprintf(file, "%d\n", os.Getpid()); err != nil {
		syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		file.Close()
		return fmt.Errorf("failed to write PID to lock file: %w", err)
	}

	s.lockFile = file
	logger.Debug().Str("lock_file", s.lockFilePath).Int("pid", os.Getpid()).Msg("Acquired process lock")
	return nil
}

func (s *Server) releaseLock() {
	if s.lockFile == nil {
		return
	}
	syscall.Flock(int(s.lockFile.Fd()), syscall.LOCK_UN)
	s.lockFile.Close()
	os.Remove(s.lockFilePath)
	s.lockFile = nil
}

// Start takes the process lock and begins accepting clients.
func (s *Server) Start() error {
	if err := s.acquireLock(); err != nil {
		return err
	}

	if err := os.RemoveAll(s.socketPath); err != nil {
		s.releaseLock()
		return err
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		s.releaseLock()
		return err
	}
	s.listener = listener

	logger.Info().Str("socket_path", s.socketPath).Msg("IPC server listening")
	go s.acceptConnections()
	return nil
}

func (s *Server) acceptConnections() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closed:
				return
			default:
			}
			logger.Error().Err(err).Msg("Failed to accept IPC connection")
			continue
		}
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	s.clientConnsLock.Lock()
	s.clientConns[conn] = struct{}{}
	s.clientConnsLock.Unlock()

	logger.Debug().Msg("Client connected")

	// 新客户端先收到当前行
	s.currentLock.Lock()
	_, err := conn.Write([]byte(s.current + "\n"))
	s.currentLock.Unlock()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to send current line")
	}

	buf := make([]byte, 1)
	for {
		if _, err := conn.Read(buf); err != nil {
			break
		}
	}

	s.clientConnsLock.Lock()
	delete(s.clientConns, conn)
	s.clientConnsLock.Unlock()
	conn.Close()
	logger.Debug().Msg("Client disconnected")
}

// Broadcast sends line to every client and remembers it for new ones.
func (s *Server) Broadcast(line string) {
	if line != "" && s.statusFile != "" {
		if err := os.WriteFile(s.statusFile, []byte(line+"\n"), 0644); err != nil {
			logger.Warn().Err(err).Str("path", s.statusFile).Msg("Failed to write status file")
		}
	}
	s.currentLock.Lock()
	s.current = line
	s.currentLock.Unlock()

	s.clientConnsLock.Lock()
	defer s.clientConnsLock.Unlock()

	payload := []byte(line + "\n")
	for conn := range s.clientConns {
		if _, err := conn.Write(payload); err != nil {
			logger.Warn().Err(err).Msg("Failed to write to client, removing")
			conn.Close()
			delete(s.clientConns, conn)
		}
	}
}

// Current returns the last broadcast line.
func (s *Server) Current() string {
	s.currentLock.Lock()
	defer s.currentLock.Unlock()
	return s.current
}

// Render 歌词整体替换，清空当前行
func (s *Server) Render([]lyrics.Cue) {
	s.Broadcast("")
}

// Highlight broadcasts the text of the active cue.
func (s *Server) Highlight(active int, cues []lyrics.Cue) {
	if active < 0 || active >= len(cues) {
		s.Broadcast("")
		return
	}
	s.Broadcast(cues[active].Text)
}

func (s *Server) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		if s.listener != nil {
			s.listener.Close()
		}
		s.clientConnsLock.Lock()
		for conn := range s.clientConns {
			conn.Close()
		}
		s.clientConnsLock.Unlock()
		s.releaseLock()
	})
}
