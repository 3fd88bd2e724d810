// Package statusbar signals a status bar process (i3blocks by default)
// whenever the active lyric line changes, so its block refreshes at once.
package statusbar

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"lyricwidget/internal/lyrics"
)

var logger = log.With().Str("component", "statusbar").Logger()

const (
	DefaultProcess = "i3blocks"
	// DefaultSignal SIGRTMIN+21，对应 i3blocks 配置里的 signal=21
	DefaultSignal     = syscall.Signal(55)
	DefaultRefreshInt = 10 * time.Second
)

// Notifier tracks the bar's PID and signals it on every highlight change.
type Notifier struct {
	process string
	signal  syscall.Signal
	refresh time.Duration

	pid      int
	pidMutex sync.RWMutex
	ticker   *time.Ticker
	stopChan chan struct{}
	runMutex sync.Mutex
	running  bool

	// 可替换，便于测试
	lookup func(process string) (int, error)
	send   func(pid int, sig syscall.Signal) error
}

func NewNotifier(process string, sig syscall.Signal) *Notifier {
	if process == "" {
		process = DefaultProcess
	}
	if sig == 0 {
		sig = DefaultSignal
	}
	return &Notifier{
		process: process,
		signal:  sig,
		refresh: DefaultRefreshInt,
		pid:     -1,
		lookup:  findPID,
		send:    sendSignal,
	}
}

// Start refreshes the PID now and then every refresh interval.
func (n *Notifier) Start() error {
	n.runMutex.Lock()
	defer n.runMutex.Unlock()
	if n.running {
		return fmt.Errorf("notifier is already running")
	}

	if err := n.refreshPID(); err != nil {
		logger.Debug().Err(err).Str("process", n.process).Msg("Status bar not found yet")
	}
	n.ticker = time.NewTicker(n.refresh)
	n.stopChan = make(chan struct{})
	n.running = true
	go n.monitorLoop(n.ticker, n.stopChan)
	return nil
}

func (n *Notifier) Stop() {
	n.runMutex.Lock()
	defer n.runMutex.Unlock()
	if !n.running {
		return
	}
	close(n.stopChan)
	n.ticker.Stop()
	n.running = false
}

func (n *Notifier) monitorLoop(ticker *time.Ticker, stop chan struct{}) {
	for {
		select {
		case <-ticker.C:
			if err := n.refreshPID(); err != nil {
				logger.Debug().Err(err).Msg("Failed to refresh status bar PID")
			}
		case <-stop:
			return
		}
	}
}

func (n *Notifier) refreshPID() error {
	pid, err := n.lookup(n.process)
	n.pidMutex.Lock()
	old := n.pid
	if err != nil {
		n.pid = -1
	} else {
		n.pid = pid
	}
	n.pidMutex.Unlock()

	if err != nil {
		return err
	}
	if old != pid {
		logger.Debug().Int("old_pid", old).Int("pid", pid).Msg("Status bar PID updated")
	}
	return nil
}

// PID returns the last known PID, or -1.
func (n *Notifier) PID() int {
	n.pidMutex.RLock()
	defer n.pidMutex.RUnlock()
	return n.pid
}

// Notify sends the configured signal to the bar.
func (n *Notifier) Notify() error {
	pid := n.PID()
	if pid <= 0 {
		return fmt.Errorf("invalid PID %d: %s process not found", pid, n.process)
	}
	if err := n.send(pid, n.signal); err != nil {
		return fmt.Errorf("failed to signal %s (pid %d): %w", n.process, pid, err)
	}
	return nil
}

func (n *Notifier) Render([]lyrics.Cue) {
	n.notify()
}

func (n *Notifier) Highlight(int, []lyrics.Cue) {
	n.notify()
}

func (n *Notifier) notify() {
	if err := n.Notify(); err != nil {
		logger.Debug().Err(err).Msg("Status bar not notified")
	}
}

// findPID 先用 pgrep，失败时解析 ps aux
func findPID(process string) (int, error) {
	if out, err := exec.Command("pgrep", "-f", process).Output(); err == nil {
		if pid, err := parsePgrep(string(out)); err == nil {
			return pid, nil
		}
	}
	out, err := exec.Command("ps", "aux").Output()
	if err != nil {
		return -1, fmt.Errorf("failed to run ps command: %w", err)
	}
	return parsePS(string(out), process)
}

// parsePgrep returns the first PID of pgrep output.
func parsePgrep(out string) (int, error) {
	lines := strings.Fields(out)
	if len(lines) == 0 {
		return -1, fmt.Errorf("process not found")
	}
	pid, err := strconv.Atoi(lines[0])
	if err != nil {
		return -1, fmt.Errorf("failed to parse PID: %w", err)
	}
	return pid, nil
}

// parsePS finds process in `ps aux` output, skipping grep itself.
func parsePS(out, process string) (int, error) {
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, process) || strings.Contains(line, "grep") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		if pid, err := strconv.Atoi(fields[1]); err == nil {
			return pid, nil
		}
	}
	return -1, fmt.Errorf("%s process not found", process)
}

func sendSignal(pid int, sig syscall.Signal) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Signal(sig)
}
