package bus

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

const SockName = "control.sock"
const PidName = "diarscribe.pid"
const ProtoVer = "0.1"

// Paths locates the control socket and pid file of a running transcribe.
type Paths struct {
	Dir string
}

// DefaultPaths uses ~/.cache/diarscribe.
func DefaultPaths() (Paths, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return Paths{}, err
	}
	return Paths{Dir: filepath.Join(dir, "diarscribe")}, nil
}

func (p Paths) Sock() string { return filepath.Join(p.Dir, SockName) }
func (p Paths) Pid() string  { return filepath.Join(p.Dir, PidName) }

func (p Paths) Listen() (net.Listener, error) {
	if err := os.MkdirAll(p.Dir, 0o700); err != nil {
		return nil, err
	}
	_ = os.Remove(p.Sock()) // stale socket from last run
	return net.Listen("unix", p.Sock())
}

func (p Paths) Dial() (net.Conn, error) {
	return net.Dial("unix", p.Sock())
}

// SendCommand writes one command line and returns the one-line reply.
func (p Paths) SendCommand(cmd string) (string, error) {
	c, err := p.Dial()
	if err != nil {
		return "", err
	}
	defer c.Close()

	if _, err := fmt.Fprintf(c, "%s\n", cmd); err != nil {
		return "", err
	}

	resp, err := bufio.NewReader(c).ReadString('\n')
	return strings.TrimSuffix(resp, "\n"), err
}

// CheckExisting fails if another live process owns the pid file.
func (p Paths) CheckExisting() error {
	pidData, err := os.ReadFile(p.Pid())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(pidData)))
	if err != nil {
		return nil // invalid pid file, assume stale
	}
	if pid == os.Getpid() || !isProcessAlive(pid) {
		return nil
	}
	return fmt.Errorf("control socket already owned by PID %d", pid)
}

func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// signal 0 probes without delivering anything
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

func (p Paths) CreatePidFile() error {
	if err := os.MkdirAll(p.Dir, 0o700); err != nil {
		return err
	}
	return os.WriteFile(p.Pid(), []byte(strconv.Itoa(os.Getpid())), 0o600)
}

func (p Paths) RemovePidFile() error {
	return os.Remove(p.Pid())
}
