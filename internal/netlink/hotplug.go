//go:build linux

// Package netlink provides pure Go kernel uevent monitoring using netlink.
//
// This package reads netlinkKobjectUEvent messages broadcast by the kernel
// device-uevent mechanism without cgo: it opens a raw datagram socket bound
// to the kernel broadcast group and decodes each datagram into an ordered
// Event record.
package netlink

import (
	"bytes"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// Action identifies the kind of device event.
type Action int

// Recognized event actions. Anything other than "add"/"remove" decodes to
// ActionUnknown; the dispatcher treats it conservatively (never admitted in
// dumb mode).
const (
	ActionUnknown Action = iota
	ActionAdd
	ActionRemove
)

func (a Action) String() string {
	switch a {
	case ActionAdd:
		return "add"
	case ActionRemove:
		return "remove"
	default:
		return "unknown"
	}
}

func parseAction(verb string) Action {
	switch verb {
	case "add":
		return ActionAdd
	case "remove":
		return ActionRemove
	default:
		return ActionUnknown
	}
}

// EnvPair is a single KEY=VALUE entry from a uevent datagram, preserved in
// kernel delivery order.
type EnvPair struct {
	Key   string
	Value string
}

// Event is a parsed uevent. Env preserves kernel order; Get performs a
// linear scan returning the first match, matching the kernel's own
// first-wins semantics for duplicate keys.
type Event struct {
	Action    Action
	DevPath   string
	Env       []EnvPair
	Raw       []byte
	Seqnum    uint64
	HasSeqnum bool
}

// Get returns the value of the first Env entry matching key.
func (e *Event) Get(key string) (string, bool) {
	for _, p := range e.Env {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// netlinkKobjectUEvent is the netlink protocol family for kernel object
// events (NETLINK_KOBJECT_UEVENT).
const netlinkKobjectUEvent = 15

// kernelBroadcastGroup is the multicast group mask uevents are broadcast on.
const kernelBroadcastGroup = 1

// recvBufferSize is sized for the worst-case kernel datagram (>=16KiB)
// plus a reserve for a trailing sentinel byte.
const recvBufferSize = 16*1024 + 512

// Socket wraps a bound kernel uevent netlink socket.
type Socket struct {
	fd int
}

// Open creates and binds a netlink socket to the kernel uevent broadcast
// group. The caller owns the returned Socket and must Close it.
func Open() (*Socket, error) {
	fd, err := syscall.Socket(syscall.AF_NETLINK, syscall.SOCK_DGRAM|syscall.SOCK_CLOEXEC, netlinkKobjectUEvent)
	if err != nil {
		return nil, err
	}

	addr := &syscall.SockaddrNetlink{
		Family: syscall.AF_NETLINK,
		Groups: kernelBroadcastGroup,
	}
	if err := syscall.Bind(fd, addr); err != nil {
		syscall.Close(fd)
		return nil, err
	}

	return &Socket{fd: fd}, nil
}

// Close releases the socket.
func (s *Socket) Close() error {
	return syscall.Close(s.fd)
}

// setTimeout configures SO_RCVTIMEO. A zero duration blocks indefinitely.
func (s *Socket) setTimeout(d time.Duration) error {
	tv := syscall.NsecToTimeval(d.Nanoseconds())
	return syscall.SetsockoptTimeval(s.fd, syscall.SOL_SOCKET, syscall.SO_RCVTIMEO, &tv)
}

// Recv performs a single receive, blocking indefinitely. Zero-length or
// error results are surfaced to the caller, who logs and continues; the
// socket itself is never closed on a per-datagram error.
func (s *Socket) Recv() ([]byte, error) {
	if err := s.setTimeout(0); err != nil {
		return nil, err
	}
	return s.recv()
}

// RecvTimeout performs a single receive bounded by timeout, used for the
// main loop's poll-while-backlog-saturated step. A zero-length result with
// a nil error and false ready means no datagram arrived within timeout.
func (s *Socket) RecvTimeout(timeout time.Duration) (data []byte, ready bool, err error) {
	if err := s.setTimeout(timeout); err != nil {
		return nil, false, err
	}
	data, err = s.recv()
	if err != nil {
		if isTimeout(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (s *Socket) recv() ([]byte, error) {
	buf := make([]byte, recvBufferSize)
	for {
		n, _, err := syscall.Recvfrom(s.fd, buf, 0)
		if err != nil {
			if err == syscall.EINTR {
				continue
			}
			return nil, err
		}
		return buf[:n], nil
	}
}

func isTimeout(err error) bool {
	return err == syscall.EAGAIN || err == syscall.EWOULDBLOCK
}

// Decode parses a raw uevent datagram into an Event.
//
// Format: "ACTION@DEVPATH\0KEY1=VAL1\0KEY2=VAL2\0...". Decode returns nil
// if the first NUL-terminated token does not contain '@': no
// action@devpath prefix means no Event and no side effects.
//
// Whenever a DEVPATH pair is stored, a synthetic DEVICENAME pair (the
// basename of DEVPATH) is appended immediately after it.
func Decode(datagram []byte) *Event {
	if len(datagram) == 0 {
		return nil
	}

	parts := bytes.Split(datagram, []byte{0})
	if len(parts) == 0 || len(parts[0]) == 0 {
		return nil
	}

	header := string(parts[0])
	atIdx := strings.IndexByte(header, '@')
	if atIdx < 0 {
		return nil
	}

	ev := &Event{
		Action:  parseAction(header[:atIdx]),
		DevPath: header[atIdx+1:],
		Raw:     append([]byte(nil), datagram...),
	}

	for _, part := range parts[1:] {
		if len(part) == 0 {
			continue
		}
		kv := string(part)
		eqIdx := strings.IndexByte(kv, '=')
		if eqIdx < 1 {
			// malformed env string, skipped but does not abort decoding
			continue
		}
		key, value := kv[:eqIdx], kv[eqIdx+1:]
		ev.Env = append(ev.Env, EnvPair{Key: key, Value: value})

		if key == "DEVPATH" {
			ev.Env = append(ev.Env, EnvPair{Key: "DEVICENAME", Value: basename(value)})
		}
		if key == "SEQNUM" {
			if n, err := strconv.ParseUint(value, 10, 64); err == nil {
				ev.Seqnum = n
				ev.HasSeqnum = true
			}
		}
	}

	return ev
}

func basename(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
