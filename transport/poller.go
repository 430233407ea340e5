package transport

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

// Poller wraps an epoll instance plus an eventfd used to wake the event
// loop from another goroutine (shutdown, mostly).
type Poller struct {
	fd     int
	wakeFd int
}

func NewPoller() (*Poller, error) {
	var (
		poller Poller
		err    error
	)

	// Open an epoll fd
	// https://man7.org/linux/man-pages/man2/epoll_create.2.html
	poller.fd, err = unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}

	// https://man7.org/linux/man-pages/man2/eventfd.2.html
	poller.wakeFd, err = unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(poller.fd)
		return nil, err
	}

	if err := poller.Add(poller.wakeFd, unix.EPOLLIN); err != nil {
		unix.Close(poller.wakeFd)
		unix.Close(poller.fd)
		return nil, err
	}

	return &poller, nil
}

// Add registers interest in events on fd.
func (p *Poller) Add(fd int, events uint32) error {
	return unix.EpollCtl(p.fd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{
		Fd:     int32(fd),
		Events: events,
	})
}

// Mod replaces the event set fd is registered for.
func (p *Poller) Mod(fd int, events uint32) error {
	return unix.EpollCtl(p.fd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{
		Fd:     int32(fd),
		Events: events,
	})
}

// Del removes fd from the interest set.
func (p *Poller) Del(fd int) error {
	return unix.EpollCtl(p.fd, unix.EPOLL_CTL_DEL, fd, nil)
}

// Wait blocks until at least one registered fd is ready, filling
// events. EINTR is retried internally.
func (p *Poller) Wait(events []unix.EpollEvent, msec int) (int, error) {
	for {
		n, err := unix.EpollWait(p.fd, events, msec)
		if err == unix.EINTR {
			continue
		}

		return n, err
	}
}

// Wake makes a pending or future Wait return. Safe to call from any
// goroutine.
func (p *Poller) Wake() error {
	var one [8]byte
	binary.LittleEndian.PutUint64(one[:], 1)

	_, err := unix.Write(p.wakeFd, one[:])
	if err == unix.EAGAIN {
		// The counter is already non-zero, the loop will wake anyway.
		return nil
	}

	return err
}

// IsWake reports whether fd is the poller's wake channel; the event
// loop drains it and checks for shutdown.
func (p *Poller) IsWake(fd int) bool {
	return fd == p.wakeFd
}

func (p *Poller) drainWake() {
	var buf [8]byte
	for {
		if _, err := unix.Read(p.wakeFd, buf[:]); err != nil {
			return
		}
	}
}

func (p *Poller) Close() error {
	if err := unix.Close(p.wakeFd); err != nil {
		return err
	}

	return unix.Close(p.fd)
}
