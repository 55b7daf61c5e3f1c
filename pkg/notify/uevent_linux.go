//go:build linux

package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Changes opens a NETLINK_KOBJECT_UEVENT socket subscribed to kernel events.
func (u *UeventNotifier) Changes(ctx context.Context) (<-chan Change, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.NETLINK_KOBJECT_UEVENT)
	if err != nil {
		return nil, fmt.Errorf("uevent socket: %w", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Groups: 1}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("uevent bind: %w", err)
	}

	// Receives time out periodically so the loop can observe ctx.
	tv := unix.NsecToTimeval(u.readTimeout.Nanoseconds())
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("uevent timeout: %w", err)
	}

	out := make(chan Change, 16)
	go u.readLoop(ctx, fd, out)
	return out, nil
}

func (u *UeventNotifier) readLoop(ctx context.Context, fd int, out chan<- Change) {
	defer close(out)
	defer unix.Close(fd)

	buf := make([]byte, 16*1024)
	for ctx.Err() == nil {
		n, _, err := unix.Recvfrom(fd, buf, 0)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EINTR) {
				continue
			}
			return
		}

		msg, ok := ParseUevent(buf[:n])
		if !ok || !msg.usbDevice(u.subsystems) {
			continue
		}

		select {
		case out <- msg.change(time.Now()):
		case <-ctx.Done():
			return
		}
	}
}
