//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package runner

import "golang.org/x/sys/unix"

// restoreOutputProcessing turns OPOST back on after term.MakeRaw, so status
// lines printed while waiting for keys still get \r\n translation.
func restoreOutputProcessing(fd int) {
	t, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		return
	}
	if t.Oflag&unix.OPOST != 0 {
		return
	}
	t.Oflag |= unix.OPOST
	_ = unix.IoctlSetTermios(fd, ioctlSetTermios, t)
}
