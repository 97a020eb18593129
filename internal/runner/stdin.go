package runner

import (
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/maxvaer/dirgraph/internal/scanner"
)

const keyCtrlC = 0x03

// keyboard maps single keypresses to pause toggles and interrupts.
type keyboard struct {
	pauser    *scanner.Pauser
	interrupt func()
	status    io.Writer
	quiet     bool
}

// watchKeys reads r until it fails or Ctrl+C is pressed. Enter and Space
// toggle the pauser.
func (k *keyboard) watchKeys(r io.Reader) {
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if err != nil {
			return
		}
		if n == 0 {
			continue
		}
		switch buf[0] {
		case keyCtrlC:
			k.interrupt()
			return
		case '\r', '\n', ' ':
			k.toggle()
		}
	}
}

func (k *keyboard) toggle() {
	paused := k.pauser.Toggle()
	if k.quiet {
		return
	}
	if paused {
		fmt.Fprint(k.status, "\r\033[K[*] Paused, press Enter or Space to resume\n")
		return
	}
	fmt.Fprintf(k.status, "\r\033[K[*] Resumed (paused %s in total)\n", k.pauser.PausedDuration().Round(time.Millisecond))
}

// startKeyboard puts a terminal stdin into raw mode and watches it for pause
// toggles. Raw mode swallows SIGINT, so Ctrl+C calls interrupt instead. When
// stdin is not a terminal it returns a nil pauser.
func startKeyboard(status io.Writer, quiet bool, interrupt func()) (*scanner.Pauser, func()) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, func() {}
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		if !quiet {
			fmt.Fprintf(status, "[!] Pause toggle unavailable: %v\n", err)
		}
		return nil, func() {}
	}
	restoreOutputProcessing(fd)
	restore := func() { _ = term.Restore(fd, oldState) }

	k := &keyboard{
		pauser: scanner.NewPauser(),
		interrupt: func() {
			restore()
			interrupt()
		},
		status: status,
		quiet:  quiet,
	}
	go k.watchKeys(os.Stdin)
	return k.pauser, restore
}
