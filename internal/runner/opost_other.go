//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package runner

func restoreOutputProcessing(int) {}
