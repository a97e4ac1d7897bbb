//go:build !linux && !darwin && !dragonfly && !freebsd && !netbsd && !openbsd

package editor

import "golang.org/x/term"

func makeRaw(fd int) (func() error, error) {
	old, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	return func() error {
		return term.Restore(fd, old)
	}, nil
}
