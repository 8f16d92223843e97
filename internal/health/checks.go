package health

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// ErrNotReady is returned by [Ready] while its probe reports false.
var ErrNotReady = errors.New("health: not ready")

// Ready adapts a boolean probe such as a gateway connection flag.
func Ready(name string, ready func() bool) Checker {
	return Checker{
		Name: name,
		Check: func(context.Context) error {
			if !ready() {
				return ErrNotReady
			}
			return nil
		},
	}
}

// Binary checks that path names an executable, looked up in $PATH when it
// contains no separator.
func Binary(name, path string) Checker {
	return Checker{
		Name: name,
		Check: func(context.Context) error {
			if _, err := exec.LookPath(path); err != nil {
				return fmt.Errorf("resolve %q: %w", path, err)
			}
			return nil
		},
	}
}
