package health

import (
	"context"
	"errors"
	"fmt"

	"promptstudio/aegis/pkg/safety/patterns"
)

// PatternsCheck fails when the active registry is missing or empty.
func PatternsCheck(current func() *patterns.Registry) CheckFunc {
	return func(context.Context) error {
		reg := current()
		if reg == nil {
			return errors.New("pattern registry not loaded")
		}
		if reg.Len() == 0 {
			return errors.New("pattern registry is empty")
		}
		return nil
	}
}

// Pinger is implemented by stores that can verify their connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck fails when p cannot be reached.
func PingCheck(name string, p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("%s unreachable: %w", name, err)
		}
		return nil
	}
}
