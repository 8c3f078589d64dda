package app

import "log/slog"

type closer struct {
	name string
	fn   func() error
}

// closeStack releases the components NewApp has opened so far when a later
// step fails. Components are closed in reverse order of opening.
type closeStack []closer

func (s *closeStack) push(name string, fn func() error) {
	*s = append(*s, closer{name: name, fn: fn})
}

func (s *closeStack) closeAll(logger *slog.Logger) {
	for i := len(*s) - 1; i >= 0; i-- {
		c := (*s)[i]
		if err := c.fn(); err != nil {
			logger.Error("close after failed startup",
				slog.String("component", c.name),
				slog.String("error", err.Error()),
			)
		}
	}
	*s = nil
}
