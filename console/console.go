package console

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// readTimeout paces the byte loop so cancellation is noticed between
// keystrokes.
const readTimeout = 20 * time.Millisecond

// Port is the byte source and sink of the console. Serial ports satisfy
// it; a timed out read must return (0, nil).
type Port interface {
	io.ReadWriter
	SetReadTimeout(time.Duration) error
}

type Console struct {
	port     Port
	parser   *Parser
	dispatch *Dispatcher
	logger   *log.Logger
}

func New(port Port, dispatch *Dispatcher, logger *log.Logger) *Console {
	return &Console{
		port:     port,
		parser:   NewParser(port),
		dispatch: dispatch,
		logger:   logger,
	}
}

// Run reads the port one byte at a time and feeds the parser until ctx is
// cancelled or the port fails.
func (c *Console) Run(ctx context.Context) error {
	err := c.port.SetReadTimeout(readTimeout)
	if err != nil {
		return fmt.Errorf("failed to set console read timeout: %w", err)
	}

	buf := make([]byte, 1)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := c.port.Read(buf)
		if err != nil {
			return fmt.Errorf("console read failed: %w", err)
		}
		if n == 0 {
			continue
		}

		line := c.parser.Feed(buf[0])
		if line != nil {
			c.logger.Debug("console command", "name", line.Name, "args", len(line.Args))
			c.dispatch.Dispatch(line)
		}
	}
}
