package modbusd

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	tcp "github.com/soypat/peamodbus/modbustcp"
)

const (
	connectTimeout = 5 * time.Second
	acceptRetry    = time.Second
)

// Server runs the Modbus TCP engine over the model, serving one master
// connection at a time. Transactions are handled strictly in sequence;
// the write completion hook fires between transactions, never inside
// one.
type Server struct {
	addr   string
	model  *Model
	logger *log.Logger
}

func NewServer(addr string, model *Model, logger *log.Logger) *Server {
	return &Server{addr: addr, model: model, logger: logger}
}

func (s *Server) Run(ctx context.Context) error {
	sv, err := tcp.NewServer(tcp.ServerConfig{
		Address:        s.addr,
		ConnectTimeout: connectTimeout,
		DataModel:      s.model,
	})
	if err != nil {
		return fmt.Errorf("failed to start modbus server on %s: %w", s.addr, err)
	}

	s.logger.Info("modbus slave listening", "addr", s.addr)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err = sv.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("failed to accept master connection", "err", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(acceptRetry):
			}
			continue
		}

		s.logger.Info("modbus master connected")
		for sv.IsConnected() {
			err = sv.HandleNext()
			// an errored transaction may still have written coils
			s.model.FlushWrites()
			if err != nil && sv.IsConnected() {
				s.logger.Warn("modbus transaction failed", "err", err)
			}
		}
		s.logger.Info("modbus master disconnected")
	}
}
