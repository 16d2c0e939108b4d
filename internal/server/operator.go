package server

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/vovakirdan/linechat/internal/command"
)

// ServerMessagePrefix marks chat lines typed on the server console.
const ServerMessagePrefix = "SERVER MSG> "

// HandleOperatorLine executes one line typed on the server console.
func (s *Server) HandleOperatorLine(ctx context.Context, line string) {
	cmd, err := command.Parse(line, command.Operator)
	if err != nil {
		s.display.Display("Error, empty command")
		return
	}

	switch cmd.Kind {
	case command.KindChat:
		msg := ServerMessagePrefix + cmd.Text
		s.display.Display(msg)
		s.registry.Broadcast(ctx, msg)
		return
	case command.KindInvalid:
		s.log.Debug().Err(cmd.Reason).Str("line", line).Msg("invalid operator command")
		s.display.Display("Invalid command")
		return
	}

	switch cmd.Name {
	case command.Quit:
		s.Quit()
	case command.Stop:
		if err := s.StopListening(); err != nil {
			s.display.Display("Error, " + err.Error())
		}
	case command.Close:
		s.Close()
	case command.Start:
		if err := s.Listen(); err != nil {
			if errors.Is(err, ErrAlreadyListening) {
				s.display.Display("Error, already listening")
				return
			}
			s.log.Error().Err(err).Msg("listen failed")
			s.display.Display(fmt.Sprintf("Error, could not listen for clients: %v", err))
		}
	case command.GetPort:
		s.display.Display(strconv.Itoa(s.Port()))
	case command.SetPort:
		s.setPort(cmd.Arg(0))
	}
}

func (s *Server) setPort(arg string) {
	port, err := strconv.Atoi(arg)
	if err != nil {
		s.display.Display("Error, invalid port " + arg)
		return
	}
	if err := s.SetPort(port); err != nil {
		switch {
		case errors.Is(err, ErrAlreadyConnected):
			s.display.Display("Error, already connected")
		case errors.Is(err, ErrInvalidPort):
			s.display.Display("Error, invalid port " + arg)
		default:
			s.log.Error().Err(err).Int("port", port).Msg("rebind failed")
			s.display.Display(fmt.Sprintf("Error, could not listen on port %d: %v", port, err))
		}
		return
	}
	s.display.Display(fmt.Sprintf("Port set to %d", s.Port()))
}
