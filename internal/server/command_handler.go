package server

import (
	"fmt"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"texlipse/internal/graph"
)

const (
	CommandShowOutline = "texlipse.showOutline"
	CommandReload      = "texlipse.reload"
)

func (s *Server) workspaceExecuteCommand(
	context *glsp.Context,
	params *protocol.ExecuteCommandParams,
) (any, error) {
	switch params.Command {
	case CommandShowOutline:
		return s.showOutline(context)
	case CommandReload:
		s.scheduleLoad()
		return nil, nil
	}
	return nil, fmt.Errorf("unknown command %q", params.Command)
}

// showOutline starts the outline view on first use and asks the client to
// open it. The view URL is returned as well.
func (s *Server) showOutline(context *glsp.Context) (any, error) {
	s.mu.Lock()
	if s.view == nil {
		view := graph.New()
		url, err := view.Listen(s.cfg.GraphAddr)
		if err != nil {
			log.Warningf("outline view on %s: %v, using a free port", s.cfg.GraphAddr, err)
			url, err = view.Listen("localhost:0")
		}
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		s.view, s.viewURL = view, url
		if snap := s.project.Snapshot(); snap != nil {
			view.Publish(graph.FromInput(snap.Outline))
		}
	}
	url := s.viewURL
	s.mu.Unlock()

	context.Notify("window/showDocument", protocol.ShowDocumentParams{
		URI:      protocol.URI(url),
		External: &protocol.True,
	})
	return url, nil
}
