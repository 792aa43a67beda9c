package server

import (
	"context"
	"errors"
	"time"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"texlipse/internal/project"
	"texlipse/internal/scheduler"
)

func (s *Server) textDocumentDidOpen(
	context *glsp.Context,
	params *protocol.DidOpenTextDocumentParams,
) error {
	name, err := s.name(params.TextDocument.URI)
	if err != nil {
		return err
	}
	s.docs.Open(name, params.TextDocument.Text, params.TextDocument.Version)
	s.reparse(name, 0, false)
	return nil
}

func (s *Server) textDocumentDidChange(
	context *glsp.Context,
	params *protocol.DidChangeTextDocumentParams,
) error {
	name, err := s.name(params.TextDocument.URI)
	if err != nil {
		return err
	}
	if _, err := s.docs.ApplyChanges(name, params.TextDocument.Version, params.ContentChanges); err != nil {
		return err
	}
	s.reparse(name, s.cfg.ParseDelay(), false)
	return nil
}

func (s *Server) textDocumentDidSave(
	context *glsp.Context,
	params *protocol.DidSaveTextDocumentParams,
) error {
	name, err := s.name(params.TextDocument.URI)
	if err != nil {
		return err
	}
	if params.Text != nil {
		version, _ := s.docs.Version(name)
		s.docs.Open(name, *params.Text, version)
	}
	s.reparse(name, 0, true)
	return nil
}

func (s *Server) textDocumentDidClose(
	context *glsp.Context,
	params *protocol.DidCloseTextDocumentParams,
) error {
	name, err := s.name(params.TextDocument.URI)
	if err != nil {
		return err
	}
	s.docs.Release(name)
	// The file on disk may differ from the discarded buffer.
	s.reparse(name, 0, false)
	return nil
}

func (s *Server) workspaceDidChangeWatchedFiles(
	context *glsp.Context,
	params *protocol.DidChangeWatchedFilesParams,
) error {
	for _, change := range params.Changes {
		name, err := s.name(change.URI)
		if err != nil {
			log.Debugf("ignoring %s: %v", change.URI, err)
			continue
		}
		if _, err := s.docs.GetDocument(name); err == nil {
			// the editor owns open files
			continue
		}
		if change.Type == protocol.FileChangeTypeDeleted {
			if err := s.cache.Forget(name); err != nil {
				log.Warningf("forgetting %s: %v", name, err)
			}
			if s.cfg.IsSource(name) {
				s.scheduleLoad()
				continue
			}
		}
		s.reparse(name, 0, true)
	}
	return nil
}

// reparse schedules a new parse of a source file, or a reload of a
// bibliography or aux file, after delay. A newer call for the same file
// replaces a pending one. With persist set the resulting symbols are
// written to the cache.
func (s *Server) reparse(name string, delay time.Duration, persist bool) {
	var task scheduler.Task
	switch {
	case s.cfg.IsBibliography(name) || s.cfg.IsAux(name):
		task = scheduler.Task{Name: "reload " + name, Execute: func(ctx context.Context) error {
			snap, err := s.project.ReloadBibliography(ctx, name)
			if errors.Is(err, project.ErrNotLoaded) {
				return nil
			}
			if err != nil {
				return err
			}
			s.commit(snap, name, persist)
			return nil
		}}
	case s.cfg.IsSource(name):
		task = scheduler.Task{Name: "parse " + name, Execute: func(ctx context.Context) error {
			text, err := s.docs.Text(name)
			if err != nil {
				return err
			}
			snap, err := s.project.Update(ctx, name, text)
			if err != nil {
				return err
			}
			s.commit(snap, name, persist)
			return nil
		}}
	default:
		return
	}
	s.sched.Debounce(name, delay, task)
}

func (s *Server) commit(snap *project.Snapshot, name string, persist bool) {
	s.publish(snap)
	if persist {
		s.persist(name)
	}
}
