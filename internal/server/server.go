// Package server is the language server. It keeps one project per workspace
// and answers requests from the last committed snapshot.
package server

import (
	"sync"
	"time"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"texlipse/internal/cache"
	"texlipse/internal/config"
	"texlipse/internal/graph"
	"texlipse/internal/manager"
	"texlipse/internal/parser"
	"texlipse/internal/project"
	"texlipse/internal/resolver"
	"texlipse/internal/scheduler"
)

var log = commonlog.GetLogger("texlipse.server")

const serverName = "texlipse"

type Server struct {
	handler protocol.Handler
	version string

	cfg     config.Config
	res     *resolver.Resolver
	docs    *manager.DocumentManager
	project *project.Project
	sched   *scheduler.Scheduler
	cache   cache.Cache
	notify  glsp.NotifyFunc

	mu        sync.Mutex
	view      *graph.Outline
	viewURL   string
	published map[string][]protocol.Diagnostic
	bibTimes  map[string]time.Time
}

func New(version string) *Server {
	s := &Server{
		version:   version,
		published: make(map[string][]protocol.Diagnostic),
		bibTimes:  make(map[string]time.Time),
	}
	s.handler = protocol.Handler{
		Initialize:                     s.initialize,
		Initialized:                    s.initialized,
		Shutdown:                       s.shutdown,
		SetTrace:                       s.setTrace,
		TextDocumentDidOpen:            s.textDocumentDidOpen,
		TextDocumentDidChange:          s.textDocumentDidChange,
		TextDocumentDidSave:            s.textDocumentDidSave,
		TextDocumentDidClose:           s.textDocumentDidClose,
		TextDocumentDocumentSymbol:     s.textDocumentDocumentSymbol,
		TextDocumentCompletion:         s.textDocumentCompletion,
		TextDocumentDefinition:         s.textDocumentDefinition,
		TextDocumentFoldingRange:       s.textDocumentFoldingRange,
		WorkspaceExecuteCommand:        s.workspaceExecuteCommand,
		WorkspaceDidChangeWatchedFiles: s.workspaceDidChangeWatchedFiles,
	}
	return s
}

// Handler exposes the request handlers, mostly for tests.
func (s *Server) Handler() *protocol.Handler { return &s.handler }

// Project returns the workspace project, nil before initialize.
func (s *Server) Project() *project.Project { return s.project }

// NewServer returns a JSON-RPC server around a fresh Server.
func NewServer(version string, debug bool) *server.Server {
	return server.NewServer(New(version).Handler(), serverName, debug)
}

// name maps an editor URI to the project relative name of the file.
func (s *Server) name(uri protocol.DocumentUri) (string, error) {
	f, err := s.res.Resolve(uri)
	if err != nil {
		return "", err
	}
	return f.RelativePath, nil
}

// result returns the parse of name in the current snapshot.
func (s *Server) result(name string) *parser.Result {
	snap := s.project.Snapshot()
	if snap == nil {
		return nil
	}
	return snap.Results[name]
}

func (s *Server) showMessage(typ protocol.MessageType, msg string) {
	if s.notify == nil {
		return
	}
	s.notify("window/showMessage", protocol.ShowMessageParams{Type: typ, Message: msg})
}

// publish sends the diagnostics of every file whose diagnostics changed
// since the last call, including files that no longer have any, and
// refreshes the outline view when it is running.
func (s *Server) publish(snap *project.Snapshot) {
	if snap == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	files := make(map[string]bool)
	for file := range snap.Diagnostics {
		files[file] = true
	}
	for file, res := range snap.Results {
		if len(res.Tasks) > 0 {
			files[file] = true
		}
	}
	for file := range s.published {
		files[file] = true
	}

	for file := range files {
		diags := s.diagnostics(file, snap)
		old := s.published[file]
		if len(diags) == 0 && len(old) == 0 || sameDiagnostics(diags, old) {
			continue
		}
		if s.notify != nil {
			s.notify("textDocument/publishDiagnostics", protocol.PublishDiagnosticsParams{
				URI:         s.res.URI(file),
				Diagnostics: diags,
			})
		}
		if len(diags) == 0 {
			delete(s.published, file)
		} else {
			s.published[file] = diags
		}
	}

	if s.view != nil {
		if err := s.view.Publish(graph.FromInput(snap.Outline)); err != nil {
			log.Warningf("outline view: %v", err)
		}
	}
}

func (s *Server) diagnostics(file string, snap *project.Snapshot) []protocol.Diagnostic {
	text, err := s.docs.Text(file)
	if err != nil {
		log.Debugf("no text for %s: %v", file, err)
	}
	source := serverName
	diags := []protocol.Diagnostic{}
	for _, m := range snap.Diagnostics[file] {
		severity := severities[m.Severity]
		diags = append(diags, protocol.Diagnostic{
			Range:    messageRange(text, m.Line, m.Pos, m.Length),
			Severity: &severity,
			Source:   &source,
			Message:  m.Msg,
		})
	}
	if res := snap.Results[file]; res != nil {
		for _, t := range res.Tasks {
			severity := protocol.DiagnosticSeverityInformation
			if t.Priority == parser.PriorityHigh {
				severity = protocol.DiagnosticSeverityWarning
			}
			diags = append(diags, protocol.Diagnostic{
				Range:    messageRange(text, t.Line, t.Pos, t.Length),
				Severity: &severity,
				Source:   &source,
				Message:  t.Text,
			})
		}
	}
	return diags
}

var severities = map[parser.Severity]protocol.DiagnosticSeverity{
	parser.SeverityInfo:    protocol.DiagnosticSeverityInformation,
	parser.SeverityWarning: protocol.DiagnosticSeverityWarning,
	parser.SeverityError:   protocol.DiagnosticSeverityError,
}

// messageRange covers length bytes from pos, or the whole line when either
// is unknown.
func messageRange(text string, line, pos, length int) protocol.Range {
	if pos <= 0 || length <= 0 {
		return protocol.Range{
			Start: manager.Position(text, line, 0),
			End:   manager.Position(text, line, 1<<30),
		}
	}
	return protocol.Range{
		Start: manager.Position(text, line, pos),
		End:   manager.Position(text, line, pos+length),
	}
}

func sameDiagnostics(a, b []protocol.Diagnostic) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Range != b[i].Range || a[i].Message != b[i].Message || *a[i].Severity != *b[i].Severity {
			return false
		}
	}
	return true
}
