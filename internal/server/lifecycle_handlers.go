package server

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"texlipse/internal/cache"
	"texlipse/internal/config"
	"texlipse/internal/manager"
	"texlipse/internal/project"
	"texlipse/internal/refs"
	"texlipse/internal/resolver"
	"texlipse/internal/scanner"
	"texlipse/internal/scheduler"
)

const rescanInterval = 30 * time.Second

func (s *Server) initialize(
	context *glsp.Context,
	params *protocol.InitializeParams,
) (any, error) {
	cfg, err := config.Load(params.InitializationOptions)
	if err != nil {
		return nil, err
	}
	s.cfg = cfg
	log.Infof("config: %+v", cfg)

	root, err := rootPath(params)
	if err != nil {
		return nil, err
	}
	s.res = resolver.New(root, cfg.MainFile)
	s.docs = manager.NewDocumentManager(s.res.Root())
	s.project = project.New(s.docs, s.res, cfg.ProjectOptions())
	s.cache = openCache(cfg, s.res.Root())
	s.notify = context.Notify

	s.sched = scheduler.NewScheduler(64)
	s.sched.RunScheduler()

	syncKind := protocol.TextDocumentSyncKindIncremental

	capabilities := s.handler.CreateServerCapabilities()
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &protocol.True,
		Change:    &syncKind,
		Save:      &protocol.SaveOptions{IncludeText: &protocol.True},
	}
	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{"\\", "{", ","},
	}
	capabilities.ExecuteCommandProvider = &protocol.ExecuteCommandOptions{
		Commands: []string{CommandShowOutline, CommandReload},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &s.version,
		},
	}, nil
}

func rootPath(params *protocol.InitializeParams) (string, error) {
	if params.RootURI != nil && *params.RootURI != "" {
		u, err := url.Parse(string(*params.RootURI))
		if err != nil {
			return "", fmt.Errorf("failed to parse root uri: %w", err)
		}
		return filepath.FromSlash(u.Path), nil
	}
	if params.RootPath != nil && *params.RootPath != "" {
		return *params.RootPath, nil
	}
	return os.Getwd()
}

// openCache falls back to an in-memory cache when persistence is disabled
// or the state directory is unusable.
func openCache(cfg config.Config, root string) cache.Cache {
	if !cfg.Cache {
		return cache.NewMemory()
	}
	c, err := cache.Open(root)
	if err != nil {
		log.Warningf("symbol cache disabled: %v", err)
		return cache.NewMemory()
	}
	return c
}

func (s *Server) initialized(
	context *glsp.Context,
	params *protocol.InitializedParams,
) error {
	log.Info("client initialized")
	s.scheduleLoad()
	s.sched.SchedulePeriodicTask(rescanInterval, scheduler.Task{Name: "rescan bibliographies", Execute: s.rescan})
	return nil
}

func (s *Server) scheduleLoad() {
	if !s.sched.ScheduleHighPriorityTask(scheduler.Task{Name: "load project", Execute: s.load}) {
		log.Warning("scheduler stopped, project not loaded")
	}
}

func (s *Server) shutdown(context *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)
	if s.sched != nil {
		s.sched.StopScheduler()
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			log.Warningf("closing cache: %v", err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view != nil {
		return s.view.Close()
	}
	return nil
}

func (s *Server) setTrace(context *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

// load seeds the index from the cache, parses the include tree of the main
// file and any changed file outside of it, and writes the symbols back.
func (s *Server) load(ctx context.Context) error {
	inv, err := scanner.Walk(ctx, s.res.Root(), s.cfg)
	if err != nil {
		return err
	}
	known := slices.Concat(inv.Sources, inv.Bibliographies)
	stale := cache.Seed(s.cache, s.project.Index(), known)
	log.Infof("%d of %d files need parsing", len(stale), len(known))

	snap, err := s.project.Load(ctx)
	if errors.Is(err, project.ErrNoMainFile) {
		s.showMessage(protocol.MessageTypeWarning, fmt.Sprintf("%s: main file %s not found", serverName, s.cfg.MainFile))
		return nil
	}
	if err != nil {
		return err
	}

	for _, f := range stale {
		if !s.cfg.IsSource(f.Path) || snap.Contains(f.Path) {
			continue
		}
		text, err := s.docs.Text(f.Path)
		if err != nil {
			log.Warningf("reading %s: %v", f.Path, err)
			continue
		}
		if snap, err = s.project.Update(ctx, f.Path, text); err != nil {
			return err
		}
	}
	s.publish(snap)

	if err := cache.Save(s.cache, s.project.Index(), known); err != nil {
		log.Warningf("saving symbols: %v", err)
	}
	return s.rescan(ctx)
}

// rescan reloads the bibliographies and the aux file when they changed on
// disk. The first call only records their modification times.
func (s *Server) rescan(ctx context.Context) error {
	if s.project.Snapshot() == nil {
		return nil
	}
	var files []string
	s.project.Index().View(func(_, bibs *refs.Container, _ *refs.CommandContainer) {
		files = bibs.Files()
	})
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		var modTime time.Time
		f, err := scanner.Stat(s.res.Root(), name)
		if err == nil {
			modTime = f.ModTime
		}

		s.mu.Lock()
		last, seen := s.bibTimes[name]
		s.bibTimes[name] = modTime
		s.mu.Unlock()
		if !seen || last.Equal(modTime) {
			continue
		}

		log.Infof("%s changed on disk", name)
		snap, err := s.project.ReloadBibliography(ctx, name)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			log.Warningf("reloading %s: %v", name, err)
			continue
		}
		s.publish(snap)
		s.persist(name)
	}
	return nil
}

// persist stores the current symbols of name in the cache.
func (s *Server) persist(name string) {
	f, err := scanner.Stat(s.res.Root(), name)
	if err != nil {
		return
	}
	if err := cache.Save(s.cache, s.project.Index(), []scanner.File{f}); err != nil {
		log.Warningf("saving symbols of %s: %v", name, err)
	}
}
