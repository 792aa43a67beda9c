package project

import (
	"fmt"
	"slices"

	"texlipse/internal/bibliography"
	"texlipse/internal/parser"
	"texlipse/internal/refs"
)

type bibText struct {
	name string
	text string
}

// updateIndex brings the index in line with pd. Labels and commands are
// replaced for the changed files only; bibliography files are read when the
// set named by the files of the tree changed, and reread ones are replaced
// if the index already knows them.
func (p *Project) updateIndex(pd *pending, files []string, reread []bibText) {
	bibFiles := p.bibFiles(pd, files)
	aux := p.auxName()

	p.index.Update(func(labels, bibs *refs.Container, commands *refs.CommandContainer) {
		for _, name := range pd.removed {
			labels.Remove(name)
			commands.Remove(name)
		}
		for _, name := range pd.changed {
			res := pd.results[name]
			labels.AddOrReplace(name, res.Labels)
			commands.AddOrReplace(name, res.Commands)
		}

		if !bibs.CheckFreshness(bibFiles) {
			auxPending := false
			for _, name := range bibs.UpdateBibs(bibFiles) {
				if name == aux {
					auxPending = true
					continue
				}
				bibs.AddOrReplace(name, p.readBib(name))
			}
			if auxPending {
				bibs.Organize()
				bibs.AddAux(aux, p.readAux(aux))
			}
		}

		for _, b := range reread {
			if b.name == aux {
				if slices.Contains(bibs.Files(), aux) {
					bibs.Organize()
					bibs.AddAux(aux, bibliography.ParseAux(b.text, aux))
				}
				continue
			}
			if !bibs.UpdateRefSource(b.name, bibliography.Parse(b.text, b.name)) {
				log.Debugf("%s is not a bibliography of the project", b.name)
			}
		}
	})
}

// bibFiles lists the bibliography files named in the tree's files, followed
// by the .aux file when there is at least one.
func (p *Project) bibFiles(pd *pending, files []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, name := range files {
		res := pd.results[name]
		if res == nil {
			continue
		}
		for _, bib := range res.Bibs {
			file, ok := p.res.Bibliography(bib)
			if !ok || seen[file] {
				continue
			}
			seen[file] = true
			out = append(out, file)
		}
	}
	if aux := p.auxName(); aux != "" && len(out) > 0 {
		out = append(out, aux)
	}
	return out
}

func (p *Project) readBib(name string) []refs.Entry {
	text, err := p.src.Text(name)
	if err != nil {
		log.Warningf("could not read bibliography %s: %v", name, err)
		return nil
	}
	return bibliography.Parse(text, name)
}

func (p *Project) readAux(name string) []refs.Entry {
	text, err := p.src.Text(name)
	if err != nil {
		log.Debugf("no auxiliary file %s: %v", name, err)
		return nil
	}
	return bibliography.ParseAux(text, name)
}

// diagnostics collects the messages of every file: its parser messages, or
// the errors of its last fatal parse, plus include problems and references
// the index cannot resolve. Citations are only checked once some
// bibliography is known.
func (p *Project) diagnostics(pd *pending, includes map[string][]parser.Message) map[string][]parser.Message {
	out := make(map[string][]parser.Message, len(pd.results))
	p.index.View(func(labels, bibs *refs.Container, _ *refs.CommandContainer) {
		for name, res := range pd.results {
			if bad, ok := pd.failed[name]; ok {
				out[name] = append(out[name], bad.Errors()...)
				continue
			}
			msgs := append([]parser.Message(nil), res.Messages...)
			for _, r := range labels.RemoveResolved(res.Refs) {
				msgs = append(msgs, unresolved(r, "Label %s is undefined"))
			}
			if bibs.Size() > 0 {
				for _, r := range bibs.RemoveResolved(res.Cites) {
					msgs = append(msgs, unresolved(r, "BibTeX entry key %s not found"))
				}
			}
			out[name] = msgs
		}
	})
	for name, msgs := range includes {
		out[name] = append(out[name], msgs...)
	}
	return out
}

func unresolved(r refs.Reference, format string) parser.Message {
	return parser.Message{
		Line:     r.Line,
		Pos:      r.Pos,
		Length:   r.Length,
		Msg:      fmt.Sprintf(format, r.Key),
		Severity: parser.SeverityWarning,
	}
}
