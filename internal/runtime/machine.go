package runtime

import (
	"strings"
	"time"

	"github.com/aretw0/sakura/internal/markup"
	"github.com/aretw0/sakura/pkg/domain"
)

// step performs at most one transition or one provisional drain.
// It reports whether another step may make progress.
func (p *Parser) step() bool {
	switch p.state {
	case domain.StateScanning:
		tag, ok := p.matcher.FindArtifactOpen(p.buffer)
		if !ok {
			return false
		}
		// Prose before the tag is discarded.
		p.buffer = p.buffer[tag.End:]
		p.openArtifact(tag)
		return true

	case domain.StateInArtifact:
		tag, ok := p.matcher.FindInArtifact(p.buffer)
		if !ok {
			return false
		}
		p.buffer = p.buffer[tag.End:]
		switch tag.Kind {
		case markup.KindFileOpen:
			p.openFile(tag.Path)
		case markup.KindShellOpen:
			p.openShell()
		case markup.KindArtifactClose:
			p.closeArtifact()
		}
		return true

	case domain.StateInFileAction, domain.StateInShellAction:
		if i := p.matcher.FindActionClose(p.buffer); i >= 0 {
			p.payload.WriteString(p.buffer[:i])
			p.buffer = p.buffer[i+len(p.matcher.ActionClose()):]
			p.closeAction()
			return true
		}
		if n := p.matcher.Drainable(p.buffer); n > 0 {
			p.payload.WriteString(p.buffer[:n])
			p.buffer = p.buffer[n:]
			p.provisional()
		}
		return false
	}
	return false
}

func (p *Parser) openArtifact(tag markup.Tag) {
	p.artifact = domain.NewArtifact(tag.ID, tag.Title)
	p.transition(domain.StateInArtifact, "")
	p.publish()
}

func (p *Parser) openFile(path string) {
	p.payload.Reset()
	if f, ok := p.artifact.Files.Get(path); ok && f.IsComplete {
		// Completed files never regress; the new content replaces it on close.
		p.reopened = true
	} else {
		p.reopened = false
		p.artifact.Files.Set(domain.File{Path: path})
	}
	p.artifact.CurrentFile = path
	p.transition(domain.StateInFileAction, path)
	p.publish()
}

func (p *Parser) openShell() {
	p.payload.Reset()
	p.transition(domain.StateInShellAction, "")
	p.publish()
}

// provisional republishes the open file with the content drained so far.
// Shell commands stay pending until their close tag.
func (p *Parser) provisional() {
	if p.state != domain.StateInFileAction || p.reopened {
		return
	}
	path := p.artifact.CurrentFile
	content := strings.TrimSpace(p.payload.String())
	if f, _ := p.artifact.Files.Get(path); f.Content == content {
		return
	}
	p.artifact.Files.Set(domain.File{Path: path, Content: content})
	p.publish()
}

func (p *Parser) closeAction() {
	payload := strings.TrimSpace(p.payload.String())
	p.payload.Reset()

	switch p.state {
	case domain.StateInFileAction:
		path := p.artifact.CurrentFile
		p.artifact.Files.Set(domain.File{Path: path, Content: payload, IsComplete: true})
		p.artifact.CurrentFile = ""
		p.reopened = false
		if p.hooks.OnFileComplete != nil {
			p.hooks.OnFileComplete(&domain.FileEvent{
				EventBase:  p.event(domain.EventFileComplete),
				ArtifactID: p.artifact.ID,
				Path:       path,
				Size:       len(payload),
			})
		}
		p.logger.Debug("file complete", "artifact", p.artifact.ID, "path", path, "size", len(payload))

	case domain.StateInShellAction:
		if payload != "" && !p.artifact.HasShellCommand(payload) {
			p.artifact.ShellCommands = append(p.artifact.ShellCommands, payload)
			if p.hooks.OnShellCommand != nil {
				p.hooks.OnShellCommand(&domain.ShellEvent{
					EventBase:  p.event(domain.EventShellCommand),
					ArtifactID: p.artifact.ID,
					Command:    payload,
				})
			}
			p.logger.Debug("shell command", "artifact", p.artifact.ID, "command", payload)
		}
	}

	p.transition(domain.StateInArtifact, "")
	p.publish()
}

func (p *Parser) closeArtifact() {
	p.artifact.IsComplete = true
	p.artifact.CurrentFile = ""
	if p.hooks.OnArtifactComplete != nil {
		p.hooks.OnArtifactComplete(&domain.ArtifactEvent{
			EventBase:  p.event(domain.EventArtifactComplete),
			ArtifactID: p.artifact.ID,
			Title:      p.artifact.Title,
			Files:      p.artifact.Files.Len(),
			Commands:   len(p.artifact.ShellCommands),
		})
	}
	p.logger.Info("artifact complete",
		"artifact", p.artifact.ID,
		"files", p.artifact.Files.Len(),
		"commands", len(p.artifact.ShellCommands))
	p.transition(domain.StateScanning, "")
	p.publish()
}

func (p *Parser) transition(to domain.ParserState, path string) {
	from := p.state
	p.state = to
	if p.hooks.OnTransition != nil {
		p.hooks.OnTransition(&domain.TransitionEvent{
			EventBase:  p.event(domain.EventTransition),
			From:       from,
			To:         to,
			ArtifactID: p.artifact.ID,
			Path:       path,
		})
	}
}

func (p *Parser) event(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), Type: t}
}
