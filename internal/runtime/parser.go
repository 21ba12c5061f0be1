// Package runtime holds the streaming artifact parser: a four-state machine that turns an
// arbitrarily chunked model reply into a live domain.Artifact.
package runtime

import (
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/sakura/internal/logging"
	"github.com/aretw0/sakura/internal/markup"
	"github.com/aretw0/sakura/pkg/domain"
)

// Parser reconstructs an Artifact from a streamed reply.
//
// A Parser is owned by one caller: ParseChunk, ParseFullContent and Reset must not be
// called concurrently. Readers on other goroutines should consume published snapshots.
type Parser struct {
	matcher *markup.Matcher
	hooks   domain.LifecycleHooks
	logger  *slog.Logger

	state    domain.ParserState
	buffer   string
	artifact *domain.Artifact

	// payload accumulates the raw text of the open action.
	payload strings.Builder
	// reopened is set when a file action targets a path that already completed.
	reopened bool

	subscribers []subscriber
	nextSubID   int
}

type subscriber struct {
	id int
	fn func(*domain.Artifact)
}

// Option configures a Parser.
type Option func(*Parser)

// WithMatcher sets the tag matcher (default: markup.DefaultGrammar).
func WithMatcher(m *markup.Matcher) Option {
	return func(p *Parser) {
		p.matcher = m
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(p *Parser) {
		p.hooks = hooks
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

// NewParser creates a parser in the Scanning state.
func NewParser(opts ...Option) *Parser {
	p := &Parser{state: domain.StateScanning}
	for _, opt := range opts {
		opt(p)
	}
	if p.matcher == nil {
		p.matcher = markup.DefaultGrammar().MustCompile()
	}
	if p.logger == nil {
		p.logger = logging.NewNop()
	}
	return p
}

// Subscribe registers fn to receive every published snapshot. Snapshots are copies and may
// be retained. A nil snapshot means the parser was reset. The returned func unsubscribes.
func (p *Parser) Subscribe(fn func(*domain.Artifact)) func() {
	id := p.nextSubID
	p.nextSubID++
	p.subscribers = append(p.subscribers, subscriber{id: id, fn: fn})
	return func() {
		for i, s := range p.subscribers {
			if s.id == id {
				p.subscribers = append(p.subscribers[:i:i], p.subscribers[i+1:]...)
				return
			}
		}
	}
}

// Reset clears the buffer, the state and the current artifact, then publishes nil.
func (p *Parser) Reset() {
	p.state = domain.StateScanning
	p.buffer = ""
	p.artifact = nil
	p.payload.Reset()
	p.reopened = false
	p.publish()
}

// ParseFullContent re-parses text from a clean state.
func (p *Parser) ParseFullContent(text string) {
	p.Reset()
	p.ParseChunk(text)
}

// ParseChunk appends text to the buffer and advances the state machine as far as the
// buffered text allows. Text that cannot be classified yet stays buffered.
func (p *Parser) ParseChunk(text string) {
	p.buffer += text
	for p.step() {
	}

	if p.hooks.OnChunk != nil {
		p.hooks.OnChunk(&domain.ChunkEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventChunk},
			Bytes:     len(text),
			Buffered:  len(p.buffer),
		})
	}
}

// Artifact returns a copy of the current artifact, or nil before the first artifact tag.
func (p *Parser) Artifact() *domain.Artifact {
	return p.artifact.Clone()
}

// State returns the current machine state.
func (p *Parser) State() domain.ParserState {
	return p.state
}

func (p *Parser) publish() {
	if len(p.subscribers) == 0 {
		return
	}
	snapshot := p.artifact.Clone()
	for _, s := range p.subscribers {
		s.fn(snapshot)
	}
}
