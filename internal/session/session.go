// Package session coordinates one conversation's assistant state: the
// fetched messages, the alias table, the prompt/response history, and the
// calls into the model service. All per-conversation mutable state lives
// here and is cleared on conversation switch; the session runs model calls
// one at a time, from a single goroutine.
package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"commcoach/internal/chatdb"
	"commcoach/internal/format"
	"commcoach/internal/prompt"
	"commcoach/internal/transcript"
)

// Store is the message source the session reads from.
type Store interface {
	FetchMessages(ctx context.Context, chatID int64, limit int) []chatdb.Message
}

// Model executes prompts. Failures come back in-band as "Error: ..." reply
// text.
type Model interface {
	Execute(ctx context.Context, prompt string) string
}

// Interaction is one prompt/response turn, appended in response order.
type Interaction struct {
	ID       string `json:"id"`
	Prompt   string `json:"prompt"`
	Response string `json:"response"`
}

// DebugEntry records the raw prompt and raw response of a model call.
type DebugEntry struct {
	ID       string `json:"id"`
	Prompt   string `json:"prompt"`
	Response string `json:"response"`
}

// Labels for interactions whose prompt was not typed by the user.
const (
	interpretationLabel = "Conversation Interpretation"
	suggestedReplyLabel = "Suggested Reply"
	draftRequestLabel   = "Draft Request"
)

// Session drives the pipeline for one selected conversation.
type Session struct {
	store Store
	model Model

	Language prompt.Language
	Context  transcript.ContextLevel
	Mode     prompt.Mode

	conversation *chatdb.Conversation
	messages     []chatdb.Message
	aliases      *transcript.AliasTable
	interactions []Interaction
	debug        []DebugEntry
	lastPrompt   string
}

// New creates a session with the defaults the original tool ships: Interpret
// mode, Medium context, English.
func New(store Store, model Model) *Session {
	return &Session{
		store:    store,
		model:    model,
		Language: prompt.English,
		Context:  transcript.Medium,
		Mode:     prompt.Interpret,
		aliases:  transcript.NewAliasTable(),
	}
}

// Select switches the session to a conversation: previous interactions,
// aliases, and the last-prompt cache are dropped, messages are fetched, and
// in Interpret mode the initial interpretation (followed by a suggested
// reply) is requested.
func (s *Session) Select(ctx context.Context, conv chatdb.Conversation) {
	s.conversation = &conv
	s.interactions = nil
	s.debug = nil
	s.lastPrompt = ""
	s.aliases.Reset()

	s.messages = s.store.FetchMessages(ctx, conv.ID, 0)

	if s.Mode == prompt.Interpret {
		s.runInitialInterpretation(ctx)
	}
}

// EnsureInterpretation runs the initial interpretation if the session has a
// conversation but no interactions yet. Used when the user switches into
// Interpret mode after selecting in Draft mode.
func (s *Session) EnsureInterpretation(ctx context.Context) {
	if s.conversation == nil || len(s.interactions) > 0 {
		return
	}
	s.runInitialInterpretation(ctx)
}

func (s *Session) runInitialInterpretation(ctx context.Context) {
	p := prompt.Compose(prompt.Request{
		Mode:       prompt.Interpret,
		Language:   s.Language,
		Transcript: s.Transcript(),
	})
	s.lastPrompt = p

	response := s.model.Execute(ctx, p)
	trailer := s.Language.Translate("Type below to chat more about the conversation")
	s.append(interpretationLabel, response+"\n\n"+trailer)
	s.appendDebug(p, response)

	// Interpretation done, queue up something to send.
	s.fetchSuggestedReply(ctx)
}

func (s *Session) fetchSuggestedReply(ctx context.Context) {
	p := prompt.Compose(prompt.Request{
		Mode:       prompt.Draft,
		Language:   s.Language,
		Transcript: s.Transcript(),
	})
	response := s.model.Execute(ctx, p)
	s.append(suggestedReplyLabel, format.EmphasizeHeaders(response))
	s.appendDebug(p, response)
}

// SubmitDraft asks for a reply. Empty text requests a fresh suggestion,
// labeled "Draft Request"; non-empty text asks for a refinement of the
// user's draft.
func (s *Session) SubmitDraft(ctx context.Context, text string) Interaction {
	trimmed := strings.TrimSpace(text)
	label := trimmed
	if label == "" {
		label = draftRequestLabel
	}
	return s.execute(ctx, prompt.Request{
		Mode:       prompt.Draft,
		Language:   s.Language,
		Transcript: s.Transcript(),
		UserText:   trimmed,
	}, label)
}

// SubmitQuestion answers a question about the conversation. A blank question
// is rejected.
func (s *Session) SubmitQuestion(ctx context.Context, question string) (Interaction, error) {
	trimmed := strings.TrimSpace(question)
	if trimmed == "" {
		return Interaction{}, fmt.Errorf("question must not be empty")
	}
	return s.execute(ctx, prompt.Request{
		Mode:       prompt.Interpret,
		Language:   s.Language,
		Transcript: s.Transcript(),
		UserText:   trimmed,
	}, trimmed), nil
}

func (s *Session) execute(ctx context.Context, req prompt.Request, label string) Interaction {
	p := prompt.Compose(req)
	s.lastPrompt = p

	response := s.model.Execute(ctx, p)
	it := s.append(label, format.EmphasizeHeaders(response))
	s.appendDebug(p, response)
	return it
}

func (s *Session) append(label, response string) Interaction {
	it := Interaction{ID: uuid.New().String(), Prompt: label, Response: response}
	s.interactions = append(s.interactions, it)
	return it
}

func (s *Session) appendDebug(p, response string) {
	s.debug = append(s.debug, DebugEntry{ID: uuid.New().String(), Prompt: p, Response: response})
}

// Transcript renders the current message window with the session's alias
// table and context level.
func (s *Session) Transcript() string {
	return transcript.Build(s.messages, s.Context.MessageLimit(), s.aliases)
}

// Conversation returns the selected conversation, nil before any selection.
func (s *Session) Conversation() *chatdb.Conversation { return s.conversation }

// Messages returns the fetched message window in chronological order.
func (s *Session) Messages() []chatdb.Message { return s.messages }

// Interactions returns the prompt/response turns in response order.
func (s *Session) Interactions() []Interaction { return s.interactions }

// DebugEntries returns the raw prompt/response pairs for the debug view.
func (s *Session) DebugEntries() []DebugEntry { return s.debug }

// LastPrompt returns the most recently composed prompt.
func (s *Session) LastPrompt() string { return s.lastPrompt }
