package session

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commcoach/internal/chatdb"
	"commcoach/internal/prompt"
	"commcoach/internal/transcript"
)

type fakeStore struct {
	messages []chatdb.Message
	fetches  int
}

func (f *fakeStore) FetchMessages(ctx context.Context, chatID int64, limit int) []chatdb.Message {
	f.fetches++
	return f.messages
}

// scriptedModel returns canned replies in order and records prompts.
type scriptedModel struct {
	replies []string
	prompts []string
}

func (m *scriptedModel) Execute(ctx context.Context, p string) string {
	m.prompts = append(m.prompts, p)
	if len(m.replies) == 0 {
		return "ok"
	}
	r := m.replies[0]
	m.replies = m.replies[1:]
	return r
}

func conversation() chatdb.Conversation {
	return chatdb.Conversation{ID: 7, DisplayName: "Alice Smith"}
}

func someMessages() []chatdb.Message {
	return []chatdb.Message{
		{Text: "are we still on for tonight?", IsFromMe: true},
		{Text: "yes! 7pm", Sender: "+15551234567"},
	}
}

func TestSelectRunsInterpretationThenSuggestedReply(t *testing.T) {
	store := &fakeStore{messages: someMessages()}
	model := &scriptedModel{replies: []string{"They seem excited about tonight.", `How about "See you at 7!"`}}
	s := New(store, model)

	s.Select(context.Background(), conversation())

	require.Len(t, model.prompts, 2)
	assert.Contains(t, model.prompts[0], "Do NOT suggest any replies.")
	assert.Contains(t, model.prompts[1], "Output ONLY that suggested reply text")
	// Both prompts embed the anonymized transcript, never the raw handle.
	for _, p := range model.prompts {
		assert.Contains(t, p, "Other person 1: yes! 7pm")
		assert.NotContains(t, p, "+15551234567")
	}

	its := s.Interactions()
	require.Len(t, its, 2)
	assert.Equal(t, "Conversation Interpretation", its[0].Prompt)
	assert.True(t, strings.HasSuffix(its[0].Response, "\n\nType below to chat more about the conversation"))
	assert.Equal(t, "Suggested Reply", its[1].Prompt)
	assert.NotEmpty(t, its[0].ID)
	assert.NotEqual(t, its[0].ID, its[1].ID)

	require.Len(t, s.DebugEntries(), 2)
	assert.Equal(t, model.prompts[0], s.DebugEntries()[0].Prompt)
}

func TestSelectInDraftModeSkipsInterpretation(t *testing.T) {
	store := &fakeStore{messages: someMessages()}
	model := &scriptedModel{}
	s := New(store, model)
	s.Mode = prompt.Draft

	s.Select(context.Background(), conversation())

	assert.Empty(t, model.prompts)
	assert.Empty(t, s.Interactions())
	assert.Equal(t, 1, store.fetches)

	// Switching to interpret afterwards triggers it once.
	s.Mode = prompt.Interpret
	s.EnsureInterpretation(context.Background())
	assert.Len(t, model.prompts, 2)
	s.EnsureInterpretation(context.Background())
	assert.Len(t, model.prompts, 2)
}

func TestSelectResetsState(t *testing.T) {
	store := &fakeStore{messages: []chatdb.Message{{Text: "hi", Sender: "A"}}}
	model := &scriptedModel{}
	s := New(store, model)

	s.Select(context.Background(), conversation())
	require.NotEmpty(t, s.Interactions())
	require.NotEmpty(t, s.LastPrompt())
	first := s.Transcript()
	require.Equal(t, "Other person 1: hi", first)

	// New conversation: a different sender must restart at alias 1.
	store.messages = []chatdb.Message{{Text: "hola", Sender: "B"}}
	s.Mode = prompt.Draft
	s.Select(context.Background(), chatdb.Conversation{ID: 8, DisplayName: "Bob"})

	assert.Empty(t, s.Interactions())
	assert.Empty(t, s.DebugEntries())
	assert.Empty(t, s.LastPrompt())
	assert.Equal(t, "Other person 1: hola", s.Transcript())
	assert.Equal(t, int64(8), s.Conversation().ID)
}

func TestSubmitDraftSuggestion(t *testing.T) {
	s := New(&fakeStore{messages: someMessages()}, &scriptedModel{replies: []string{"Revised:\nhere you go"}})
	s.Mode = prompt.Draft
	s.Select(context.Background(), conversation())

	it := s.SubmitDraft(context.Background(), "   ")
	assert.Equal(t, "Draft Request", it.Prompt)
	// Header lines in the response get emphasized.
	assert.Equal(t, "**Revised:**\nhere you go", it.Response)
	assert.Contains(t, s.LastPrompt(), "You are an expert communicator.")
}

func TestSubmitDraftRefinement(t *testing.T) {
	model := &scriptedModel{}
	s := New(&fakeStore{messages: someMessages()}, model)
	s.Mode = prompt.Draft
	s.Select(context.Background(), conversation())

	it := s.SubmitDraft(context.Background(), "ok see you their")
	assert.Equal(t, "ok see you their", it.Prompt)
	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], "My Draft:\nok see you their")
}

func TestSubmitQuestion(t *testing.T) {
	model := &scriptedModel{}
	s := New(&fakeStore{messages: someMessages()}, model)
	s.Mode = prompt.Draft
	s.Select(context.Background(), conversation())

	_, err := s.SubmitQuestion(context.Background(), "  \n")
	assert.Error(t, err)
	assert.Empty(t, model.prompts)

	it, err := s.SubmitQuestion(context.Background(), "should I apologize?")
	require.NoError(t, err)
	assert.Equal(t, "should I apologize?", it.Prompt)
	assert.Contains(t, model.prompts[0], "My question:\nshould I apologize?")
}

func TestSpanishSessionTranslatesTrailer(t *testing.T) {
	model := &scriptedModel{replies: []string{"interpretación", "sugerencia"}}
	s := New(&fakeStore{messages: someMessages()}, model)
	s.Language = prompt.Spanish
	s.Select(context.Background(), conversation())

	its := s.Interactions()
	require.Len(t, its, 2)
	assert.True(t, strings.HasSuffix(its[0].Response, "Escribe abajo para hablar más sobre la conversación"))
	assert.Contains(t, model.prompts[0], "NO sugieras respuestas.")
}

func TestContextLevelBoundsTranscript(t *testing.T) {
	var msgs []chatdb.Message
	for i := 0; i < 15; i++ {
		msgs = append(msgs, chatdb.Message{Text: "m", IsFromMe: true})
	}
	s := New(&fakeStore{messages: msgs}, &scriptedModel{})
	s.Mode = prompt.Draft
	s.Context = transcript.Low
	s.Select(context.Background(), conversation())

	if got := strings.Count(s.Transcript(), "\n") + 1; got != 4 {
		t.Fatalf("transcript has %d lines, want 4", got)
	}
}
