// Package transcript turns a message window into the anonymized plain-text
// transcript that gets embedded in model prompts. Non-self senders never
// appear by handle or name: each one gets a per-conversation alias assigned
// in order of first appearance.
package transcript

import (
	"fmt"
	"strings"

	"commcoach/internal/chatdb"
)

// SelfLabel is the speaker label for the user's own messages.
const SelfLabel = "Me"

// ContextLevel caps how many recent messages feed a prompt. Counted in
// messages, not characters.
type ContextLevel string

const (
	Low     ContextLevel = "Low"
	Medium  ContextLevel = "Medium"
	Maximum ContextLevel = "Maximum"
)

// MessageLimit returns the message cap for the level. Unknown levels get the
// Medium cap.
func (l ContextLevel) MessageLimit() int {
	switch l {
	case Low:
		return 4
	case Maximum:
		return 20
	default:
		return 10
	}
}

// ParseContextLevel accepts the level name case-insensitively.
func ParseContextLevel(s string) (ContextLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return Low, nil
	case "medium", "":
		return Medium, nil
	case "maximum", "max":
		return Maximum, nil
	}
	return "", fmt.Errorf("unknown context level %q (want low, medium, or maximum)", s)
}

// Description renders the level for display, in English or Spanish.
func (l ContextLevel) Description(spanish bool) string {
	if spanish {
		return fmt.Sprintf("Últimos %d mensajes", l.MessageLimit())
	}
	return fmt.Sprintf("Last %d messages", l.MessageLimit())
}

// AliasTable assigns stable pseudonyms to non-self senders for the lifetime
// of one conversation session. The first distinct sender becomes
// "Other person 1", the next "Other person 2", and so on; a sender keeps its
// alias for the whole session. Reset on conversation switch.
type AliasTable struct {
	aliases map[string]string
	next    int
}

func NewAliasTable() *AliasTable {
	t := &AliasTable{}
	t.Reset()
	return t
}

// Label returns the alias for a sender identifier, assigning the next number
// on first sight.
func (t *AliasTable) Label(sender string) string {
	if alias, ok := t.aliases[sender]; ok {
		return alias
	}
	alias := fmt.Sprintf("Other person %d", t.next)
	t.aliases[sender] = alias
	t.next++
	return alias
}

// Reset drops all assignments and restarts numbering at 1.
func (t *AliasTable) Reset() {
	t.aliases = make(map[string]string)
	t.next = 1
}

// Len reports how many senders have aliases assigned.
func (t *AliasTable) Len() int { return len(t.aliases) }

// reactionVerbs anchor tapback lines like `Liked "Sure!"`. English plus the
// Spanish forms iMessage uses.
var reactionVerbs = []string{
	"liked", "loved", "disliked", "laughed at", "emphasized", "questioned",
	"le gustó", "les gustó", "le encantó", "le disgustó", "se rió de", "enfatizó", "preguntó",
}

// IsReaction reports whether the text is a reaction/tapback acknowledgement
// rather than a real message. The verb must anchor the trimmed, lowercased
// text and be followed by a space, so "I liked the movie" is not a reaction.
func IsReaction(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, verb := range reactionVerbs {
		if strings.HasPrefix(lower, verb+" ") {
			return true
		}
	}
	return false
}

// Build renders the chronological transcript: reactions dropped, the last
// limit messages kept, senders replaced by aliases. Pure given its inputs
// and the table's current contents.
func Build(messages []chatdb.Message, limit int, aliases *AliasTable) string {
	kept := messages[:0:0]
	for _, m := range messages {
		if !IsReaction(m.Text) {
			kept = append(kept, m)
		}
	}
	if limit > 0 && len(kept) > limit {
		kept = kept[len(kept)-limit:]
	}

	lines := make([]string, 0, len(kept))
	for _, m := range kept {
		if m.IsFromMe {
			lines = append(lines, SelfLabel+": "+m.Text)
		} else {
			lines = append(lines, aliases.Label(m.Sender)+": "+m.Text)
		}
	}
	return strings.Join(lines, "\n")
}
