// Package chatdb reads conversations and messages out of the Messages
// chat.db store. The store is opened read-only and treated as an external,
// unversioned format: only the handful of columns the pipeline needs are
// touched, and an unreadable store degrades to empty results rather than
// errors (missing Full Disk Access looks identical to an empty store).
package chatdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"commcoach/internal/richtext"
)

// appleEpochOffset is the number of seconds between the UNIX epoch and the
// store's reference date (2001-01-01T00:00:00Z). Message dates are stored as
// nanosecond ticks since that reference.
const appleEpochOffset = 978307200

// DefaultMessageLimit caps a message fetch when the caller passes no limit.
const DefaultMessageLimit = 25

const unknownChat = "Unknown Chat"

// Conversation is one chat thread, individual or group.
type Conversation struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
}

// Message is a single message within a conversation. Sender is the raw
// handle (phone number or email), empty for messages sent by the user.
type Message struct {
	ID        int       `json:"id"`
	Text      string    `json:"text"`
	Sender    string    `json:"sender,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	IsFromMe  bool      `json:"is_from_me"`
}

// NameResolver maps a raw chat identifier to a human-readable display name.
// Implementations never fail: with no contact match they return a formatted
// version of the identifier itself.
type NameResolver interface {
	DisplayName(raw string) string
}

// Options tunes conversation listing. Zero values take the defaults the
// original tool shipped with (pool 10, cap 5).
type Options struct {
	Pool int
	Cap  int
}

func (o Options) withDefaults() Options {
	if o.Pool <= 0 {
		o.Pool = 10
	}
	if o.Cap <= 0 {
		o.Cap = 5
	}
	return o
}

// Reader provides bounded read-only queries against chat.db.
type Reader struct {
	db    *sql.DB
	path  string
	names NameResolver
	opts  Options
}

// Open opens the store read-only. Open itself never fails: if the store
// cannot be opened or read, the returned Reader reports unavailable and all
// queries return empty results.
func Open(path string, names NameResolver, opts Options) *Reader {
	r := &Reader{path: path, names: names, opts: opts.withDefaults()}

	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return r
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return r
	}
	r.db = db
	return r
}

// Available reports whether the store could be opened. False usually means
// the file is missing or the process lacks Full Disk Access.
func (r *Reader) Available() bool {
	return r != nil && r.db != nil
}

// Path returns the store path this reader was opened against.
func (r *Reader) Path() string { return r.path }

// Close releases the underlying connection.
func (r *Reader) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// ListRecentConversations returns up to Cap conversations with a usable
// display name, drawn from the Pool most recently active chats. Chats whose
// name cannot be resolved are skipped; duplicates are dropped.
func (r *Reader) ListRecentConversations(ctx context.Context) []Conversation {
	if !r.Available() {
		return nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT cmj.chat_id
		FROM message m
		JOIN chat_message_join cmj ON m.ROWID = cmj.message_id
		GROUP BY cmj.chat_id
		ORDER BY MAX(m.date) DESC
		LIMIT ?
	`, r.opts.Pool)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var pool []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil
		}
		pool = append(pool, id)
	}
	if err := rows.Err(); err != nil {
		return nil
	}

	return r.collectFromPool(ctx, pool)
}

// collectFromPool resolves chat details for each pooled id, skipping chats
// without a usable name and de-duplicating by id, until the cap is reached.
func (r *Reader) collectFromPool(ctx context.Context, pool []int64) []Conversation {
	var conversations []Conversation
	seen := make(map[int64]bool)
	for _, id := range pool {
		if seen[id] {
			continue
		}

		var displayName, chatIdentifier sql.NullString
		err := r.db.QueryRowContext(ctx, `
			SELECT display_name, chat_identifier FROM chat WHERE ROWID = ?
		`, id).Scan(&displayName, &chatIdentifier)
		if err != nil {
			continue
		}

		name := r.displayName(displayName.String, chatIdentifier.String)
		if strings.TrimSpace(name) == "" || name == unknownChat {
			continue
		}

		seen[id] = true
		conversations = append(conversations, Conversation{ID: id, DisplayName: name})
		if len(conversations) >= r.opts.Cap {
			break
		}
	}
	return conversations
}

// displayName prefers the stored chat label, then a resolved identity for
// the chat identifier (one-on-one chats store the other party's handle
// there), then gives up.
func (r *Reader) displayName(stored, identifier string) string {
	if stored != "" {
		return stored
	}
	if identifier != "" && r.names != nil {
		return r.names.DisplayName(identifier)
	}
	if identifier != "" {
		return identifier
	}
	return unknownChat
}

// FetchMessages returns the limit most recent messages of a conversation in
// ascending chronological order. Rows with an empty text column fall back to
// decoding the archived rich-text blob; undecodable rows keep empty text.
func (r *Reader) FetchMessages(ctx context.Context, chatID int64, limit int) []Message {
	if !r.Available() {
		return nil
	}
	if limit <= 0 {
		limit = DefaultMessageLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT m.ROWID, m.text, m.attributedBody, h.id, m.date, m.is_from_me
		FROM message m
		LEFT OUTER JOIN handle h ON m.handle_id = h.ROWID
		JOIN chat_message_join cmj ON m.ROWID = cmj.message_id
		WHERE cmj.chat_id = ?
		ORDER BY m.date DESC
		LIMIT ?
	`, chatID, limit)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var (
			id       int64
			text     sql.NullString
			body     []byte
			sender   sql.NullString
			date     int64
			isFromMe bool
		)
		if err := rows.Scan(&id, &text, &body, &sender, &date, &isFromMe); err != nil {
			return nil
		}

		messageText := text.String
		if messageText == "" && len(body) > 0 {
			if decoded, ok := richtext.Decode(body); ok {
				messageText = decoded
			}
		}

		messages = append(messages, Message{
			ID:        int(id),
			Text:      messageText,
			Sender:    sender.String,
			Timestamp: TimestampFromTicks(date),
			IsFromMe:  isFromMe,
		})
	}
	if err := rows.Err(); err != nil {
		return nil
	}

	// Query order is newest-first; callers want chronological.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages
}

// TimestampFromTicks converts the store's nanosecond ticks since the Apple
// reference date into a UTC instant.
func TimestampFromTicks(raw int64) time.Time {
	return time.Unix(raw/1_000_000_000+appleEpochOffset, 0).UTC()
}

// TicksFromTimestamp is the inverse of TimestampFromTicks, used when writing
// fixture stores in tests.
func TicksFromTimestamp(t time.Time) int64 {
	return (t.Unix() - appleEpochOffset) * 1_000_000_000
}

// String implements fmt.Stringer for log lines.
func (c Conversation) String() string {
	return fmt.Sprintf("%s (#%d)", c.DisplayName, c.ID)
}
