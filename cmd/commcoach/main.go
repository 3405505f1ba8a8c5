package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"commcoach/internal/chatdb"
	"commcoach/internal/config"
	"commcoach/internal/contacts"
	"commcoach/internal/format"
	"commcoach/internal/live"
	"commcoach/internal/logging"
	"commcoach/internal/ollama"
	"commcoach/internal/prompt"
	"commcoach/internal/session"
	"commcoach/internal/transcript"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"

	flagJSON     bool
	flagVerbose  bool
	flagLanguage string
	flagContext  string
	flagModel    string
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	quoteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder())

	boldStyle = lipgloss.NewStyle().Bold(true)
)

// app bundles everything a command needs, wired from config and flags.
type app struct {
	cfg      *config.Config
	reader   *chatdb.Reader
	resolver *contacts.Resolver
	model    *ollama.Client
	language prompt.Language
	level    transcript.ContextLevel
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	lang, err := prompt.ParseLanguage(firstNonEmpty(flagLanguage, cfg.Language))
	if err != nil {
		return nil, err
	}
	level, err := transcript.ParseContextLevel(firstNonEmpty(flagContext, cfg.ContextLevel))
	if err != nil {
		return nil, err
	}

	model := firstNonEmpty(flagModel, cfg.Ollama.Model)
	resolver := contacts.NewResolver(contacts.OpenAddressBook(cfg.AddressBook()))

	return &app{
		cfg:      cfg,
		resolver: resolver,
		reader: chatdb.Open(cfg.ChatDB(), resolver, chatdb.Options{
			Pool: cfg.Conversations.Pool,
			Cap:  cfg.Conversations.Cap,
		}),
		model:    ollama.NewClient(cfg.Ollama.Endpoint, model, cfg.Ollama.Timeout()),
		language: lang,
		level:    level,
	}, nil
}

func (a *app) Close() {
	if a.reader != nil {
		a.reader.Close()
	}
}

func (a *app) newSession(mode prompt.Mode) *session.Session {
	s := session.New(a.reader, a.model)
	s.Language = a.language
	s.Context = a.level
	s.Mode = mode
	return s
}

// resolveConversation maps a chats-list index (1-based) or a raw chat id to
// a conversation.
func (a *app) resolveConversation(ctx context.Context, arg string) (chatdb.Conversation, error) {
	n, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return chatdb.Conversation{}, fmt.Errorf("chat argument %q is not a number", arg)
	}

	conversations := a.reader.ListRecentConversations(ctx)
	if len(conversations) == 0 {
		return chatdb.Conversation{}, fmt.Errorf("no conversations available (is Full Disk Access granted?)")
	}
	if n >= 1 && int(n) <= len(conversations) {
		return conversations[n-1], nil
	}
	for _, c := range conversations {
		if c.ID == n {
			return c, nil
		}
	}
	return chatdb.Conversation{}, fmt.Errorf("no conversation %q in the recent list", arg)
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "commcoach",
		Short: "On-device communication coach for iMessage",
		Long: `Commcoach reads your recent iMessage conversations, anonymizes them,
and asks a locally-running Ollama model to interpret the thread or help
you draft a reply. Nothing leaves the machine.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetVerbose(flagVerbose)
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&flagJSON, "json", "j", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Verbose logging")
	rootCmd.PersistentFlags().StringVarP(&flagLanguage, "language", "l", "", "Prompt and UI language (english, spanish)")
	rootCmd.PersistentFlags().StringVarP(&flagContext, "context", "c", "", "Context level (low, medium, maximum)")
	rootCmd.PersistentFlags().StringVarP(&flagModel, "model", "m", "", "Ollama model name")

	rootCmd.AddCommand(versionCmd(), chatsCmd(), showCmd(), interpretCmd(), draftCmd(), watchCmd(), doctorCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, args []string) {
			if flagJSON {
				printJSON(map[string]string{"version": version, "commit": commit, "date": buildDate})
				return
			}
			fmt.Printf("commcoach %s (%s, %s)\n", version, commit, buildDate)
		},
	}
}

func chatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chats",
		Short: "List recent conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			conversations := a.reader.ListRecentConversations(cmd.Context())
			if flagJSON {
				printJSON(conversations)
				return nil
			}
			printChats(conversations, a)
			return nil
		},
	}
}

func printChats(conversations []chatdb.Conversation, a *app) {
	if len(conversations) == 0 {
		if !a.reader.Available() {
			fmt.Println("Message store is not readable. Grant Full Disk Access to your terminal and retry.")
			return
		}
		fmt.Println("No conversations found.")
		return
	}
	for i, c := range conversations {
		fmt.Printf("%d. %s %s\n", i+1, titleStyle.Render(c.DisplayName), idStyle.Render(fmt.Sprintf("#%d", c.ID)))
	}
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <chat>",
		Short: "Print the anonymized transcript of a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			conv, err := a.resolveConversation(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			messages := a.reader.FetchMessages(cmd.Context(), conv.ID, 0)
			text := transcript.Build(messages, a.level.MessageLimit(), transcript.NewAliasTable())

			if flagJSON {
				printJSON(map[string]any{
					"conversation": conv,
					"context":      a.level.Description(a.language == prompt.Spanish),
					"transcript":   text,
				})
				return nil
			}
			fmt.Println(labelStyle.Render(conv.DisplayName) + " " + idStyle.Render(a.level.Description(a.language == prompt.Spanish)))
			fmt.Println(text)
			return nil
		},
	}
}

func interpretCmd() *cobra.Command {
	var question string
	cmd := &cobra.Command{
		Use:   "interpret <chat>",
		Short: "Interpret a conversation, or answer a question about it",
		Long: `Without -q, produces the initial interpretation of the most recent
messages followed by a suggested reply. With -q, answers your question
using the conversation as context.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			conv, err := a.resolveConversation(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := requireModel(cmd.Context(), a); err != nil {
				return err
			}

			question = strings.TrimSpace(question)
			var s *session.Session
			if question == "" {
				s = a.newSession(prompt.Interpret)
				s.Select(cmd.Context(), conv)
			} else {
				s = a.newSession(prompt.Draft)
				s.Select(cmd.Context(), conv)
				if _, err := s.SubmitQuestion(cmd.Context(), question); err != nil {
					return err
				}
			}

			printInteractions(s, conv)
			return nil
		},
	}
	cmd.Flags().StringVarP(&question, "question", "q", "", "Question to ask about the conversation")
	return cmd
}

func draftCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "draft <chat> [text...]",
		Short: "Suggest a reply, or refine your draft of one",
		Long: `With no text, suggests a reply you could send based on the recent
conversation. With text, treats it as your draft and returns an improved
version plus a one-sentence explanation.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			conv, err := a.resolveConversation(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := requireModel(cmd.Context(), a); err != nil {
				return err
			}

			s := a.newSession(prompt.Draft)
			s.Select(cmd.Context(), conv)
			s.SubmitDraft(cmd.Context(), strings.Join(args[1:], " "))

			printInteractions(s, conv)
			return nil
		},
	}
}

func watchCmd() *cobra.Command {
	var debounceSec int
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the message store and re-list conversations on change",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logging.Infof("Press Ctrl+C to stop")
			return live.Watch(ctx, a.cfg.ChatDB(), secondsToDuration(debounceSec), func() {
				printChats(a.reader.ListRecentConversations(ctx), a)
				fmt.Println()
			}, logging.Infof)
		},
	}
	cmd.Flags().IntVar(&debounceSec, "debounce", 2, "Debounce interval in seconds")
	return cmd
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check store, contacts, and model availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			type report struct {
				ChatDB      string `json:"chat_db"`
				ChatDBOK    bool   `json:"chat_db_ok"`
				AddressBook string `json:"address_book"`
				ContactsOK  bool   `json:"contacts_ok"`
				Model       string `json:"model"`
				ModelOK     bool   `json:"model_ok"`
			}

			dir := contacts.OpenAddressBook(a.cfg.AddressBook())
			r := report{
				ChatDB:      a.cfg.ChatDB(),
				ChatDBOK:    a.reader.Available(),
				AddressBook: a.cfg.AddressBook(),
				ContactsOK:  dir.Available(),
				Model:       a.model.Model(),
				ModelOK:     a.model.CheckModelAvailability(cmd.Context()),
			}

			if flagJSON {
				printJSON(r)
				return nil
			}

			printCheck(r.ChatDBOK, "Message store readable", r.ChatDB,
				"Grant Full Disk Access to your terminal in System Settings > Privacy & Security.")
			printCheck(r.ContactsOK, "Contacts directory readable", r.AddressBook,
				"Conversations will show formatted phone numbers instead of names.")
			printCheck(r.ModelOK, "Ollama model available", r.Model,
				fmt.Sprintf("Run: ollama pull %s", r.Model))
			return nil
		},
	}
}

func printCheck(ok bool, what, detail, hint string) {
	if ok {
		fmt.Printf("✓ %s %s\n", what, idStyle.Render(detail))
		return
	}
	fmt.Printf("✗ %s %s\n  %s\n", what, idStyle.Render(detail), hint)
}

func requireModel(ctx context.Context, a *app) error {
	if a.model.CheckModelAvailability(ctx) {
		return nil
	}
	return fmt.Errorf("ollama model %q is not available; run: ollama pull %s", a.model.Model(), a.model.Model())
}

func printInteractions(s *session.Session, conv chatdb.Conversation) {
	if flagJSON {
		printJSON(map[string]any{
			"conversation": conv,
			"interactions": s.Interactions(),
		})
		return
	}

	fmt.Println(titleStyle.Render(conv.DisplayName))
	for _, it := range s.Interactions() {
		fmt.Println()
		fmt.Println(labelStyle.Render(it.Prompt))
		fmt.Println(renderResponse(it.Response))
	}
}

// renderResponse turns the formatter's output into terminal text: quoted
// runs become bordered blocks, **emphasized** lines become bold.
func renderResponse(text string) string {
	var out []string
	for _, seg := range format.Segments(text) {
		switch seg.Kind {
		case format.Quote:
			out = append(out, quoteStyle.Render(seg.Text))
		default:
			out = append(out, renderEmphasis(seg.Text))
		}
	}
	return strings.Join(out, "\n")
}

func renderEmphasis(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "**") && strings.HasSuffix(line, "**") && len(line) > 4 {
			lines[i] = boldStyle.Render(strings.TrimSuffix(strings.TrimPrefix(line, "**"), "**"))
		}
	}
	return strings.Join(lines, "\n")
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(b))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func secondsToDuration(s int) time.Duration {
	return time.Duration(s) * time.Second
}
