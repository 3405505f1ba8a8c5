// Package prompt renders the four deterministic prompt templates sent to the
// local model. Template wording is bilingual (English/Spanish); the language
// selects which wording is used, nothing else about the shape changes.
// Compose is a pure function: identical requests produce identical strings.
package prompt

import (
	"fmt"
	"strings"
)

// Mode selects what the user wants from the model.
type Mode string

const (
	// Draft asks for a reply to send: a fresh suggestion when no user text
	// is given, a refinement of the user's draft otherwise.
	Draft Mode = "Draft"
	// Interpret asks what the conversation means: a high-level read when no
	// question is given, an answer to the user's question otherwise.
	Interpret Mode = "Interpret"
)

// ParseMode accepts a mode name case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "draft":
		return Draft, nil
	case "interpret", "":
		return Interpret, nil
	}
	return "", fmt.Errorf("unknown mode %q (want draft or interpret)", s)
}

// Language selects the template and UI-string language.
type Language string

const (
	English Language = "English"
	Spanish Language = "Spanish"
)

// ParseLanguage accepts a language name or locale code.
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "english", "en", "":
		return English, nil
	case "spanish", "es":
		return Spanish, nil
	}
	return "", fmt.Errorf("unknown language %q (want english or spanish)", s)
}

// Locale returns the two-letter locale identifier.
func (l Language) Locale() string {
	if l == Spanish {
		return "es"
	}
	return "en"
}

// spanishStrings translates the strings the pipeline itself emits. The full
// UI translation table lives with the presentation layer.
var spanishStrings = map[string]string{
	"Draft":           "Borrador",
	"Interpret":       "Interpretar",
	"Draft Request":   "Solicitud de borrador",
	"Conversation":    "Conversación",
	"Context":         "Contexto",
	"Language":        "Idioma",
	"Mode":            "Modo",
	"Thinking…":       "Pensando…",
	"Suggested Reply": "Respuesta sugerida",
	"Type below to chat more about the conversation": "Escribe abajo para hablar más sobre la conversación",
}

// Translate renders a known English UI string in the language, passing
// unknown strings through unchanged.
func (l Language) Translate(english string) string {
	if l != Spanish {
		return english
	}
	if es, ok := spanishStrings[english]; ok {
		return es
	}
	return english
}

// Request is the immutable input to Compose. UserText empty means no user
// text: a suggestion request in Draft mode, the initial interpretation in
// Interpret mode.
type Request struct {
	Mode       Mode
	Language   Language
	Transcript string
	UserText   string
}

// Compose renders the prompt for the request.
func Compose(req Request) string {
	spanish := req.Language == Spanish
	userText := strings.TrimSpace(req.UserText)

	switch req.Mode {
	case Draft:
		if userText != "" {
			return refinePrompt(req.Transcript, userText, spanish)
		}
		return SuggestReply(req.Transcript, req.Language)
	default:
		if userText != "" {
			return questionPrompt(req.Transcript, userText, spanish)
		}
		return InitialInterpretation(req.Transcript, req.Language)
	}
}

// SuggestReply asks for one casual, concise reply derived from the
// transcript, and nothing else.
func SuggestReply(transcript string, lang Language) string {
	base := "You are an expert communicator. Based on the following conversation, write a thoughtful, relevant reply I could send. Keep it casual and concise. Output ONLY that suggested reply text and nothing else. Keep the reply in the same language as the conversation."
	if lang == Spanish {
		base = "Eres un experto en comunicación. Basándote en la siguiente conversación, redacta una respuesta reflexiva y relevante que yo podría enviar. Manténla casual y concisa. Devuelve SOLO ese texto sugerido y nada más. Mantén la respuesta en el mismo idioma que la conversación."
	}
	return base + "\n\nConversation History:\n" + transcript
}

// InitialInterpretation asks for a brief high-level read of the most recent
// messages, explicitly forbidding reply suggestions. Fired on conversation
// selection before the user has asked anything.
func InitialInterpretation(transcript string, lang Language) string {
	if lang == Spanish {
		return "Eres un experto en comunicación analizando mi conversación. Aquí hay una conversación reciente. \n\n" + transcript + "\n\nProporciona SOLO una interpretación breve, casual y de alto nivel de los últimos mensajes. NO sugieras respuestas. Responde en español con tono informal y conciso. Recuerda que me estás hablando sobre mi conversación con otra persona"
	}
	return "You are a communication expert analyzing my conversation. Here is a recent conversation. \n\n" + transcript + "\n\nProvide ONLY a brief, casual, high level interpretation of the last few messages. Do NOT suggest any replies. Respond in English, informal, concise tone. Remember you are talking to me about my conversation with other person"
}

func refinePrompt(transcript, draft string, spanish bool) string {
	base := "You are an expert editor specializing in clear, emotionally-intelligent communication. I want to send the following message. Analyse my draft and provide an improved version for clarity and tone. Output the revised message first, then on a new line provide a ONE-sentence explanation IN ENGLISH of your key changes. Keep the revised message in the same language as the conversation."
	if spanish {
		base = "Eres un editor experto especializado en comunicación clara y emocionalmente inteligente. Quiero enviar el siguiente mensaje. Analiza mi borrador y proporciona una versión mejorada para mayor claridad y tono. Muestra primero el mensaje revisado y, en la línea siguiente, proporciona UNA frase de explicación EN ESPAÑOL con tus cambios clave. Mantén el mensaje revisado en el mismo idioma que la conversación."
	}
	return base + "\n\nConversation History:\n" + transcript + "\n\nMy Draft:\n" + draft
}

func questionPrompt(transcript, question string, spanish bool) string {
	header := "You are a friendly, concise communication coach. Based on the following conversation and any context, answer my question in ENGLISH"
	advise := "Advise me based on the conversation history and my question."
	if spanish {
		header = "Eres un coach de comunicación amigable y conciso. Basándote en la siguiente conversación y cualquier contexto, responde a mi pregunta EN ESPAÑOL"
		advise = "Aconséjame basándote en el historial de la conversación y mi pregunta."
	}
	return header + "\n\nConversation History:\n" + transcript + "\n\nMy question:\n" + question + "\n\n" + advise + "\n"
}
