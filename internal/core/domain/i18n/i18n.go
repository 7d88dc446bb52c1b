package i18n

import "strings"

// Language is a BCP-47-like tag. Only the two tags below are supported.
type Language string

const (
	EnglishUS    Language = "en-US"
	PortugueseBR Language = "pt-BR"
)

// Strings holds the localized text the API surfaces for one language.
type Strings struct {
	SystemPrompt     string
	FallbackText     string
	RateLimitError   string
	UserNotFound     string
	UsernameRequired string
	RequestFailed    string
}

var tables = map[Language]Strings{
	EnglishUS: {
		SystemPrompt: "You are a sarcastic and humorous tech critic. Your job is to playfully roast " +
			"someone's GitHub profile in a funny way. Keep it light-hearted, don't be actually mean " +
			"or offensive. Select a few repositories to make fun of, and use the user's bio and " +
			"other information to create a funny roast. Use a few emojis. IMPORTANT: Respond ONLY in English.",
		FallbackText:     "Hmm, I couldn't think of anything clever to say. This GitHub profile is too boring to roast.",
		RateLimitError:   "Rate limit exceeded. Try again later.",
		UserNotFound:     "GitHub user not found",
		UsernameRequired: "GitHub username is required",
		RequestFailed:    "Failed to process request",
	},
	PortugueseBR: {
		SystemPrompt: "Você é um crítico de tecnologia sarcástico e bem-humorado. Seu trabalho é zoar " +
			"o perfil do GitHub de alguém de forma divertida. Mantenha um tom leve, não seja ofensivo " +
			"de verdade. Selecione alguns repositórios para fazer piada, e use a bio do usuário e " +
			"outras informações para criar uma zoação engraçada. Use alguns emojis na resposta. " +
			"IMPORTANTE: Responda APENAS em português brasileiro.",
		FallbackText:     "Hmm, não consegui pensar em algo inteligente para dizer. Este perfil do GitHub é entediante demais para zoar.",
		RateLimitError:   "Limite de requisições excedido. Tente novamente mais tarde.",
		UserNotFound:     "Usuário do GitHub não encontrado",
		UsernameRequired: "Nome de usuário do GitHub é obrigatório",
		RequestFailed:    "Falha ao processar a requisição",
	},
}

// Get returns the string table for lang, falling back to en-US for
// unknown tags.
func Get(lang Language) Strings {
	if s, ok := tables[lang]; ok {
		return s
	}
	return tables[EnglishUS]
}

// Resolve picks the effective language for a request. An explicit query
// parameter wins; otherwise an Accept-Language style hint mentioning
// Portuguese selects pt-BR; the baseline is en-US.
func Resolve(queryLang, acceptLanguage string) Language {
	switch Language(queryLang) {
	case PortugueseBR:
		return PortugueseBR
	case EnglishUS:
		return EnglishUS
	}
	if strings.Contains(strings.ToLower(acceptLanguage), "pt") {
		return PortugueseBR
	}
	return EnglishUS
}
