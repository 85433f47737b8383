package models

// AppSettings carries per-provider credential and endpoint overrides plus
// the free-text user profile injected into every system instruction. It is
// global, not chat-scoped, and mutated only through an explicit save.
type AppSettings struct {
	OpenAI           string `json:"openai"`
	DeepSeek         string `json:"deepseek"`
	OpenAIEndpoint   string `json:"openaiEndpoint,omitempty"`
	DeepSeekEndpoint string `json:"deepseekEndpoint,omitempty"`
	UserProfile      string `json:"userProfile,omitempty"`
}

// Masked returns a copy safe to hand to clients: stored keys are reduced to
// a presence marker so they never travel back over the wire.
func (s AppSettings) Masked() AppSettings {
	out := s
	out.OpenAI = maskKey(s.OpenAI)
	out.DeepSeek = maskKey(s.DeepSeek)
	return out
}

func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
