package ai

import (
	"saas-chatbot-backend/internal/domain/ports/adapter"

	"github.com/pkoukk/tiktoken-go"
)

// estimateTokens counts prompt tokens with tiktoken. Unknown model names fall
// back to cl100k_base, which is close enough for the growth telemetry this
// feeds.
func estimateTokens(model string, messages []adapter.Message) (int, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return 0, err
		}
	}

	// ~4 tokens of chat framing per message, per OpenAI's counting guide.
	total := 0
	for _, m := range messages {
		total += 4
		total += len(enc.Encode(m.Role, nil, nil))
		total += len(enc.Encode(m.Content, nil, nil))
	}
	return total + 2, nil
}
