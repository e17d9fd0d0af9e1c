package generation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Message is a single chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the provider chat/completion request body. The same value is
// embedded in batch manifest lines and sent on the synchronous path, so both
// paths produce output of the same quality and format.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

// NewUserPrompt builds a single-turn chat request.
func NewUserPrompt(model, prompt string) ChatRequest {
	return ChatRequest{
		Model:    model,
		Messages: []Message{{Role: "user", Content: prompt}},
	}
}

// chatCompletionSchema is the single accepted shape of a chat completion body.
// Message content is either a string or a list of chunks; a chunk is a
// string or an object carrying its text in "text" or "content".
const chatCompletionSchema = `{
  "type": "object",
  "required": ["choices"],
  "properties": {
    "choices": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["message"],
        "properties": {
          "message": {
            "type": "object",
            "required": ["content"],
            "properties": {
              "content": {
                "anyOf": [
                  {"type": "string"},
                  {
                    "type": "array",
                    "items": {
                      "anyOf": [
                        {"type": "string"},
                        {"type": "object", "required": ["text"], "properties": {"text": {"type": "string"}}},
                        {"type": "object", "required": ["content"], "properties": {"content": {"type": "string"}}}
                      ]
                    }
                  }
                ]
              }
            }
          }
        }
      }
    }
  }
}`

var chatSchema = jsonschema.MustCompileString("chat_completion.json", chatCompletionSchema)

// chatCompletion mirrors chatCompletionSchema
type chatCompletion struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type contentChunk struct {
	Text    *string `json:"text"`
	Content *string `json:"content"`
}

func (c contentChunk) value() string {
	switch {
	case c.Text != nil:
		return *c.Text
	case c.Content != nil:
		return *c.Content
	}
	return ""
}

// DecodeChatCompletion validates a chat completion body against the response
// schema and returns the text of the first choice with non-blank content.
// Any schema violation is reported as ErrInvalidResponse; a well-formed body
// without text is reported as ErrEmptyResponse.
func DecodeChatCompletion(body []byte) (string, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("%w: decode chat completion: %v", ErrInvalidResponse, err)
	}
	if err := chatSchema.Validate(doc); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	var cc chatCompletion
	if err := json.Unmarshal(body, &cc); err != nil {
		return "", fmt.Errorf("%w: decode chat completion: %v", ErrInvalidResponse, err)
	}

	for _, choice := range cc.Choices {
		text, err := contentText(choice.Message.Content)
		if err != nil {
			return "", err
		}
		if text = strings.TrimSpace(text); text != "" {
			return text, nil
		}
	}
	return "", ErrEmptyResponse
}

func contentText(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return "", fmt.Errorf("%w: message content: %v", ErrInvalidResponse, err)
	}

	var b strings.Builder
	for _, part := range parts {
		if err := json.Unmarshal(part, &s); err == nil {
			b.WriteString(s)
			continue
		}
		var chunk contentChunk
		if err := json.Unmarshal(part, &chunk); err != nil {
			return "", fmt.Errorf("%w: content chunk: %v", ErrInvalidResponse, err)
		}
		b.WriteString(chunk.value())
	}
	return b.String(), nil
}

// StripCodeFence removes an enclosing Markdown code fence the model sometimes
// wraps its answer in, e.g. "```markdown\n...\n```".
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		if i := strings.Index(text, "\n"); i >= 0 {
			text = text[i+1:]
		} else {
			text = strings.TrimPrefix(text, "```")
		}
	}
	if strings.HasSuffix(strings.TrimSpace(text), "```") {
		text = strings.TrimSpace(text)
		if i := strings.LastIndex(text, "\n"); i >= 0 {
			text = text[:i]
		} else {
			text = strings.TrimSuffix(text, "```")
		}
	}
	return strings.TrimSpace(text)
}
