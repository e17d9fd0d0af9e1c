package generation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeChatCompletion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		want    string
		wantErr error
	}{
		{
			name: "string content",
			body: `{"choices":[{"message":{"role":"assistant","content":"  Préchauffer le four.  "}}]}`,
			want: "Préchauffer le four.",
		},
		{
			name: "chunked content",
			body: `{"choices":[{"message":{"content":[{"type":"text","text":"Mélanger "},{"type":"text","text":"la farine."}]}}]}`,
			want: "Mélanger la farine.",
		},
		{
			name: "chunks carrying content",
			body: `{"choices":[{"message":{"content":[{"type":"text","content":"Cuire "},{"text":"20 minutes."}]}}]}`,
			want: "Cuire 20 minutes.",
		},
		{
			name:    "chunk without text",
			body:    `{"choices":[{"message":{"content":[{"type":"image_url"}]}}]}`,
			wantErr: ErrInvalidResponse,
		},
		{
			name: "first non-blank choice wins",
			body: `{"choices":[{"message":{"content":"   "}},{"message":{"content":"second"}}]}`,
			want: "second",
		},
		{
			name:    "blank content",
			body:    `{"choices":[{"message":{"content":""}}]}`,
			wantErr: ErrEmptyResponse,
		},
		{
			name:    "no choices",
			body:    `{"choices":[]}`,
			wantErr: ErrInvalidResponse,
		},
		{
			name:    "missing message",
			body:    `{"choices":[{"index":0}]}`,
			wantErr: ErrInvalidResponse,
		},
		{
			name:    "numeric content",
			body:    `{"choices":[{"message":{"content":42}}]}`,
			wantErr: ErrInvalidResponse,
		},
		{
			name:    "not json",
			body:    `upstream exploded`,
			wantErr: ErrInvalidResponse,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeChatCompletion([]byte(tc.body))
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNewUserPrompt(t *testing.T) {
	t.Parallel()

	req := NewUserPrompt("mistral-small-latest", "Écris la recette")
	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"model":"mistral-small-latest","messages":[{"role":"user","content":"Écris la recette"}]}`,
		string(data))
}

func TestStripCodeFence(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		in   string
		want string
	}{
		"plain text":          {in: "## Ingrédients\n- sel", want: "## Ingrédients\n- sel"},
		"markdown fence":      {in: "```markdown\n## Étapes\n1. Cuire\n```", want: "## Étapes\n1. Cuire"},
		"fence with trailing": {in: "```\nbody\n```\n\n", want: "body"},
		"only opening fence":  {in: "```md\nbody", want: "body"},
		"single line fence":   {in: "```body```", want: "body"},
		"surrounding spaces":  {in: "   texte   ", want: "texte"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, StripCodeFence(tc.in))
		})
	}
}
