package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "bare object",
			raw:  `{"channel": "email_reply"}`,
			want: `{"channel": "email_reply"}`,
		},
		{
			name: "surrounded by prose",
			raw:  "Sure! Here is the recommendation:\n{\"channel\": \"email_reply\"}\nLet me know if you need anything else.",
			want: `{"channel": "email_reply"}`,
		},
		{
			name: "fenced with language tag",
			raw:  "```json\n{\"channel\": \"email_reply\"}\n```",
			want: `{"channel": "email_reply"}`,
		},
		{
			name: "nested objects",
			raw:  `{"a": {"b": 1}, "c": 2} trailing`,
			want: `{"a": {"b": 1}, "c": 2}`,
		},
		{
			name: "braces inside strings",
			raw:  `{"message": "use {curly} braces"}`,
			want: `{"message": "use {curly} braces"}`,
		},
		{
			name: "no object",
			raw:  "I cannot answer that.",
			want: "",
		},
		{
			name: "truncated object returned for repair",
			raw:  `{"channel": "email_reply", "message": "hel`,
			want: `{"channel": "email_reply", "message": "hel`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSONObject(tt.raw))
		})
	}
}

func TestDecodeObject(t *testing.T) {
	type rec struct {
		Channel string `json:"channel"`
		Message string `json:"message"`
	}

	t.Run("well formed", func(t *testing.T) {
		var r rec
		err := DecodeObject("```json\n{\"channel\": \"email_reply\", \"message\": \"hi\"}\n```", &r)
		require.NoError(t, err)
		assert.Equal(t, "email_reply", r.Channel)
	})

	t.Run("repairs single quotes and trailing comma", func(t *testing.T) {
		var r rec
		err := DecodeObject(`{'channel': 'email_reply', 'message': 'hi',}`, &r)
		require.NoError(t, err)
		assert.Equal(t, "email_reply", r.Channel)
		assert.Equal(t, "hi", r.Message)
	})

	t.Run("repairs truncated object", func(t *testing.T) {
		var r rec
		err := DecodeObject(`{"channel": "email_reply", "message": "hi`, &r)
		require.NoError(t, err)
		assert.Equal(t, "email_reply", r.Channel)
	})

	t.Run("no object at all", func(t *testing.T) {
		var r rec
		assert.Error(t, DecodeObject("no json here", &r))
	})
}

func TestNormalizeLabel(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Negative", "Negative"},
		{"  Negative \n", "Negative"},
		{`"Negative"`, "Negative"},
		{"3. Billing or Refund Request", "Billing or Refund Request"},
		{"3) Billing or Refund Request", "Billing or Refund Request"},
		{"`resolved`", "resolved"},
		{"Technical Issue (Simple / Minor)", "Technical Issue (Simple / Minor)"},
		{"42", "42"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeLabel(tt.raw), "raw=%q", tt.raw)
	}
}
