package handlers

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
)

func TestSenderName(t *testing.T) {
	withFrom := &tgbotapi.Message{From: &tgbotapi.User{UserName: "bob"}}
	assert.Equal(t, "bob", senderName(withFrom))

	// Channel posts carry no sender; labeling them must not panic.
	assert.Equal(t, "channel", senderName(&tgbotapi.Message{}))
}

func TestParseUsername(t *testing.T) {
	tests := []struct {
		name string
		args string
		want string
		ok   bool
	}{
		{"plain", "bobsmith", "bobsmith", true},
		{"with at", "@bobsmith", "bobsmith", true},
		{"surrounding space", "  @bobsmith  ", "bobsmith", true},
		{"too short", "ab", "", false},
		{"invalid characters", "bob-smith", "", false},
		{"empty", "", "", false},
		{"multiple arguments", "bob carol", "", false},
		{"underscores and digits", "bob_42", "bob_42", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseUsername(tt.args)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
