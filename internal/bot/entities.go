package bot

import (
	"strings"
	"unicode/utf16"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Entity offsets and lengths count UTF-16 code units.

func entityText(text string, e tgbotapi.MessageEntity) string {
	u := utf16.Encode([]rune(text))
	if e.Offset < 0 || e.Length <= 0 || e.Offset+e.Length > len(u) {
		return ""
	}
	return string(utf16.Decode(u[e.Offset : e.Offset+e.Length]))
}

// textAfter returns the trimmed message text following the entity.
func textAfter(text string, e tgbotapi.MessageEntity) string {
	u := utf16.Encode([]rune(text))
	end := e.Offset + e.Length
	if e.Offset < 0 || end > len(u) {
		return ""
	}
	return strings.TrimSpace(string(utf16.Decode(u[end:])))
}

// commandName turns "/All@helper_bot" into "all". Commands addressed to a
// different bot are rejected.
func commandName(command, botUsername string) (string, bool) {
	if !strings.HasPrefix(command, "/") {
		return "", false
	}
	name, target, addressed := strings.Cut(command[1:], "@")
	if addressed && botUsername != "" && !strings.EqualFold(target, botUsername) {
		return "", false
	}
	if name == "" {
		return "", false
	}
	return strings.ToLower(name), true
}
