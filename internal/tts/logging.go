package tts

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

const logSnippetLimit = 120

func engineLogger(ctx context.Context, engine, voice string) *logrus.Entry {
	fields := logrus.Fields{
		"engine": engine,
	}
	if trimmedVoice := strings.TrimSpace(voice); trimmedVoice != "" {
		fields["voice"] = trimmedVoice
	}

	entry := logrus.WithFields(fields)
	if ctx != nil {
		entry = entry.WithContext(ctx)
	}
	return entry
}

func logSnippet(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}

	runes := []rune(value)
	if len(runes) <= logSnippetLimit {
		return value
	}

	return string(runes[:logSnippetLimit]) + "..."
}
