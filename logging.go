package main

import (
	"io"
	"log"
	"log/slog"
	"strings"

	slogmulti "github.com/samber/slog-multi"
	slogjournal "github.com/systemd/slog-journal"
)

// newLogger returns the logger for run events. Events go to w, and also to
// the systemd journal if journal is set.
func newLogger(w io.Writer, level slog.Level, journal bool) *slog.Logger {
	handlers := []slog.Handler{
		slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}),
	}
	if journal {
		h, err := slogjournal.NewHandler(&slogjournal.Options{
			ReplaceGroup: journalKey,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				a.Key = journalKey(a.Key)
				return a
			},
		})
		if err != nil {
			log.Printf("journal: %v", err)
		} else {
			handlers = append(handlers, h)
		}
	}
	return slog.New(slogmulti.Fanout(handlers...))
}

// journalKey maps an attribute key to a valid journal field name.
func journalKey(key string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, strings.ToUpper(key))
}
