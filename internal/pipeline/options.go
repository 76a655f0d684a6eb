// File path: internal/pipeline/options.go
package pipeline

import (
	"log/slog"

	"github.com/nicodishanthj/Katral_insight/internal/history"
)

type Option func(*Pipeline)

// WithHistory mirrors every appended message into recorder.
func WithHistory(recorder history.Recorder) Option {
	return func(p *Pipeline) {
		p.history = recorder
	}
}

// WithTopK sets how many knowledge items each category contributes.
func WithTopK(topK int) Option {
	return func(p *Pipeline) {
		if topK > 0 {
			p.topK = topK
		}
	}
}

// WithResponder replaces the conversational reply source.
func WithResponder(responder Responder) Option {
	return func(p *Pipeline) {
		if responder != nil {
			p.responder = responder
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}
