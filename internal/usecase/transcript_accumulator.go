package usecase

import (
	"strings"

	"foryou/internal/domain"
)

const interimSeparator = "\n"

// transcriptAccumulator merges final and interim results of one session.
// It is not safe for concurrent use; the controller serializes access.
type transcriptAccumulator struct {
	final   strings.Builder
	interim string
}

func newTranscriptAccumulator() *transcriptAccumulator {
	return &transcriptAccumulator{}
}

func (a *transcriptAccumulator) Reset() {
	a.final.Reset()
	a.interim = ""
}

// Merge applies the changed tail of event and returns the display text.
func (a *transcriptAccumulator) Merge(event domain.ResultEvent) string {
	start := event.Index
	if start < 0 {
		start = 0
	}
	if start > len(event.Results) {
		start = len(event.Results)
	}

	var interim strings.Builder
	for _, result := range event.Results[start:] {
		if result.IsFinal {
			a.final.WriteString(result.Transcript)
			continue
		}
		interim.WriteString(result.Transcript)
	}
	a.interim = interim.String()

	return a.DisplayText()
}

func (a *transcriptAccumulator) FinalText() string {
	return a.final.String()
}

func (a *transcriptAccumulator) InterimText() string {
	return a.interim
}

func (a *transcriptAccumulator) DisplayText() string {
	if a.interim == "" {
		return a.final.String()
	}
	return a.final.String() + interimSeparator + a.interim
}
