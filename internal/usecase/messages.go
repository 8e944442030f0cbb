package usecase

import (
	"fmt"

	"foryou/internal/domain"
)

func statusMessage(reason domain.SessionStateReason, locale string, detail string) string {
	switch reason {
	case domain.SessionReasonIdle:
		return "Idle"
	case domain.SessionReasonStartRequested:
		return "Starting..."
	case domain.SessionReasonListening:
		return "Listening..."
	case domain.SessionReasonListeningFallback:
		return fmt.Sprintf("Listening (fallback language %s)...", locale)
	case domain.SessionReasonStopRequested:
		return "Stopping..."
	case domain.SessionReasonTryingFallback:
		return "Language not supported: trying fallback locales..."
	case domain.SessionReasonFallbackCancelled:
		return "Fallback cancelled. Stopping..."
	case domain.SessionReasonFallbackStartFailed:
		return "Fallback start failed: " + detail
	case domain.SessionReasonStartFailed:
		return "Could not start recording: " + detail
	case domain.SessionReasonLanguageNotSupported:
		return "Speech recognition language not supported by this engine."
	case domain.SessionReasonEngineError:
		return "Error: " + detail
	default:
		return ""
	}
}

func errorDetail(kind domain.EngineErrorKind, message string) string {
	label := string(kind)
	if label == "" {
		label = "unknown"
	}
	if message == "" {
		return label
	}
	return fmt.Sprintf("%s (%s)", label, message)
}
