package deepgram

import (
	"errors"
	"fmt"
	"io"
	"os"

	"foryou/internal/ports"
)

type audioSink interface {
	SendAudio(chunk []byte) error
}

// pumpAudio copies captured PCM into the stream until capture ends or the
// stream stops accepting audio. The first failure is reported on errs.
func pumpAudio(audio ports.AudioSession, stream audioSink, chunkSize int, errs chan<- error, done chan struct{}) {
	defer close(done)

	if chunkSize < 256 {
		chunkSize = defaultChunkSize
	}

	buf := make([]byte, chunkSize)
	for {
		n, err := audio.Read(buf)
		if n > 0 {
			if sendErr := stream.SendAudio(buf[:n]); sendErr != nil {
				if errors.Is(sendErr, errSendClosed) {
					return
				}
				report(errs, fmt.Errorf("failed to stream audio: %w", sendErr))
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				report(errs, fmt.Errorf("audio capture error: %w", err))
			}
			return
		}
	}
}

func report(errs chan<- error, err error) {
	select {
	case errs <- err:
	default:
	}
}
