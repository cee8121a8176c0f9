// Package transcribe defines the speech-to-text collaborator boundary.
package transcribe

import "context"

// Transcriber turns an audio file into text. ok=false means the engine had
// nothing usable (unavailable, unsupported audio); callers fall back to a
// placeholder and carry on.
type Transcriber interface {
	Transcribe(ctx context.Context, filePath, language string) (text string, ok bool, err error)
}
