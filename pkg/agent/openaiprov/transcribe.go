package openaiprov

import (
	"bytes"
	"context"
	"fmt"

	"github.com/openai/openai-go"
)

// Transcribe turns a voice note into text with Whisper. filename carries the
// extension the API uses to pick a decoder; contentType comes from the media
// fetch.
func (p *Provider) Transcribe(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	resp, err := p.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(data), filename, contentType),
		Model: openai.AudioModelWhisper1,
	})
	if err != nil {
		return "", fmt.Errorf("transcribe audio: %w", err)
	}
	return resp.Text, nil
}
