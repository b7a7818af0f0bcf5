package openai

import (
	"context"
	"fmt"
	"os"

	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
	oaiprovider "github.com/NeuralTrust/TrustModeration/pkg/infra/providers/openai"
	"github.com/openai/openai-go/v2"
	"github.com/valyala/fastjson"
)

// Transcriber sends audio files to the hosted Whisper model.
type Transcriber struct {
	client *openai.Client
	model  string
}

func NewTranscriber(apiKey, baseURL, model string) *Transcriber {
	if model == "" {
		model = "whisper-1"
	}
	return &Transcriber{client: oaiprovider.NewSDKClient(apiKey, baseURL), model: model}
}

func (t *Transcriber) Name() string { return "openai-whisper" }

func (t *Transcriber) Transcribe(ctx context.Context, path string) (moderation.Transcript, error) {
	f, err := os.Open(path)
	if err != nil {
		return moderation.Transcript{}, fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	resp, err := t.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:           f,
		Model:          openai.AudioModel(t.model),
		ResponseFormat: openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return moderation.Transcript{}, fmt.Errorf("openai transcription failed: %w", err)
	}

	tr := moderation.Transcript{Text: resp.Text}
	if raw := resp.RawJSON(); raw != "" {
		tr.Language, tr.Segments = parseVerbose(raw)
	}
	return tr, nil
}

// parseVerbose extracts the language and timed segments of a verbose_json reply.
func parseVerbose(raw string) (string, []moderation.TranscriptSegment) {
	var p fastjson.Parser
	v, err := p.Parse(raw)
	if err != nil {
		return "", nil
	}
	lang := string(v.GetStringBytes("language"))
	var segments []moderation.TranscriptSegment
	for _, s := range v.GetArray("segments") {
		segments = append(segments, moderation.TranscriptSegment{
			Start: s.GetFloat64("start"),
			End:   s.GetFloat64("end"),
			Text:  string(s.GetStringBytes("text")),
		})
	}
	return lang, segments
}
