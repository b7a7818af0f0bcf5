package gemini

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
	geminiprovider "github.com/NeuralTrust/TrustModeration/pkg/infra/providers/gemini"
	"github.com/valyala/fastjson"
	"google.golang.org/genai"
)

const (
	defaultModel = "gemini-2.0-flash"

	transcribePrompt = `Transcribe the speech in this audio. Reply only with JSON of the form {"language": "<iso code>", "text": "<transcript>", "segments": [{"start": <seconds>, "end": <seconds>, "text": "<words>"}]}.`
)

var audioMIME = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mp3",
	".m4a":  "audio/aac",
	".aac":  "audio/aac",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
}

type generateFunc func(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error)

// Transcriber sends inline audio to a Gemini model and asks for a JSON
// transcript. Replies that are not JSON are taken as plain transcript text.
type Transcriber struct {
	generate generateFunc
	model    string
}

func NewTranscriber(ctx context.Context, apiKey, model string) (*Transcriber, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	cli, err := geminiprovider.NewSDKClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = defaultModel
	}
	return &Transcriber{generate: cli.Models.GenerateContent, model: model}, nil
}

func (t *Transcriber) Name() string { return "gemini" }

func (t *Transcriber) Transcribe(ctx context.Context, path string) (moderation.Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return moderation.Transcript{}, fmt.Errorf("read audio: %w", err)
	}
	mime, ok := audioMIME[strings.ToLower(filepath.Ext(path))]
	if !ok {
		mime = "audio/wav"
	}

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{Text: transcribePrompt},
			{InlineData: &genai.Blob{Data: data, MIMEType: mime}},
		},
	}}
	result, err := t.generate(ctx, t.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return moderation.Transcript{}, fmt.Errorf("gemini transcription failed: %w", err)
	}
	return parseTranscript(geminiprovider.StripFences(result.Text())), nil
}

func parseTranscript(reply string) moderation.Transcript {
	var p fastjson.Parser
	v, err := p.Parse(reply)
	if err != nil || v.Type() != fastjson.TypeObject {
		return moderation.Transcript{Text: strings.TrimSpace(reply)}
	}
	tr := moderation.Transcript{
		Text:     strings.TrimSpace(string(v.GetStringBytes("text"))),
		Language: string(v.GetStringBytes("language")),
	}
	for _, s := range v.GetArray("segments") {
		tr.Segments = append(tr.Segments, moderation.TranscriptSegment{
			Start: s.GetFloat64("start"),
			End:   s.GetFloat64("end"),
			Text:  strings.TrimSpace(string(s.GetStringBytes("text"))),
		})
	}
	return tr
}
