package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/notifyhub/cogbot/internal/domain"
)

type synthesizeRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

type synthesizeResponse struct {
	AudioURL string  `json:"audio_url"`
	Seconds  float64 `json:"duration_seconds"`
}

// HTTPSynthesizer renders speech through an HTTP TTS service that returns a
// URL to the generated audio.
type HTTPSynthesizer struct {
	url          string
	defaultVoice string
	httpClient   *http.Client
}

func NewHTTPSynthesizer(url, defaultVoice string, timeout time.Duration) *HTTPSynthesizer {
	return &HTTPSynthesizer{
		url:          url,
		defaultVoice: defaultVoice,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text, voice string) (domain.Track, error) {
	if voice == "" {
		voice = s.defaultVoice
	}

	var out synthesizeResponse
	if err := postJSON(ctx, s.httpClient, s.url, synthesizeRequest{Text: text, Voice: voice}, &out); err != nil {
		return domain.Track{}, fmt.Errorf("synthesize: %w", err)
	}
	if out.AudioURL == "" {
		return domain.Track{}, fmt.Errorf("synthesize: empty audio url")
	}

	return domain.Track{
		Title:     speechTitle(text),
		StreamURL: out.AudioURL,
		Duration:  time.Duration(out.Seconds * float64(time.Second)),
		Source:    domain.SourceSpeech,
	}, nil
}

func speechTitle(text string) string {
	const limit = 40
	if utf8.RuneCountInString(text) <= limit {
		return "TTS: " + text
	}
	return "TTS: " + string([]rune(text)[:limit]) + "…"
}

var _ Synthesizer = (*HTTPSynthesizer)(nil)
