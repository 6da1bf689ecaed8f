package speech

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"

	"github.com/klhlearn/peerlearn-backend/internal/platform/logger"
)

// Provider is the external transcription collaborator. It is optional:
// when unconfigured the enrichment job falls back to the offline
// heuristic, so construction failures are reported but never fatal.
type Provider interface {
	// TranscribeURI runs speech-to-text against an object the provider
	// can reach directly (a gs:// URI).
	TranscribeURI(ctx context.Context, uri string) (string, error)
	Close() error
}

type provider struct {
	log      *logger.Logger
	client   *speech.Client
	language string
	timeout  time.Duration
}

func NewProvider(log *logger.Logger) (Provider, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	if creds == "" {
		return nil, fmt.Errorf("missing GOOGLE_APPLICATION_CREDENTIALS")
	}

	language := strings.TrimSpace(os.Getenv("SPEECH_LANGUAGE_CODE"))
	if language == "" {
		language = "en-US"
	}

	ctx := context.Background()
	client, err := speech.NewClient(ctx, option.WithCredentialsFile(creds))
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}

	return &provider{
		log:      log.With("service", "SpeechProvider"),
		client:   client,
		language: language,
		timeout:  15 * time.Minute,
	}, nil
}

func (p *provider) TranscribeURI(ctx context.Context, uri string) (string, error) {
	uri = strings.TrimSpace(uri)
	if !strings.HasPrefix(uri, "gs://") {
		return "", fmt.Errorf("transcription requires a gs:// URI, got %q", uri)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	op, err := p.client.LongRunningRecognize(ctx, &speechpb.LongRunningRecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			LanguageCode:               p.language,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Uri{Uri: uri},
		},
	})
	if err != nil {
		return "", fmt.Errorf("start recognition: %w", err)
	}

	resp, err := op.Wait(ctx)
	if err != nil {
		return "", fmt.Errorf("recognition wait: %w", err)
	}

	var sb strings.Builder
	for _, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		text := strings.TrimSpace(alts[0].GetTranscript())
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(text)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("recognition produced no transcript")
	}
	p.log.Info("Transcription complete", "uri", uri, "chars", sb.Len())
	return sb.String(), nil
}

func (p *provider) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}
