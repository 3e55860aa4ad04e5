package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	azureOutputFormat = "audio-24khz-48kbitrate-mono-mp3"
	maxAudioBytes     = 10 << 20
)

// Azure calls the Azure Cognitive Services speech REST endpoint.
type Azure struct {
	key        string
	endpoint   string
	httpClient *http.Client
}

// NewAzure creates an Azure engine. An empty endpoint is derived from region.
func NewAzure(key, region, endpoint string) (*Azure, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("azure speech key is not configured")
	}
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		region = strings.TrimSpace(region)
		if region == "" {
			region = "eastus"
		}
		endpoint = fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", region)
	}
	return &Azure{
		key:        key,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (a *Azure) ID() string {
	return EngineAzure
}

// Validate requires a voice name unless the caller supplies a full SSML document.
func (a *Azure) Validate(request Request) error {
	if strings.TrimSpace(request.Text) == "" {
		return fmt.Errorf("%w: text is empty", ErrInvalidRequest)
	}
	if !request.SSML && strings.TrimSpace(request.Voice) == "" {
		return fmt.Errorf("%w: azure voice is empty", ErrInvalidRequest)
	}
	return nil
}

func (a *Azure) Synthesize(ctx context.Context, request Request) (*Result, error) {
	logger := engineLogger(ctx, a.ID(), request.Voice)
	logger.WithFields(logrus.Fields{
		"text_length":  len([]rune(request.Text)),
		"text_preview": logSnippet(request.Text),
		"ssml":         request.SSML,
		"speed":        NormalizeSpeed(request.Speed),
	}).Info("tts_synthesize_start")

	body := request.Text
	if !request.SSML {
		body = BuildSSML(request.Text, request.Voice, request.Speed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewBufferString(body))
	if err != nil {
		return nil, fmt.Errorf("azure: create request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", a.key)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", azureOutputFormat)
	req.Header.Set("User-Agent", "readaloud")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		logger.WithError(err).Error("tts_synthesize_request_failed")
		return nil, fmt.Errorf("azure: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		vendorErr := &VendorError{Engine: a.ID(), Status: resp.StatusCode, Body: strings.TrimSpace(string(text))}
		logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   logSnippet(vendorErr.Body),
		}).Error("tts_synthesize_vendor_error")
		return nil, vendorErr
	}

	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes+1))
	if err != nil {
		return nil, fmt.Errorf("azure: read audio: %w", err)
	}
	if len(audio) > maxAudioBytes {
		logger.WithField("limit_bytes", maxAudioBytes).Error("tts_synthesize_audio_too_large")
		return nil, fmt.Errorf("%w: azure audio exceeds %d bytes", ErrAudioTooLarge, maxAudioBytes)
	}
	if len(audio) == 0 {
		return nil, &VendorError{Engine: a.ID(), Status: resp.StatusCode, Body: "empty audio payload"}
	}

	logger.WithField("audio_bytes", len(audio)).Info("tts_synthesize_completed")
	return &Result{Audio: audio, ContentType: "audio/mp3"}, nil
}
