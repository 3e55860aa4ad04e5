package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const ttsMakerDefaultEndpoint = "https://api.ttsmaker.com/v1/create-tts-order"

var ttsMakerSpeeds = map[string]float64{
	SpeedSlow:   0.75,
	SpeedNormal: 1.0,
	SpeedFast:   1.25,
}

// TTSMaker calls the TTSMaker order API, which answers with a hosted file URL.
type TTSMaker struct {
	token      string
	endpoint   string
	httpClient *http.Client
}

// NewTTSMaker creates a TTSMaker engine.
func NewTTSMaker(token, endpoint string) (*TTSMaker, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("ttsmaker token is not configured")
	}
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = ttsMakerDefaultEndpoint
	}
	return &TTSMaker{
		token:      token,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (t *TTSMaker) ID() string {
	return EngineTTSMaker
}

type ttsMakerOrder struct {
	Token       string  `json:"token"`
	Text        string  `json:"text"`
	VoiceID     int     `json:"voice_id"`
	AudioFormat string  `json:"audio_format"`
	AudioSpeed  float64 `json:"audio_speed"`
}

type ttsMakerResponse struct {
	Status       string `json:"status"`
	ErrorCode    string `json:"error_code"`
	ErrorDetails string `json:"error_details"`
	AudioFileURL string `json:"audio_file_url"`
}

// Validate checks the voice is a numeric TTSMaker id and the text is plain.
func (t *TTSMaker) Validate(request Request) error {
	_, err := ttsMakerVoiceID(request)
	return err
}

func ttsMakerVoiceID(request Request) (int, error) {
	voiceID, err := strconv.Atoi(strings.TrimSpace(request.Voice))
	if err != nil {
		return 0, fmt.Errorf("%w: ttsmaker voice must be a numeric id", ErrInvalidRequest)
	}
	if request.SSML {
		return 0, fmt.Errorf("%w: ttsmaker does not accept ssml", ErrInvalidRequest)
	}
	return voiceID, nil
}

func (t *TTSMaker) Synthesize(ctx context.Context, request Request) (*Result, error) {
	logger := engineLogger(ctx, t.ID(), request.Voice)

	voiceID, err := ttsMakerVoiceID(request)
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"text_length":  len([]rune(request.Text)),
		"text_preview": logSnippet(request.Text),
		"speed":        NormalizeSpeed(request.Speed),
	}).Info("tts_synthesize_start")

	payload, err := json.Marshal(ttsMakerOrder{
		Token:       t.token,
		Text:        request.Text,
		VoiceID:     voiceID,
		AudioFormat: "mp3",
		AudioSpeed:  ttsMakerSpeeds[NormalizeSpeed(request.Speed)],
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("ttsmaker: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		logger.WithError(err).Error("tts_synthesize_request_failed")
		return nil, fmt.Errorf("ttsmaker: request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		vendorErr := &VendorError{Engine: t.ID(), Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   logSnippet(vendorErr.Body),
		}).Error("tts_synthesize_vendor_error")
		return nil, vendorErr
	}

	var order ttsMakerResponse
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("ttsmaker: decode response: %w", err)
	}
	if !strings.EqualFold(order.Status, "success") || strings.TrimSpace(order.AudioFileURL) == "" {
		vendorErr := &VendorError{
			Engine: t.ID(),
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(order.ErrorCode + " " + order.ErrorDetails),
		}
		logger.WithField("body", logSnippet(vendorErr.Body)).Error("tts_synthesize_vendor_error")
		return nil, vendorErr
	}

	audioURL := normalizeHostedURL(order.AudioFileURL)
	logger.WithField("audio_url", audioURL).Info("tts_synthesize_completed")
	return &Result{URL: audioURL, ContentType: "audio/mp3"}, nil
}

// normalizeHostedURL turns protocol-relative links into https ones.
func normalizeHostedURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "//") {
		return "https:" + raw
	}
	return raw
}
