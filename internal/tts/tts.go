// Package tts contains the speech-synthesis vendor clients.
package tts

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const (
	EngineAzure    = "azure"
	EngineTTSMaker = "ttsmaker"

	SpeedSlow   = "slow"
	SpeedNormal = "normal"
	SpeedFast   = "fast"
)

var (
	// ErrUnknownEngine is returned for engine names outside the supported set.
	ErrUnknownEngine = errors.New("unknown tts engine")
	// ErrEngineNotConfigured is returned for a supported engine without credentials.
	ErrEngineNotConfigured = errors.New("tts engine is not configured")
	// ErrInvalidRequest marks input the vendor cannot accept.
	ErrInvalidRequest = errors.New("invalid tts request")
	// ErrAudioTooLarge is returned when a vendor answers with more audio than we buffer.
	ErrAudioTooLarge = errors.New("tts audio too large")
)

// Request is a vendor-neutral synthesis request.
type Request struct {
	Text  string
	Voice string
	// SSML marks Text as a complete SSML document.
	SSML  bool
	Speed string
}

// Result carries either inline audio bytes or a vendor-hosted URL.
type Result struct {
	Audio       []byte
	URL         string
	ContentType string
}

// PlayableURL returns a URL the browser can play directly.
func (r *Result) PlayableURL() string {
	if r == nil {
		return ""
	}
	if len(r.Audio) > 0 {
		contentType := r.ContentType
		if contentType == "" {
			contentType = "audio/mp3"
		}
		return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(r.Audio)
	}
	return r.URL
}

// Engine is one speech-synthesis vendor. Validate rejects input the vendor
// cannot accept without any network call.
type Engine interface {
	ID() string
	Validate(request Request) error
	Synthesize(ctx context.Context, request Request) (*Result, error)
}

// VendorError captures a non-2xx vendor response for diagnostics.
type VendorError struct {
	Engine string
	Status int
	Body   string
}

func (e *VendorError) Error() string {
	return fmt.Sprintf("%s: vendor returned status %d: %s", e.Engine, e.Status, logSnippet(e.Body))
}

// NormalizeSpeed maps user input onto slow, normal or fast.
func NormalizeSpeed(speed string) string {
	switch strings.ToLower(strings.TrimSpace(speed)) {
	case SpeedSlow:
		return SpeedSlow
	case SpeedFast:
		return SpeedFast
	default:
		return SpeedNormal
	}
}

// Registry resolves engines by name.
type Registry struct {
	engines map[string]Engine
}

// NewRegistry builds a registry from configured engines. Nil engines are
// skipped so that a missing credential surfaces as ErrEngineNotConfigured.
func NewRegistry(engines ...Engine) *Registry {
	r := &Registry{engines: make(map[string]Engine, len(engines))}
	for _, engine := range engines {
		if engine == nil {
			continue
		}
		r.engines[engine.ID()] = engine
	}
	return r
}

// Get returns the engine registered under name.
func (r *Registry) Get(name string) (Engine, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	switch key {
	case EngineAzure, EngineTTSMaker:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
	if r != nil {
		if engine, ok := r.engines[key]; ok {
			return engine, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrEngineNotConfigured, key)
}
