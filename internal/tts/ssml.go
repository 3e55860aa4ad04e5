package tts

import (
	"bytes"
	"encoding/xml"
	"strings"
)

var prosodyRates = map[string]string{
	SpeedSlow:   "-25%",
	SpeedNormal: "0%",
	SpeedFast:   "+25%",
}

// BuildSSML wraps plain text in a minimal SSML document for voice.
func BuildSSML(text, voice, speed string) string {
	var escaped bytes.Buffer
	_ = xml.EscapeText(&escaped, []byte(text))

	var voiceAttr bytes.Buffer
	_ = xml.EscapeText(&voiceAttr, []byte(voice))

	var b strings.Builder
	b.WriteString(`<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xml:lang="`)
	b.WriteString(voiceLocale(voice))
	b.WriteString(`"><voice name="`)
	b.Write(voiceAttr.Bytes())
	b.WriteString(`"><prosody rate="`)
	b.WriteString(prosodyRates[NormalizeSpeed(speed)])
	b.WriteString(`">`)
	b.Write(escaped.Bytes())
	b.WriteString(`</prosody></voice></speak>`)
	return b.String()
}

// voiceLocale extracts "en-US" from names like "en-US-CoraMultilingualNeural".
func voiceLocale(voice string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) >= 2 && len(parts[0]) == 2 && len(parts[1]) == 2 {
		return parts[0] + "-" + strings.ToUpper(parts[1])
	}
	return "en-US"
}
