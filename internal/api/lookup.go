package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rbright/kaiwa/internal/intent"
)

type translateRequest struct {
	Text       string `json:"text"`
	TargetLang string `json:"target_lang"`
}

type translateResponse struct {
	TranslatedText string `json:"translated_text"`
}

// Translate renders text into target ("en" or "ja").
func (c *Client) Translate(ctx context.Context, text string, target string) (string, error) {
	var out translateResponse
	if err := c.postJSON(ctx, pathTranslate, translateRequest{Text: text, TargetLang: target}, &out); err != nil {
		return "", err
	}
	return out.TranslatedText, nil
}

type weatherResponse struct {
	Location           string   `json:"location"`
	Temperature        float64  `json:"temperature"`
	WeatherDescription string   `json:"weather_description"`
	Description        string   `json:"description"`
	Humidity           *float64 `json:"humidity"`
	WindSpeed          *float64 `json:"wind_speed"`
}

// Weather looks up current conditions for location.
func (c *Client) Weather(ctx context.Context, location string) (intent.Weather, error) {
	query := url.Values{}
	query.Set("location", location)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(pathWeather, query), nil)
	if err != nil {
		return intent.Weather{}, fmt.Errorf("create %s request: %w", pathWeather, err)
	}

	var out weatherResponse
	if err := c.doJSON(req, pathWeather, &out); err != nil {
		return intent.Weather{}, err
	}

	description := out.WeatherDescription
	if description == "" {
		description = out.Description
	}
	return intent.Weather{
		Location:    out.Location,
		Temperature: out.Temperature,
		Condition:   description,
		Humidity:    out.Humidity,
		WindSpeed:   out.WindSpeed,
	}, nil
}

// SpeechOptions selects the synthesis voice and output format.
type SpeechOptions struct {
	Model     string `json:"model,omitempty"`
	Encoding  string `json:"encoding,omitempty"`
	Container string `json:"container,omitempty"`
}

type speechRequest struct {
	Text string `json:"text"`
	SpeechOptions
}

// Speech is a synthesized audio payload.
type Speech struct {
	Audio       []byte
	ContentType string
}

// TextToSpeech synthesizes text and returns the binary audio payload.
func (c *Client) TextToSpeech(ctx context.Context, text string, opts SpeechOptions) (Speech, error) {
	if strings.TrimSpace(text) == "" {
		return Speech{}, fmt.Errorf("text to speech: empty text")
	}

	req, err := c.newJSONRequest(ctx, pathSpeech, speechRequest{Text: text, SpeechOptions: opts})
	if err != nil {
		return Speech{}, err
	}

	resp, err := c.do(req, pathSpeech)
	if err != nil {
		return Speech{}, err
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return Speech{}, fmt.Errorf("read %s response: %w", pathSpeech, err)
	}
	return Speech{Audio: audio, ContentType: resp.Header.Get("Content-Type")}, nil
}
