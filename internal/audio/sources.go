// Package audio discovers PulseAudio input sources, captures PCM from them and
// packages captured PCM as WAV.
package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const applicationName = "kaiwa"

// Source describes one Pulse input source.
type Source struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// Selection is the resolved capture source plus an optional fallback warning.
type Selection struct {
	Source   Source
	Warning  string
	Fallback bool
}

func newClient() (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName(applicationName),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return client, nil
}

// ListSources returns Pulse input sources with default/availability metadata.
func ListSources(_ context.Context) ([]Source, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}
	defaultID := defaultSource.ID()

	var infos pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &infos); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	sources := make([]Source, 0, len(infos))
	for _, info := range infos {
		if info == nil {
			continue
		}
		sources = append(sources, Source{
			ID:          info.SourceName,
			Description: info.Device,
			State:       sourceStateString(info.State),
			Available:   sourceAvailable(info),
			Muted:       info.Mute,
			Default:     info.SourceName == defaultID,
		})
	}
	return sources, nil
}

// SelectSource resolves the configured input/fallback against live sources.
func SelectSource(ctx context.Context, input string, fallback string) (Selection, error) {
	sources, err := ListSources(ctx)
	if err != nil {
		return Selection{}, err
	}
	return selectFromList(sources, input, fallback)
}

func selectFromList(sources []Source, input string, fallback string) (Selection, error) {
	if len(sources) == 0 {
		return Selection{}, errors.New("no audio input sources found")
	}

	input = normalizeTerm(input)
	fallback = normalizeTerm(fallback)

	var defaultSource, byInput, byFallback *Source
	for i := range sources {
		src := &sources[i]
		if src.Default {
			defaultSource = src
		}
		if byInput == nil && input != "" && sourceMatches(*src, input) {
			byInput = src
		}
		if byFallback == nil && fallback != "" && sourceMatches(*src, fallback) {
			byFallback = src
		}
	}

	primary := defaultSource
	switch {
	case input != "" && byInput == nil:
		return Selection{}, fmt.Errorf("audio.input %q did not match any source", input)
	case input != "":
		primary = byInput
	case defaultSource == nil:
		return Selection{}, errors.New("default audio source is unavailable")
	}

	if usable(*primary) {
		return Selection{Source: *primary}, nil
	}

	reason := "unavailable"
	if primary.Muted {
		reason = "muted"
	}

	alternate := defaultSource
	if fallback != "" {
		if byFallback == nil {
			return Selection{}, fmt.Errorf("audio.input %q is %s and fallback %q not found", primary.ID, reason, fallback)
		}
		alternate = byFallback
	}
	if alternate == nil {
		return Selection{}, fmt.Errorf("audio.input %q is %s and no default source exists", primary.ID, reason)
	}
	if !alternate.Available {
		return Selection{}, fmt.Errorf("audio fallback %q is not available", alternate.ID)
	}
	if alternate.Muted {
		return Selection{}, fmt.Errorf("audio fallback %q is muted", alternate.ID)
	}

	return Selection{
		Source:   *alternate,
		Warning:  fmt.Sprintf("audio.input %q is %s; falling back to %q", primary.ID, reason, alternate.ID),
		Fallback: primary.ID != alternate.ID,
	}, nil
}

// normalizeTerm lowercases a selector; "default" and blank select the server default.
func normalizeTerm(term string) string {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "default" {
		return ""
	}
	return term
}

func usable(src Source) bool {
	return src.Available && !src.Muted
}

func sourceMatches(src Source, term string) bool {
	if term == "" {
		return false
	}
	return strings.Contains(strings.ToLower(src.ID), term) ||
		strings.Contains(strings.ToLower(src.Description), term)
}

func sourceStateString(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

func sourceAvailable(info *pulseproto.GetSourceInfoReply) bool {
	if info == nil {
		return false
	}
	if len(info.Ports) == 0 {
		return true
	}
	for _, port := range info.Ports {
		if port.Name != info.ActivePortName {
			continue
		}
		// PulseAudio values: unknown=0, no=1, yes=2.
		return port.Available == 0 || port.Available == 2
	}
	return true
}
