package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/rbright/kaiwa/internal/config"
	"github.com/rbright/kaiwa/internal/conversation"
)

// commandAsk runs one text turn in a throwaway session and prints the reply in
// the configured display language.
func (r Runner) commandAsk(ctx context.Context, cfg config.Config, logger *slog.Logger, text string) int {
	ctrl, err := r.newSession(cfg, logger, false, nil)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return exitFailure
	}
	defer ctrl.Close()

	if display := conversation.Language(cfg.Session.DisplayLanguage); display != ctrl.DisplayLanguage() {
		if _, err := ctrl.SetDisplayLanguage(ctx, display); err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return exitFailure
		}
	}

	result, err := ctrl.SubmitText(ctx, text)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return exitFailure
	}
	reply, ok := result.Reply()
	if !ok {
		fmt.Fprintln(r.Stderr, "error: no reply")
		return exitFailure
	}
	for _, l := range ctrl.Render() {
		if l.ID == reply.ID {
			fmt.Fprintln(r.Stdout, l.Text)
			break
		}
	}
	return exitOK
}

func (r Runner) commandSpeak(ctx context.Context, cfg config.Config, logger *slog.Logger, text, out string) int {
	client, err := newClient(cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return exitFailure
	}

	speech, err := client.TextToSpeech(ctx, text, speechOptions(cfg))
	if err != nil {
		logger.Error("text to speech failed", "error", err.Error())
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return exitFailure
	}

	if strings.TrimSpace(out) == "" {
		out = "speech." + speechExt(speech.ContentType, cfg.TTS.Container)
	}
	if err := os.WriteFile(out, speech.Audio, 0o644); err != nil {
		fmt.Fprintf(r.Stderr, "error: write speech: %v\n", err)
		return exitFailure
	}
	fmt.Fprintln(r.Stdout, out)
	return exitOK
}

// speechExt picks a file extension from the configured container, then the
// response content type.
func speechExt(contentType, container string) string {
	if container = strings.TrimSpace(container); container != "" {
		return container
	}
	mediaType, _, _ := strings.Cut(contentType, ";")
	switch strings.TrimSpace(strings.ToLower(mediaType)) {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return "wav"
	case "audio/ogg":
		return "ogg"
	case "audio/webm":
		return "webm"
	case "audio/flac":
		return "flac"
	default:
		return "mp3"
	}
}
