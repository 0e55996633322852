package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/rbright/kaiwa/internal/conversation"
)

const (
	pathChat      = "/api/chat"
	pathAssist    = "/api/assist"
	pathTranslate = "/api/translate"
	pathWeather   = "/api/weather"
	pathSpeech    = "/api/text-to-speech"
)

type chatRequest struct {
	Message             string               `json:"message"`
	ConversationHistory []conversation.Entry `json:"conversation_history"`
	SystemPrompt        string               `json:"system_prompt,omitempty"`
}

// ChatResponse is the /api/chat reply.
type ChatResponse struct {
	Response            string               `json:"response"`
	ConversationHistory []conversation.Entry `json:"conversation_history"`
}

// Chat sends one text turn with the prior history.
func (c *Client) Chat(ctx context.Context, message string, history []conversation.Entry) (ChatResponse, error) {
	if history == nil {
		history = []conversation.Entry{}
	}
	var out ChatResponse
	err := c.postJSON(ctx, pathChat, chatRequest{
		Message:             message,
		ConversationHistory: history,
		SystemPrompt:        c.systemPrompt,
	}, &out)
	return out, err
}

// AssistRequest is one multipart /api/assist call. Either Message or Audio is set.
type AssistRequest struct {
	Message   string
	Audio     []byte
	AudioName string
	History   []conversation.Entry
}

// AssistResponse is the /api/assist reply.
type AssistResponse struct {
	InputType           string               `json:"input_type"`
	TranscribedText     string               `json:"transcribed_text,omitempty"`
	Response            string               `json:"response"`
	ConversationHistory []conversation.Entry `json:"conversation_history"`
}

// Assist uploads a text or audio turn. Cancelling ctx aborts the upload.
func (c *Client) Assist(ctx context.Context, in AssistRequest) (AssistResponse, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if in.Message != "" {
		_ = writer.WriteField("message", in.Message)
	}
	if in.Audio != nil {
		name := in.AudioName
		if name == "" {
			name = "recording.wav"
		}
		part, err := writer.CreateFormFile("audio_file", name)
		if err != nil {
			return AssistResponse{}, fmt.Errorf("create audio part: %w", err)
		}
		if _, err := part.Write(in.Audio); err != nil {
			return AssistResponse{}, fmt.Errorf("write audio part: %w", err)
		}
	}

	history := in.History
	if history == nil {
		history = []conversation.Entry{}
	}
	encoded, err := json.Marshal(history)
	if err != nil {
		return AssistResponse{}, fmt.Errorf("marshal history: %w", err)
	}
	_ = writer.WriteField("conversation_history", string(encoded))

	if c.systemPrompt != "" {
		_ = writer.WriteField("system_prompt", c.systemPrompt)
	}
	if err := writer.Close(); err != nil {
		return AssistResponse{}, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(pathAssist, nil), body)
	if err != nil {
		return AssistResponse{}, fmt.Errorf("create %s request: %w", pathAssist, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var out AssistResponse
	if err := c.doJSON(req, pathAssist, &out); err != nil {
		return AssistResponse{}, err
	}
	return out, nil
}
