package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/hyperifyio/docextract/internal/llm"
)

const visionPrompt = "Transcribe all text visible in this image. Output only the transcribed text, preserving line breaks. If there is no text, output nothing."

// Vision recognizes text by sending the image to a vision-capable chat model.
type Vision struct {
	Client llm.Client
	Model  string
	// MaxTokens caps the completion. Zero leaves it to the server.
	MaxTokens int
}

func (v *Vision) Name() string { return "llm" }

func (v *Vision) Recognize(ctx context.Context, imagePath string) (string, error) {
	if v.Client == nil {
		return "", errors.New("llm client not configured")
	}
	if strings.TrimSpace(v.Model) == "" {
		return "", errors.New("llm model not configured")
	}
	url, err := imageDataURL(imagePath)
	if err != nil {
		return "", err
	}
	req := openai.ChatCompletionRequest{
		Model:       v.Model,
		Temperature: 0,
		MaxTokens:   v.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: visionPrompt},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: url, Detail: openai.ImageURLDetailHigh}},
				},
			},
		},
	}
	resp, err := v.Client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("vision completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("vision completion: no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// imageDataURL returns a data URL for the image. PNG and JPEG are sent as-is;
// other formats (BMP, TIFF) are re-encoded to PNG since chat endpoints reject them.
func imageDataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data), nil
	case ".jpg", ".jpeg":
		return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data), nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
