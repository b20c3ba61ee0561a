package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gameforge-server/internal/models"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ContentGenerator produces the initial game content and cover image.
type ContentGenerator interface {
	// GenerateContent returns the structured three-field generation result.
	// All fields are required; an incomplete response is an error.
	GenerateContent(ctx context.Context, model, description string) (title, html, tutorial string, err error)
	// GenerateImage returns a remote URL for an illustration of the game.
	GenerateImage(ctx context.Context, description string) (string, error)
}

const gameGenerationSystemPrompt = `You are a game generator. Given a game description, respond with a JSON object with exactly these fields:
- "title": a short catchy game title
- "html": a complete self-contained HTML5 game document. It must include <html> and <body> tags, render into a <canvas>, use only inline scripts and styles with no external resources, and report the player's score by calling safeAwardPoints(points).
- "tutorial": two or three sentences explaining how to play
All three fields are required and must be non-empty.`

var _ ContentGenerator = (*openAIContentGenerator)(nil)

type openAIContentGenerator struct {
	client *openai.Client
	logger *zap.Logger
}

func NewOpenAIContentGenerator(client *openai.Client, logger *zap.Logger) ContentGenerator {
	return &openAIContentGenerator{
		client: client,
		logger: logger.Named("OpenAIContentGenerator"),
	}
}

func (g *openAIContentGenerator) GenerateContent(ctx context.Context, model, description string) (string, string, string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: gameGenerationSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: description},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		g.logger.Error("Content generation request failed", zap.Error(err))
		return "", "", "", wrapGeneratorErr(err)
	}
	if len(resp.Choices) == 0 {
		return "", "", "", &models.UpstreamError{Message: "completion service returned no choices"}
	}

	var payload struct {
		Title    string `json:"title"`
		HTML     string `json:"html"`
		Tutorial string `json:"tutorial"`
	}
	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		g.logger.Error("Content generation returned malformed JSON", zap.Error(err))
		return "", "", "", &models.UpstreamError{Message: fmt.Sprintf("malformed generation response: %v", err)}
	}
	// A missing field is indistinguishable from a service failure downstream.
	if payload.Title == "" || payload.HTML == "" || payload.Tutorial == "" {
		g.logger.Error("Content generation response incomplete",
			zap.Bool("hasTitle", payload.Title != ""),
			zap.Bool("hasHTML", payload.HTML != ""),
			zap.Bool("hasTutorial", payload.Tutorial != ""))
		return "", "", "", &models.UpstreamError{Message: "generation response missing required fields"}
	}
	return payload.Title, payload.HTML, payload.Tutorial, nil
}

func (g *openAIContentGenerator) GenerateImage(ctx context.Context, description string) (string, error) {
	resp, err := g.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         fmt.Sprintf("Cover illustration for a casual web mini-game: %s. Bold colors, no text.", description),
		Model:          openai.CreateImageModelDallE3,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		g.logger.Error("Image generation request failed", zap.Error(err))
		return "", wrapGeneratorErr(err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", &models.UpstreamError{Message: "image service returned no image"}
	}
	return resp.Data[0].URL, nil
}

func wrapGeneratorErr(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &models.UpstreamError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	return &models.UpstreamError{Message: err.Error()}
}
