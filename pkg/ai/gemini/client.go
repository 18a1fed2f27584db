package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"

	"lyrics-collector/pkg/ai"
)

const DefaultModel = "gemini-2.5-flash"

var _ ai.AiInterface = (*gemini)(nil)

type gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini 创建 Gemini 客户端，modelName 为空时使用默认模型
func NewGemini(ctx context.Context, apiKey, modelName string) (*gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	return &gemini{client: client, model: client.GenerativeModel(modelName)}, nil
}

func (g *gemini) Name() string {
	return "gemini"
}

func (g *gemini) HandleText(ctx context.Context, msg string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(msg))
	if err != nil {
		log.Error().Err(err).Msg("could not get response from gemini")
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}

// Close 释放底层连接
func (g *gemini) Close() error {
	return g.client.Close()
}
