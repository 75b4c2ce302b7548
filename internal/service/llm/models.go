package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/ashwinyue/next-dataset/internal/config"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// NewChatModel 按档位创建 ChatModel
func NewChatModel(ctx context.Context, cfg *config.Config, profile Profile) (model.BaseChatModel, error) {
	aiCfg := cfg.AI

	var pc config.ProfileConfig
	switch profile {
	case ProfileCreative:
		pc = aiCfg.Creative
	case ProfileFast:
		pc = aiCfg.Fast
	default:
		return nil, fmt.Errorf("unknown profile: %s", profile)
	}

	mc := &openai.ChatModelConfig{
		Model:   pc.Model,
		Timeout: time.Duration(pc.Timeout) * time.Second,
	}

	switch aiCfg.Provider {
	case "openai":
		mc.APIKey = aiCfg.OpenAI.APIKey
		mc.BaseURL = aiCfg.OpenAI.BaseURL
		mc.ByAzure = aiCfg.OpenAI.ByAzure
		if mc.ByAzure {
			mc.APIVersion = aiCfg.OpenAI.APIVersion
		}
	case "deepseek":
		mc.APIKey = aiCfg.DeepSeek.APIKey
		mc.BaseURL = aiCfg.DeepSeek.BaseURL
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", aiCfg.Provider)
	}

	if mc.APIKey == "" {
		return nil, fmt.Errorf("api_key is required for provider: %s", aiCfg.Provider)
	}
	if mc.Model == "" {
		mc.Model = "gpt-4o-mini"
	}

	temperature := pc.Temperature
	mc.Temperature = &temperature
	if profile == ProfileFast {
		seed := pc.Seed
		mc.Seed = &seed
	}
	if pc.MaxTokens > 0 {
		maxTokens := pc.MaxTokens
		mc.MaxTokens = &maxTokens
	}

	return openai.NewChatModel(ctx, mc)
}

// NewChatModels 创建两个档位的 ChatModel
func NewChatModels(ctx context.Context, cfg *config.Config) (map[Profile]model.BaseChatModel, error) {
	models := make(map[Profile]model.BaseChatModel, 2)
	for _, p := range []Profile{ProfileCreative, ProfileFast} {
		cm, err := NewChatModel(ctx, cfg, p)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s chat model: %w", p, err)
		}
		models[p] = cm
	}
	return models, nil
}

// NewGeneratorFromConfig 按配置创建生成器
func NewGeneratorFromConfig(ctx context.Context, cfg *config.Config, opts ...Option) (*Generator, error) {
	models, err := NewChatModels(ctx, cfg)
	if err != nil {
		return nil, err
	}
	opts = append([]Option{
		WithTimeout(ProfileCreative, time.Duration(cfg.AI.Creative.Timeout)*time.Second),
		WithTimeout(ProfileFast, time.Duration(cfg.AI.Fast.Timeout)*time.Second),
	}, opts...)
	return NewGenerator(models, opts...)
}
