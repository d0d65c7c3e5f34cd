package src

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vibestudio/vibe-studio/src/gateway"
)

// ProviderConfig selects one text-generation backend for a role.
type ProviderConfig struct {
	Provider string `yaml:"provider"` // groq | together | gemini | agent
	Model    string `yaml:"model,omitempty"`
	BaseURL  string `yaml:"base_url,omitempty"`
}

// Config is the runtime configuration loaded from config.yaml. API keys are
// not configured here; they come from the environment (optionally via .env).
type Config struct {
	Addr           string `yaml:"addr"`
	StatePath      string `yaml:"state_path"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`

	Providers struct {
		Planning ProviderConfig `yaml:"planning"`
		Code     ProviderConfig `yaml:"code"`
		Review   ProviderConfig `yaml:"review"`
	} `yaml:"providers"`
}

func DefaultConfig() Config {
	var c Config
	c.Addr = ":8080"
	c.StatePath = "vibe-studio.db"
	c.TimeoutSeconds = 60
	c.Providers.Planning = ProviderConfig{Provider: "groq", Model: "qwen/qwen3-32b"}
	c.Providers.Code = ProviderConfig{Provider: "together", Model: "togethercomputer/CodeLlama-34b-Instruct"}
	c.Providers.Review = ProviderConfig{Provider: "gemini", Model: "gemini-pro"}
	return c
}

// LoadConfig reads config.yaml on top of the defaults. A missing file is not
// an error; a present but invalid one is. A .env file next to the process is
// loaded first so keys referenced by the providers resolve.
func LoadConfig(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 60
	}
	return cfg, nil
}

func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// BuildRouter wires one generator per role from the provider config.
func (c Config) BuildRouter(ctx context.Context) (*gateway.Router, error) {
	router := gateway.NewRouter(c.Timeout())

	// The agent backend is shared across roles when more than one asks
	// for it.
	var agentClient *gateway.AgentClient

	build := func(pc ProviderConfig) (gateway.Generator, error) {
		switch pc.Provider {
		case "groq", "openai":
			return gateway.NewOpenAIClient(os.Getenv("GROQ_API_KEY"), pc.BaseURL, pc.Model, c.Timeout()), nil
		case "together":
			return gateway.NewTogetherClient(os.Getenv("TOGETHER_API_KEY"), pc.BaseURL, pc.Model, c.Timeout()), nil
		case "gemini":
			return gateway.NewGeminiClient(os.Getenv("GEMINI_API_KEY"), pc.BaseURL, pc.Model, c.Timeout()), nil
		case "agent":
			if agentClient == nil {
				var err error
				agentClient, err = gateway.NewAgentClient(ctx, pc.Model)
				if err != nil {
					return nil, err
				}
			}
			return agentClient, nil
		default:
			return nil, fmt.Errorf("unknown provider %q", pc.Provider)
		}
	}

	for role, pc := range map[gateway.Role]ProviderConfig{
		gateway.RolePlanning: c.Providers.Planning,
		gateway.RoleCode:     c.Providers.Code,
		gateway.RoleReview:   c.Providers.Review,
	} {
		g, err := build(pc)
		if err != nil {
			return nil, fmt.Errorf("provider for role %s: %w", role, err)
		}
		router.Bind(role, g)
	}
	return router, nil
}
