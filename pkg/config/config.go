package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	AnthropicAPIKey string
	OpenAIAPIKey    string
	GoogleAPIKey    string
	Routing         *RoutingConfig
	Workflow        *WorkflowConfig
	Jira            JiraConfig
	GitHub          GitHubConfig
	ConfigDir       string
}

// FileConfig represents the structure of ~/.lattice/config.yaml
type FileConfig struct {
	APIKeys APIKeysConfig `yaml:"api_keys"`
	Jira    JiraConfig    `yaml:"jira"`
	GitHub  GitHubConfig  `yaml:"github"`
}

// APIKeysConfig holds API key configuration from file.
type APIKeysConfig struct {
	Anthropic string `yaml:"anthropic"`
	OpenAI    string `yaml:"openai"`
	Google    string `yaml:"google"`
}

// JiraConfig holds issue tracker connection settings.
type JiraConfig struct {
	BaseURL    string `yaml:"base_url"`
	Email      string `yaml:"email"`
	APIToken   string `yaml:"api_token"`
	ProjectKey string `yaml:"project_key"`
}

// GitHubConfig holds source host connection settings.
type GitHubConfig struct {
	Token      string `yaml:"token"`
	Owner      string `yaml:"owner"`
	Repo       string `yaml:"repo"`
	BaseBranch string `yaml:"base_branch"`
}

// Load reads configuration from config files and environment variables.
// Environment variables take precedence over file configuration.
func Load() (*Config, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	fileConfig := loadFileConfig(filepath.Join(configDir, "config.yaml"))

	cfg := &Config{
		AnthropicAPIKey: getEnvOrDefault("ANTHROPIC_API_KEY", fileConfig.APIKeys.Anthropic),
		OpenAIAPIKey:    getEnvOrDefault("OPENAI_API_KEY", fileConfig.APIKeys.OpenAI),
		GoogleAPIKey:    getEnvOrDefault("GOOGLE_API_KEY", fileConfig.APIKeys.Google),
		Jira: JiraConfig{
			BaseURL:    getEnvOrDefault("JIRA_BASE_URL", fileConfig.Jira.BaseURL),
			Email:      getEnvOrDefault("JIRA_EMAIL", fileConfig.Jira.Email),
			APIToken:   getEnvOrDefault("JIRA_API_TOKEN", fileConfig.Jira.APIToken),
			ProjectKey: getEnvOrDefault("JIRA_PROJECT_KEY", fileConfig.Jira.ProjectKey),
		},
		GitHub: GitHubConfig{
			Token:      getEnvOrDefault("GITHUB_TOKEN", fileConfig.GitHub.Token),
			Owner:      getEnvOrDefault("GITHUB_OWNER", fileConfig.GitHub.Owner),
			Repo:       getEnvOrDefault("GITHUB_REPO", fileConfig.GitHub.Repo),
			BaseBranch: getEnvOrDefault("GITHUB_BASE_BRANCH", fileConfig.GitHub.BaseBranch),
		},
		ConfigDir: configDir,
	}
	if cfg.GitHub.BaseBranch == "" {
		cfg.GitHub.BaseBranch = "main"
	}

	routingPath := filepath.Join(configDir, "routing.yaml")
	if _, err := os.Stat(routingPath); err == nil {
		routing, err := LoadRoutingConfig(routingPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load routing config: %w", err)
		}
		cfg.Routing = routing
	} else {
		cfg.Routing = DefaultRoutingConfig()
	}

	cfg.Workflow = DefaultWorkflowConfig()

	return cfg, nil
}

// LoadWithRoutingFile loads config with a specific routing file.
func LoadWithRoutingFile(routingPath string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	routing, err := LoadRoutingConfig(routingPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load routing config from %s: %w", routingPath, err)
	}
	cfg.Routing = routing

	return cfg, nil
}

// HasProvider returns true if the API key for the given provider is configured.
func (c *Config) HasProvider(name string) bool {
	switch name {
	case "anthropic":
		return c.AnthropicAPIKey != ""
	case "openai":
		return c.OpenAIAPIKey != ""
	case "google":
		return c.GoogleAPIKey != ""
	case "mock":
		return true
	default:
		return false
	}
}

func getConfigDir() (string, error) {
	if dir := os.Getenv("LATTICE_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".lattice"), nil
}

func loadFileConfig(path string) FileConfig {
	var fileConfig FileConfig

	data, err := os.ReadFile(path)
	if err != nil {
		return fileConfig
	}

	// Malformed files are treated the same as absent ones.
	_ = yaml.Unmarshal(data, &fileConfig)
	return fileConfig
}

func getEnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
