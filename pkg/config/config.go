package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	OCR struct {
		APIKey         string  `yaml:"api_key"`
		BaseURL        string  `yaml:"base_url"`
		Model          string  `yaml:"model"`
		TimeoutSeconds int     `yaml:"timeout_seconds"`
		RateLimit      float64 `yaml:"rate_limit"`
		IncludeImages  *bool   `yaml:"include_images"`
	} `yaml:"ocr"`

	Database struct {
		URL       string `yaml:"url"`
		TableName string `yaml:"table_name"`
		VectorDim int    `yaml:"vector_dim"`
		BatchSize int    `yaml:"batch_size"`
	} `yaml:"database"`

	Embedder struct {
		BaseURL string `yaml:"base_url"`
		Model   string `yaml:"model"`
	} `yaml:"embedder"`

	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Processor struct {
		ChunkSize    int `yaml:"chunk_size"`
		ChunkOverlap int `yaml:"chunk_overlap"`
	} `yaml:"processor"`

	UI struct {
		Theme string `yaml:"theme"`
	} `yaml:"ui"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/glance/config.yaml"),
			"/etc/glance/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

func (c *Config) IncludeImages() bool {
	if c.OCR.IncludeImages == nil {
		return true
	}
	return *c.OCR.IncludeImages
}

func applyDefaults(config *Config) {
	if config.OCR.BaseURL == "" {
		config.OCR.BaseURL = "https://api.mistral.ai"
	}
	if config.OCR.Model == "" {
		config.OCR.Model = "mistral-ocr-latest"
	}
	if config.OCR.TimeoutSeconds == 0 {
		config.OCR.TimeoutSeconds = 120
	}
	if config.OCR.RateLimit == 0 {
		config.OCR.RateLimit = 1.0
	}
	if config.OCR.IncludeImages == nil {
		includeImages := true
		config.OCR.IncludeImages = &includeImages
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "extractions"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 768
	}
	if config.Database.BatchSize == 0 {
		config.Database.BatchSize = 100
	}

	if config.Embedder.BaseURL == "" {
		config.Embedder.BaseURL = "http://localhost:11434"
	}
	if config.Embedder.Model == "" {
		config.Embedder.Model = "nomic-embed-text:latest"
	}

	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}

	if config.Processor.ChunkSize == 0 {
		config.Processor.ChunkSize = 1000
	}
	if config.Processor.ChunkOverlap == 0 {
		config.Processor.ChunkOverlap = 200
	}

	if config.UI.Theme == "" {
		config.UI.Theme = "light"
	}
}

func mergeWithEnv(config *Config) {
	if apiKey := os.Getenv("MISTRAL_API_KEY"); apiKey != "" {
		config.OCR.APIKey = apiKey
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.Embedder.BaseURL = baseURL
	}
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Port = port
	}
}
