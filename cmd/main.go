package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/xhad/glance/internal/models"
	"github.com/xhad/glance/internal/types"
	cfgPkg "github.com/xhad/glance/pkg/config"
	"github.com/xhad/glance/pkg/fetch"
	"github.com/xhad/glance/pkg/history"
	"github.com/xhad/glance/pkg/llm"
	"github.com/xhad/glance/pkg/ocr"
	"github.com/xhad/glance/pkg/processor"
	"github.com/xhad/glance/pkg/render"
	"github.com/xhad/glance/pkg/source"
	"github.com/xhad/glance/server"
)

type Config struct {
	APIKey        string
	BaseURL       string
	Model         string
	DBUrl         string
	EmbedderURL   string
	EmbedderModel string
	URL           string
	File          string
	OutDir        string
	Port          string
	Theme         string
	Timeout       int
	RateLimit     float64
	ChunkSize     int
	ChunkOverlap  int
	VectorDim     int
	NoImages      bool
	Serve         bool
}

func main() {
	config := parseFlags()

	if err := run(config); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() Config {
	var config Config
	var configPath string

	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&config.APIKey, "api-key", os.Getenv("MISTRAL_API_KEY"), "Mistral API key")
	flag.StringVar(&config.BaseURL, "base-url", "", "Mistral API base URL")
	flag.StringVar(&config.Model, "model", "", "OCR model to use")
	flag.StringVar(&config.DBUrl, "db-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string for history")
	flag.StringVar(&config.URL, "url", "", "Document or image URL to extract")
	flag.StringVar(&config.File, "file", "", "PDF or image file to extract")
	flag.StringVar(&config.OutDir, "out", "", "Directory for extracted images")
	flag.StringVar(&config.Port, "port", "", "HTTP server port")
	flag.StringVar(&config.Theme, "theme", "", "UI theme (light or dark)")
	flag.IntVar(&config.Timeout, "timeout", 0, "OCR request timeout in seconds")
	flag.Float64Var(&config.RateLimit, "rate-limit", 0, "Rate limit for OCR API calls")
	flag.BoolVar(&config.NoImages, "no-images", false, "Skip embedded image extraction")
	flag.BoolVar(&config.Serve, "serve", false, "Start the web UI server")
	flag.Parse()

	// Load config file if specified
	if cfg, err := cfgPkg.LoadConfig(configPath); err == nil {
		if config.APIKey == "" {
			config.APIKey = cfg.OCR.APIKey
		}
		if config.BaseURL == "" {
			config.BaseURL = cfg.OCR.BaseURL
		}
		if config.Model == "" {
			config.Model = cfg.OCR.Model
		}
		if config.DBUrl == "" {
			config.DBUrl = cfg.Database.URL
		}
		if config.Port == "" {
			config.Port = cfg.Server.Port
		}
		if config.Theme == "" {
			config.Theme = cfg.UI.Theme
		}
		if config.Timeout == 0 {
			config.Timeout = cfg.OCR.TimeoutSeconds
		}
		if config.RateLimit == 0 {
			config.RateLimit = cfg.OCR.RateLimit
		}
		if !config.NoImages {
			config.NoImages = !cfg.IncludeImages()
		}
		config.EmbedderURL = cfg.Embedder.BaseURL
		config.EmbedderModel = cfg.Embedder.Model
		config.ChunkSize = cfg.Processor.ChunkSize
		config.ChunkOverlap = cfg.Processor.ChunkOverlap
		config.VectorDim = cfg.Database.VectorDim
	}

	return config
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(config Config) error {
	if config.Timeout == 0 {
		config.Timeout = 120
	}

	engine, err := ocr.NewWithConfig(ocr.ClientConfig{
		APIKey:        config.APIKey,
		BaseURL:       config.BaseURL,
		Model:         config.Model,
		Timeout:       time.Duration(config.Timeout) * time.Second,
		RateLimit:     config.RateLimit,
		IncludeImages: !config.NoImages,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize OCR client: %v", err)
	}

	store, embedder, err := buildHistory(config)
	if err != nil {
		return err
	}
	defer store.Close()

	if config.Serve {
		srv := server.New(server.Config{
			Port:    config.Port,
			Theme:   config.Theme,
			Timeout: time.Duration(config.Timeout) * time.Second,
		}, engine, store, embedder)
		return srv.ListenAndServe()
	}

	if config.URL == "" && config.File == "" {
		return fmt.Errorf("nothing to do: pass -url or -file, or -serve for the web UI")
	}

	src, title, err := buildSource(config)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(config.Timeout)*time.Second)
	defer cancel()

	spinner := getSpinner(" Extracting text and images...")
	result, err := engine.Process(ctx, src)
	spinner.Finish()
	fmt.Print("\r")

	if err != nil {
		return fmt.Errorf("extraction failed: %v", err)
	}

	color.Green("✓ Processed %d pages\n", len(result.Pages))

	text := render.PlainText(result)
	fmt.Println(text)

	if !config.NoImages {
		if err := writeImages(result, config.OutDir); err != nil {
			color.Red("Failed to write images: %v\n", err)
		}
	}

	if err := store.Add(ctx, models.Entry{
		URL:   src.Input,
		Title: title,
		Pages: len(result.Pages),
		Text:  text,
	}); err != nil {
		color.Red("Failed to record history: %v\n", err)
	}

	return nil
}

// buildHistory wires the persistent store and its embedder when a
// database is configured, otherwise an in-memory store that only lives
// for this invocation.
func buildHistory(config Config) (types.HistoryStore, types.Embedder, error) {
	if config.DBUrl == "" {
		return history.NewMemory(), nil, nil
	}

	var embedder types.Embedder
	if emb, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:   config.EmbedderModel,
		BaseURL: config.EmbedderURL,
	}); err == nil {
		embedder = emb
	} else {
		color.Yellow("History search disabled: %v\n", err)
	}

	chunker := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:    config.ChunkSize,
		ChunkOverlap: config.ChunkOverlap,
	})

	store, err := history.NewPostgresWithConfig(history.PostgresConfig{
		ConnString: config.DBUrl,
		VectorDim:  config.VectorDim,
	}, embedder, chunker)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize history store: %v", err)
	}

	return store, embedder, nil
}

func buildSource(config Config) (models.Source, string, error) {
	if config.File != "" {
		content, err := os.ReadFile(config.File)
		if err != nil {
			return models.Source{}, "", fmt.Errorf("failed to read file: %v", err)
		}
		src, err := source.FromUpload(filepath.Base(config.File), content)
		return src, "", err
	}

	src, err := source.FromURL(config.URL)
	if err != nil {
		return models.Source{}, "", err
	}

	// Probe for a title so the history entry gets a label; failures are
	// advisory only.
	title := ""
	probeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if info, err := fetch.New().Probe(probeCtx, src.URL); err == nil {
		title = info.Title
	}

	return src, title, nil
}

// writeImages decodes every embedded image to a file named after its ID.
func writeImages(result *models.Result, outDir string) error {
	if outDir == "" {
		outDir = "."
	}

	count := 0
	for _, page := range result.Pages {
		for _, img := range page.Images {
			dataURL, ok := render.DataURL(img)
			if !ok {
				color.Yellow("No data for image %s\n", img.ID)
				continue
			}

			_, payload, _ := strings.Cut(dataURL, ",")
			data, err := base64.StdEncoding.DecodeString(payload)
			if err != nil {
				continue
			}

			if err := os.MkdirAll(outDir, 0755); err != nil {
				return err
			}
			name := filepath.Join(outDir, filepath.Base(img.ID))
			if err := os.WriteFile(name, data, 0644); err != nil {
				return err
			}
			count++
		}
	}

	if count > 0 {
		color.Green("✓ Wrote %d images to %s\n", count, outDir)
	}
	return nil
}
