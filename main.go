package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"studentrisk/db"
	qhttp "studentrisk/http"
	"studentrisk/logging"
	"studentrisk/ml"
	"studentrisk/risk"
)

type Config struct {
	Http struct {
		Port           int      `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"http"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Model struct {
		Path string `yaml:"path"`
	} `yaml:"model"`
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
}

func main() {
	config, err := loadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(config.Log.Level, config.Log.File)
	defer logger.Sync()

	if err := os.MkdirAll(filepath.Dir(config.Database.Path), 0o755); err != nil {
		logger.Fatal("create database dir", zap.Error(err))
	}
	store, err := db.Open(config.Database.Path)
	if err != nil {
		logger.Fatal("initialize database", zap.Error(err))
	}
	defer store.Close()
	logger.Info("database initialized", zap.String("path", config.Database.Path))

	// The artifact is loaded once; a missing or invalid file leaves the
	// server up with /predict answering 500 until a restart.
	var model ml.Classifier
	if forest, err := ml.LoadArtifact(config.Model.Path); err != nil {
		logger.Warn("model artifact not loaded, predictions disabled",
			zap.String("path", config.Model.Path), zap.Error(err))
	} else {
		model = forest
		logger.Info("model loaded", zap.String("path", config.Model.Path))
	}

	if watcher, err := ml.WatchArtifact(config.Model.Path, logger); err != nil {
		logger.Warn("artifact watcher unavailable", zap.Error(err))
	} else {
		defer watcher.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := qhttp.NewHub(logger)
	go hub.Run(ctx)

	assessor := risk.NewAssessor(model, store, hub, logger)

	serverConfig := qhttp.DefaultServerConfig()
	serverConfig.Port = config.Http.Port
	if len(config.Http.AllowedOrigins) > 0 {
		serverConfig.AllowedOrigins = config.Http.AllowedOrigins
	}

	server := qhttp.NewServer(serverConfig, assessor, store, hub, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	if err := server.Stop(); err != nil {
		logger.Warn("server forced to shutdown", zap.Error(err))
	}
}

func loadConfig(path string) (*Config, error) {
	// Look for config in root even if run from cmd/.
	if _, err := os.Stat(path); os.IsNotExist(err) {
		path = filepath.Join("..", path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, err
	}
	if config.Http.Port == 0 {
		config.Http.Port = 5000
	}

	// The listen port is the one externally supplied setting.
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Http.Port = p
		}
	}
	return &config, nil
}
