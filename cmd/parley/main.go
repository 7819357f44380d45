package main

import (
	"fmt"
	"os"
	"time"

	"github.com/conduitworks/parley/internal/adapters/driven/config/file"
	"github.com/conduitworks/parley/internal/adapters/driven/embedding/charhash"
	"github.com/conduitworks/parley/internal/adapters/driven/filestore/local"
	"github.com/conduitworks/parley/internal/adapters/driven/llm/anthropic"
	"github.com/conduitworks/parley/internal/adapters/driven/llm/ollama"
	"github.com/conduitworks/parley/internal/adapters/driven/llm/ragserver"
	"github.com/conduitworks/parley/internal/adapters/driven/storage/sqlite"
	"github.com/conduitworks/parley/internal/adapters/driving/cli"
	"github.com/conduitworks/parley/internal/core/ports/driven"
	"github.com/conduitworks/parley/internal/core/services"
)

// version is overridden at build time via ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := file.Load("")
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	store, err := sqlite.NewStore(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	files, err := local.NewFileStore(cfg.Storage.UploadsDir)
	if err != nil {
		return fmt.Errorf("opening file store: %w", err)
	}

	embedding := charhash.NewEmbeddingService(charhash.Config{
		Dimensions: cfg.Knowledge.EmbeddingDimensions,
	})

	// Without an API key the cloud backend stays unwired; local and
	// augmented routes still work.
	var cloud driven.CloudLLM
	if cfg.Anthropic.APIKey != "" {
		client, err := anthropic.NewClient(anthropic.Config{
			APIKey:  cfg.Anthropic.APIKey,
			BaseURL: cfg.Anthropic.BaseURL,
			Timeout: time.Duration(cfg.Anthropic.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			return fmt.Errorf("configuring cloud backend: %w", err)
		}
		cloud = client
	}

	localLLM := ollama.NewClient(ollama.Config{
		BaseURL: cfg.Ollama.BaseURL,
		Timeout: time.Duration(cfg.Ollama.TimeoutSeconds) * time.Second,
	})
	rag := ragserver.NewClient(ragserver.Config{
		BaseURL: cfg.RAG.BaseURL,
		Timeout: time.Duration(cfg.RAG.TimeoutSeconds) * time.Second,
	})

	docStore := store.DocumentStore()
	conversations := store.ConversationStore()

	retrieval := services.NewRetrievalService(docStore, embedding)
	history := services.NewHistoryBuilder(files)
	knowledge := services.NewKnowledgeService(docStore, embedding, retrieval, cfg.Knowledge.TruncateLength)
	chat := services.NewChatService(conversations, history, retrieval, cloud, localLLM, rag, services.ChatConfig{
		DefaultModel:      cfg.Anthropic.DefaultModel,
		MaxTokens:         cfg.Anthropic.MaxTokens,
		TopK:              cfg.RAG.TopK,
		LocalHistoryLimit: cfg.Chat.LocalHistoryLimit,
	})
	models := services.NewModelsService(localLLM)

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Chat:          chat,
		Knowledge:     knowledge,
		Models:        models,
		Conversations: conversations,
	})

	return cli.Execute()
}
