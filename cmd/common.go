/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"google.golang.org/api/option"

	"github.com/valpere/bntran/internal/config"
	"github.com/valpere/bntran/internal/dictionary"
	"github.com/valpere/bntran/internal/store"
	"github.com/valpere/bntran/internal/translator"
)

// buildServices constructs the translation services named in cfg.Services,
// in that order, which is also the fallback order.
func buildServices(cfg *config.Config) ([]translator.TranslationService, error) {
	var list []translator.TranslationService

	for _, name := range cfg.Services {
		switch name {
		case "googleweb":
			list = append(list, translator.NewGoogleWebService())
		case "google":
			var opts []option.ClientOption
			switch {
			case cfg.Google.Credentials != "":
				opts = append(opts, option.WithCredentialsFile(cfg.Google.Credentials))
			case cfg.Google.APIKey != "":
				opts = append(opts, option.WithAPIKey(cfg.Google.APIKey))
			}
			if cfg.Google.ProjectID != "" {
				opts = append(opts, option.WithQuotaProject(cfg.Google.ProjectID))
			}
			list = append(list, translator.NewGoogleService(opts...))
		case "mymemory":
			list = append(list, translator.NewMyMemoryService(cfg.MyMemory.Email))
		case "openai":
			if cfg.OpenAI.APIKey == "" {
				logger.Warn().Msg("openai selected without an API key, skipping")
				continue
			}
			list = append(list, translator.NewOpenAIService(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model))
		case "openrouter":
			var models []string
			if cfg.OpenRouter.Model != "" {
				models = []string{cfg.OpenRouter.Model}
			}
			list = append(list, translator.NewOpenRouterService(cfg.OpenRouter.APIKey, cfg.OpenRouter.BaseURL, models))
		case "systran":
			list = append(list, translator.NewSystranService(cfg.Systran.APIKey))
		case "ollama":
			list = append(list, translator.NewOllamaTranslator(cfg.Ollama.BaseURL, cfg.Ollama.Model))
		default:
			logger.Warn().Str("service", name).Msg("unknown service, skipping")
		}
	}

	if len(list) == 0 {
		return nil, fmt.Errorf("no valid services configured")
	}
	return list, nil
}

// dictionaryBackend is a custom dictionary the CLI can also edit.
type dictionaryBackend interface {
	dictionary.Store
	Delete(ctx context.Context, source string) (bool, error)
	Clear(ctx context.Context) (int64, error)
	Close() error
}

func openDictionary(cfg *config.Config) (dictionaryBackend, error) {
	if cfg.Dictionary.Backend == config.BackendSQLite {
		db, err := openStore(cfg)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
	return dictionary.NewJSONFile(cfg.Dictionary.Path, logger), nil
}

func openStore(cfg *config.Config) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Dictionary.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := store.New(cfg.Dictionary.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}
