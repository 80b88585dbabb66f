package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and saves the result to
// .machdocs.yml in the working directory.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to machdocs! Let's configure your documentation index.")
	fmt.Println()

	cfg := DefaultConfig()

	dirPrompt := promptui.Prompt{
		Label:   "Machines directory",
		Default: cfg.MachinesDir,
		Validate: func(input string) error {
			if input == "" {
				return fmt.Errorf("directory is required")
			}
			return nil
		},
	}
	machinesDir, err := dirPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("machines directory: %w", err)
	}
	cfg.MachinesDir = machinesDir
	if _, err := os.Stat(machinesDir); os.IsNotExist(err) {
		fmt.Printf("Note: %s does not exist yet; create it before indexing.\n", machinesDir)
	}

	providerPrompt := promptui.Select{
		Label: "Select embedding provider",
		Items: []string{"openai", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.EmbeddingProvider = ProviderType(providerStr)
	if cfg.EmbeddingProvider == ProviderOllama {
		cfg.EmbeddingModel = "nomic-embed-text"
	}

	modelPrompt := promptui.Prompt{
		Label:   "Embedding model",
		Default: cfg.EmbeddingModel,
	}
	model, err := modelPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("embedding model: %w", err)
	}
	cfg.EmbeddingModel = model

	concPrompt := promptui.Prompt{
		Label:   "Max concurrent documents",
		Default: strconv.Itoa(cfg.MaxConcurrency),
		Validate: func(input string) error {
			n, err := strconv.Atoi(input)
			if err != nil || n < 1 {
				return fmt.Errorf("must be a positive integer")
			}
			return nil
		},
	}
	concStr, err := concPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("concurrency: %w", err)
	}
	cfg.MaxConcurrency, _ = strconv.Atoi(concStr)

	if envVar := APIKeyEnvVar(cfg.EmbeddingProvider); envVar != "" && os.Getenv(envVar) == "" {
		fmt.Printf("\nNote: %s is not set. Export it or add it to .env before indexing.\n", envVar)
	}

	if err := cfg.Save(DefaultFile); err != nil {
		return nil, err
	}
	fmt.Printf("\nConfiguration saved to %s\n", DefaultFile)
	return cfg, nil
}
