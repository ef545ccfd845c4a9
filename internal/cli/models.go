package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/flowscribe/internal/config"
	"github.com/dshills/flowscribe/internal/inference"
	"github.com/dshills/flowscribe/internal/providers"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Model and provider management",
}

// modelRole is one way the report pipeline uses a model.
type modelRole struct {
	Name  string
	Kind  inference.Kind
	Model func(config.Config) string
}

var modelRoles = []modelRole{
	{"chat", inference.KindChat, func(c config.Config) string { return c.Models.Chat }},
	{"vision", inference.KindChat, func(c config.Config) string { return c.Models.Vision }},
	{"image", inference.KindImage, func(c config.Config) string { return c.Models.Image }},
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the configured model for each role",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(nil)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "%s:\n", cfg.Provider)
		for _, r := range modelRoles {
			p, err := inference.PartitionFor(r.Kind)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "  %-7s %-20s (kind %s, cache %s)\n", r.Name, r.Model(cfg), r.Kind, p)
		}
		return nil
	},
}

var modelsDoctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Validate provider credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(nil)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "Checking %s...\n", cfg.Provider)

		key, err := config.LoadAPIKey(cfg.SecretsFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)
			exitCode = ExitAuthError
			return nil
		}
		p, err := providers.New(cfg.Provider, providers.Options{
			APIKey:     key,
			BaseURL:    cfg.BaseURL,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)
			exitCode = ExitUsageError
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		_, err = p.Completion(ctx, map[string]any{
			"model": cfg.Models.Chat,
			"messages": []any{
				map[string]any{"role": "user", "content": "Respond with exactly: ok"},
			},
			"max_tokens": 5,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)
			if providers.IsAuthError(err) {
				exitCode = ExitAuthError
			} else {
				exitCode = ExitRuntimeError
			}
			return nil
		}

		fmt.Fprintf(os.Stdout, "OK: %s is configured and responding\n", cfg.Provider)
		return nil
	},
}

func init() {
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsDoctorCmd)
}
