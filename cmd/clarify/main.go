// Command clarify runs the interactive clarification wizard in the terminal.
//
// It interviews you about a project idea stage by stage, persists progress
// under .clarity/, and on completion writes README.md, .plan.yml and
// architecture.md into the output directory.
//
// Usage:
//
//	clarify -project my-app
//	OPENROUTER_API_KEY=sk-... clarify -project my-app
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/clarityworks/clarifier/internal/catalog"
	"github.com/clarityworks/clarifier/internal/config"
	"github.com/clarityworks/clarifier/internal/engine"
	"github.com/clarityworks/clarifier/internal/export"
	"github.com/clarityworks/clarifier/internal/llm"
	"github.com/clarityworks/clarifier/internal/project"
	"github.com/clarityworks/clarifier/internal/stage"
	"github.com/clarityworks/clarifier/internal/validate"
)

func main() {
	var (
		projectName = flag.String("project", "", "project name (required)")
		outDir      = flag.String("dir", "", "output directory for exported files (default: current directory)")
		listOnly    = flag.Bool("list", false, "list saved projects and exit")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	log.Logger = logger

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	// Keep wizard output clean; warnings still surface.
	level := zerolog.WarnLevel
	if parsed, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && parsed > zerolog.InfoLevel {
		level = parsed
	}
	zerolog.SetGlobalLevel(level)

	if *outDir != "" {
		cfg.OutputDir = *outDir
	}

	store := project.NewStore(cfg.ClarityDir, logger)

	if *listOnly {
		names, err := store.List()
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to list projects")
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return
	}

	if *projectName == "" {
		fmt.Fprintln(os.Stderr, "usage: clarify -project <name>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cat, err := loadCatalog(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load stage catalog")
	}

	var client llm.Client = llm.Disabled{}
	if cfg.CompletionEnabled() {
		client = llm.NewOpenRouterClient(cfg.OpenRouterAPIKey,
			llm.WithModel(cfg.OpenRouterModel),
			llm.WithBaseURL(cfg.OpenRouterBaseURL),
			llm.WithLogger(logger),
		)
	}

	eng, err := engine.New(*projectName, engine.Options{
		Catalog:             cat,
		Registry:            stage.NewRegistry(stage.NewSuggester(client, logger)),
		Validator:           validate.New(client, logger),
		Store:               store,
		Exporter:            export.New(cfg.OutputDir, cfg.ClarityDir, logger),
		Client:              client,
		AssistedTransitions: cfg.AssistedTransitions() && cfg.CompletionEnabled(),
		Logger:              logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open project")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runWizard(ctx, eng); err != nil {
		logger.Fatal().Err(err).Msg("wizard failed")
	}
}

func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.CatalogPath != "" {
		return catalog.LoadFile(cfg.CatalogPath)
	}
	return catalog.LoadDefault()
}

// runWizard loops prompt, read, submit until the workflow completes.
func runWizard(ctx context.Context, eng *engine.Engine) error {
	in := bufio.NewReader(os.Stdin)

	fmt.Printf("Clarifying %q. Press Ctrl+C to stop; progress is saved after every step.\n", eng.Record().Name)

	for !eng.Complete() {
		if err := ctx.Err(); err != nil {
			return nil
		}

		stageID := eng.CurrentStage()
		data := eng.CurrentPrompt(ctx)
		progress := eng.Progress()

		fmt.Printf("\n[%d/%d] %s\n", progress.Completed+1, progress.Total, data.Title)
		if data.Description != "" {
			fmt.Println(data.Description)
		}
		if data.Feedback != "" {
			fmt.Printf("\n  ! %s\n", data.Feedback)
		}

		resp, err := readResponses(in, data.Fields)
		if err != nil {
			return err
		}

		if _, err := eng.Submit(ctx, stageID, resp); err != nil {
			return err
		}
	}

	fmt.Println("\nDone. Exported README.md, .plan.yml and architecture.md.")
	return nil
}

// readResponses renders each field and collects the answers. Text fields are
// multi-line, terminated by an empty line; select fields take a number or a
// literal option name.
func readResponses(in *bufio.Reader, fields []stage.Field) (stage.Responses, error) {
	resp := stage.Responses{}
	for _, f := range fields {
		switch f.Kind {
		case stage.KindSelect:
			value, err := readSelect(in, f)
			if err != nil {
				return nil, err
			}
			resp[f.ID] = value
		case stage.KindMultiSelect:
			values, err := readMultiSelect(in, f)
			if err != nil {
				return nil, err
			}
			resp[f.ID] = values
		default:
			value, err := readText(in, f)
			if err != nil {
				return nil, err
			}
			resp[f.ID] = value
		}
	}
	return resp, nil
}

func readText(in *bufio.Reader, f stage.Field) (string, error) {
	fmt.Printf("\n%s\n", f.Question)
	if f.Value != "" {
		fmt.Println(f.Value)
		fmt.Println("(press Enter on an empty first line to keep the text above, or type a replacement)")
	}
	fmt.Println("(finish with an empty line)")

	var lines []string
	for {
		line, err := in.ReadString('\n')
		if err != nil && len(lines) == 0 && strings.TrimSpace(line) == "" {
			return f.Value, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		lines = append(lines, line)
		if err != nil {
			break
		}
	}

	if len(lines) == 0 {
		return f.Value, nil
	}
	return strings.Join(lines, "\n"), nil
}

func readSelect(in *bufio.Reader, f stage.Field) (string, error) {
	fmt.Printf("\n%s\n", f.Question)
	for i, opt := range f.Options {
		marker := " "
		if opt == f.Value {
			marker = "*"
		}
		fmt.Printf("  %s %d) %s\n", marker, i+1, opt)
	}
	fmt.Print("choice: ")

	line, err := in.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return f.Value, err
	}

	if n := parseIndex(line, len(f.Options)); n >= 0 {
		return f.Options[n], nil
	}
	for _, opt := range f.Options {
		if strings.EqualFold(opt, line) {
			return opt, nil
		}
	}
	return line, nil
}

func readMultiSelect(in *bufio.Reader, f stage.Field) ([]string, error) {
	fmt.Printf("\n%s (comma-separated numbers or names, empty for none)\n", f.Question)
	for i, opt := range f.Options {
		marker := " "
		for _, v := range f.Values {
			if v == opt {
				marker = "*"
			}
		}
		fmt.Printf("  %s %d) %s\n", marker, i+1, opt)
	}
	fmt.Print("choices: ")

	line, err := in.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return f.Values, err
	}

	var values []string
	for _, part := range strings.Split(line, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if n := parseIndex(part, len(f.Options)); n >= 0 {
			values = append(values, f.Options[n])
			continue
		}
		values = append(values, part)
	}
	return values, nil
}

// parseIndex converts a 1-based menu choice to a slice index, or -1.
func parseIndex(s string, max int) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return -1
		}
		n = n*10 + int(r-'0')
	}
	if n < 1 || n > max {
		return -1
	}
	return n - 1
}
