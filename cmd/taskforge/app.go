package main

import (
	"fmt"
	"os"
	"path/filepath"

	"taskforge/internal/agent"
	"taskforge/internal/codegen"
	"taskforge/internal/config"
	"taskforge/internal/exec"
	"taskforge/internal/intent"
	"taskforge/internal/memory"
	"taskforge/internal/orchestrator"
	"taskforge/internal/output"
	"taskforge/internal/planner"
	"taskforge/internal/provider"
	"taskforge/internal/state"
	"taskforge/internal/supervisor"
	"taskforge/internal/syntax"
	"taskforge/pkg/models"
)

// app bundles the wired components a command needs. Build it once per
// invocation and Close it when done.
type app struct {
	cfg        *config.Config
	supervisor *supervisor.Supervisor
	manager    *output.Manager
	db         *state.DB
	logger     *orchestrator.DebugLogger
	// demo is non-nil when demo mode is handling generation.
	demo *provider.Demo
}

type appOptions struct {
	// forceExe packages every generated task into an executable.
	forceExe bool
}

// buildApp loads configuration and wires the full agent stack. The
// history database and legacy-layout migration are best effort; a
// failure there degrades the app rather than aborting it.
func buildApp(opts appOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	manager := output.NewManager(cfg.Output.Root)
	if moved, err := manager.MigrateLegacyLayout(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: legacy output migration: %v\n", err)
	} else if len(moved) > 0 && cfg.Verbose {
		fmt.Printf("Migrated %d legacy task directories\n", len(moved))
	}

	logger := orchestrator.NopLogger()
	if cfg.Verbose {
		logger = orchestrator.NewDebugLoggerForOutput(cfg.Output.Root)
	}

	dbPath := cfg.State.DBPath
	if dbPath == "" {
		dbPath = filepath.Join(cfg.Output.Root, "global", "taskforge.db")
	}
	db, err := state.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: history database unavailable: %v\n", err)
		db = nil
	} else if err := db.Migrate(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: history migration failed: %v\n", err)
		db.Close()
		db = nil
	}

	prov := provider.FromConfig(cfg)
	logger.Logf("provider selected: %s", prov.Name())
	demo, _ := prov.(*provider.Demo)

	generator := codegen.NewGenerator(prov,
		cfg.Generator.DefaultLanguage,
		cfg.Generator.TemplateDir,
		cfg.Generator.MaxTokens)

	mem := memory.NewStore()

	orch := orchestrator.New(orchestrator.Options{
		Planner:    planner.New(),
		Generator:  generator,
		Checker:    syntax.NewChecker(),
		Memory:     mem,
		Runner:     exec.NewRunner(),
		Logger:     logger,
		OutputRoot: cfg.Output.Root,
		ForceExe:   opts.forceExe,
	})

	sup := supervisor.New(supervisor.Options{
		Classifier:   intent.NewClassifier(),
		Orchestrator: orch,
		Memory:       mem,
		Registry:     agent.NewRegistry(logger),
		DB:           db,
	})

	return &app{
		cfg:        cfg,
		supervisor: sup,
		manager:    manager,
		db:         db,
		logger:     logger,
		demo:       demo,
	}, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	a.logger.Close()
}

// recordManifest updates the task manifest from a finished request.
func (a *app) recordManifest(description string, res models.RequestResult) {
	if res.Result == nil || res.Result.Result == nil {
		return
	}
	art := res.Result.Result.Artifacts
	if art.TaskSlug == "" {
		return
	}
	summaryPath := art.SpecPath
	if err := a.manager.UpdateManifestEntry(art.TaskSlug, description,
		summaryPath, art.ExecutableArtifact, len(art.GeneratedFiles)); err != nil {
		a.logger.Logf("manifest update failed for %s: %v", art.TaskSlug, err)
	}
}
