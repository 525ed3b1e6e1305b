package app

import (
	"context"
	"fmt"

	"github.com/vk/seqci/internal/ctxlog"
	"github.com/vk/seqci/internal/dag"
	"github.com/vk/seqci/internal/envfile"
	"github.com/vk/seqci/internal/executor"
	"github.com/vk/seqci/internal/imagetag"
)

// Run executes the main application logic based on the provided configuration.
func (a *App) Run(ctx context.Context, appConfig *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	env, err := a.prepareRunEnv(appConfig)
	if err != nil {
		return err
	}

	if appConfig.StatusPort > 0 {
		go a.startStatusServer(appConfig.StatusPort)
	}

	a.logger.Debug("Building dependency graph from config model...")
	graph, err := dag.Build(ctx, a.config)
	if err != nil {
		return fmt.Errorf("failed to build dependency graph: %w", err)
	}
	a.logger.Debug("Dependency graph built.", "node_count", len(graph.Nodes))

	if len(graph.Nodes) == 0 {
		a.logger.Warn("No nodes found in graph, execution not required.")
		return nil
	}

	a.logger.Info("🚀 Starting concurrent execution...", "workers", appConfig.WorkerCount)
	exec := executor.New(graph, appConfig.WorkerCount, a.registry, a.converter,
		executor.WithEnv(env.Snapshot()),
		executor.WithStateCallback(a.status.NodeStateChanged),
	)
	if err := exec.Run(ctx); err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	a.logger.Info("🏁 Execution finished.")

	a.logger.Debug("App.Run method finished.")
	return nil
}

// prepareRunEnv loads the shared run environment and pins the run-scoped
// image tag. The tag is composed exactly once per run; every job reads the
// same value through the env file.
func (a *App) prepareRunEnv(appConfig *Config) (*envfile.Env, error) {
	env, err := envfile.Load(appConfig.EnvFile)
	if err != nil {
		return nil, fmt.Errorf("loading run environment: %w", err)
	}

	repo := env.Get(envfile.KeyRepoName)
	branch := env.Get(envfile.KeyBranch)
	if repo == "" || branch == "" {
		// Not running under CI; jobs that need the tag will say so.
		a.logger.Debug("Repository or branch not set, skipping image tag composition.")
		return env, nil
	}

	workflowID, err := env.WorkflowID()
	if err != nil {
		return nil, err
	}

	tag, err := imagetag.New(repo, branch, workflowID)
	if err != nil {
		return nil, fmt.Errorf("composing image tag: %w", err)
	}
	if err := env.SetOnce(envfile.KeyImageTag, tag.String()); err != nil {
		return nil, err
	}
	if err := env.SetOnce(envfile.KeyTemplateTag, tag.Template()); err != nil {
		return nil, err
	}
	a.logger.Info("Image tags pinned for run.", "tag", tag.String(), "template", tag.Template())
	return env, nil
}
