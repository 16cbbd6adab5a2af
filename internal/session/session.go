// Package session wires configuration, credentials and collaborators for the CLI commands.
package session

import (
	"context"
	"fmt"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"
	"github.com/hashicorp/go-hclog"

	"github.com/gash-io/gash/internal/detectors"
	"github.com/gash-io/gash/internal/git"
	"github.com/gash-io/gash/internal/githubapi"
	"github.com/gash-io/gash/internal/marketplace"
	"github.com/gash-io/gash/internal/replay"
	"github.com/gash-io/gash/internal/retry"
	"github.com/gash-io/gash/pkg/shared/config"
)

// Session holds the collaborators of one command invocation.
type Session struct {
	Config *config.Config
	Logger hclog.Logger
	Token  string
	// GitHub is nil for offline sessions.
	GitHub *githubapi.Client
	Badges *marketplace.Checker

	credentialsPath string
}

// Options select how a session is opened.
type Options struct {
	TokenFlag string
	Offline   bool
	// CredentialsPath overrides the persisted credentials location.
	CredentialsPath string
	Lookup          config.LookupFunc
}

// Open resolves the token and, unless offline, validates it against the rate-limit
// endpoint. Missing or invalid credentials fail here, before any analysis.
func Open(ctx context.Context, cfg *config.Config, logger hclog.Logger, opts Options) (*Session, error) {
	if cfg == nil {
		cfg = &config.Config{}
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	credentialsPath := opts.CredentialsPath
	if credentialsPath == "" {
		credentialsPath = config.CredentialsPath()
	}

	s := &Session{Config: cfg, Logger: logger, credentialsPath: credentialsPath}
	if opts.Offline || config.GetBoolValue(cfg, "Detectors.Offline", false) {
		logger.Info("offline session, platform lookups disabled")
		return s, nil
	}

	token, source := config.ResolveToken(opts.TokenFlag, cfg, opts.Lookup, credentialsPath)
	client, err := githubapi.New(ctx, logger.Named("github"), cfg, token)
	if err != nil {
		return nil, err
	}
	if _, err := client.ValidateToken(ctx); err != nil {
		logger.Error("GitHub credentials rejected", "source", source, "error", err)
		return nil, err
	}
	if source != config.TokenSourceCredentials {
		if err := config.SaveToken(credentialsPath, token); err != nil {
			logger.Warn("failed to persist token", "path", credentialsPath, "error", err)
		}
	}

	s.Token = token
	s.GitHub = client
	s.Badges = marketplace.New(logger.Named("marketplace"), cfg)
	return s, nil
}

// Online reports whether platform lookups are available.
func (s *Session) Online() bool {
	return s.GitHub != nil
}

// DetectorOptions builds detector options from the configuration and the session collaborators.
func (s *Session) DetectorOptions() detectors.Options {
	opts := detectors.Options{
		ReplicaThreshold: config.SetThen(s.Config.Detectors.ReplicaThreshold, config.DefaultReplicaThreshold),
		MaxGlobalVars:    config.SetThen(s.Config.Detectors.MaxGlobalVars, config.DefaultMaxGlobalVars),
		Retry:            retry.Default(s.Logger),
		Logger:           s.Logger.Named("detectors"),
	}
	if s.GitHub != nil {
		opts.Verifier = s.GitHub
	}
	if s.Badges != nil {
		opts.Badges = s.Badges
	}
	return opts
}

// Runner builds a detector runner. Explicit names win over the configured enabled list.
func (s *Session) Runner(names ...string) (*detectors.Runner, error) {
	if len(names) == 0 {
		names = s.Config.Detectors.Enabled
	}
	return detectors.NewRunner(s.DetectorOptions(), names...)
}

// OutputFolder is the configured output root.
func (s *Session) OutputFolder() string {
	return config.GetOutputFolder(s.Config)
}

// ReplayURL clones the repository at rawURL and replays its workflow history.
func (s *Session) ReplayURL(ctx context.Context, rawURL string) (replay.Summary, error) {
	loc, err := git.ParseLocator(rawURL)
	if err != nil {
		return replay.Summary{}, err
	}
	client, err := git.New(s.Logger.Named("git"), s.Config, s.Token)
	if err != nil {
		return replay.Summary{}, err
	}
	target := filepath.Join(s.OutputFolder(), "repos", loc.FolderName())
	repo, err := client.CloneRepository(ctx, loc, target)
	if err != nil {
		return replay.Summary{}, err
	}
	return s.Replay(ctx, repo, &loc, loc.FolderName())
}

// ReplayLocal replays an existing checkout. Platform metadata is only fetched when its
// origin is a GitHub repository.
func (s *Session) ReplayLocal(ctx context.Context, path string) (replay.Summary, error) {
	repo, md, err := git.OpenLocal(path)
	if err != nil {
		return replay.Summary{}, err
	}
	project := filepath.Base(md.RootFolder)
	if md.Locator != nil {
		project = md.Locator.FolderName()
	}
	return s.Replay(ctx, repo, md.Locator, project)
}

// Replay runs a replay session over repo and writes the dataset of project.
func (s *Session) Replay(ctx context.Context, repo *gogit.Repository, loc *git.Locator, project string) (replay.Summary, error) {
	runner, err := s.Runner()
	if err != nil {
		return replay.Summary{}, err
	}

	path := replay.DatasetPath(s.OutputFolder(), project)
	sink, err := replay.CreateCSVSink(path, runner.Names())
	if err != nil {
		return replay.Summary{}, err
	}
	defer func() {
		if cerr := sink.Close(); cerr != nil {
			s.Logger.Error("failed to close dataset", "path", path, "error", cerr)
		}
	}()

	cfg := replay.Config{
		Project:  project,
		Provider: git.NewProvider(repo, githubapi.WorkflowsDir, s.Logger.Named("history")),
		Battery:  runner,
		Archive:  replay.NewArchive(s.OutputFolder(), project),
		Sink:     sink,
		Retry:    retry.Default(s.Logger),
		Logger:   s.Logger.Named("replay"),
	}
	if loc != nil && s.GitHub != nil {
		cfg.Owner, cfg.Repo = loc.Owner, loc.Name
		cfg.Metadata = s.GitHub
	}

	engine, err := replay.NewEngine(cfg)
	if err != nil {
		return replay.Summary{}, err
	}
	summary, err := engine.Run(ctx)
	if err != nil {
		return summary, fmt.Errorf("replay %s: %w", project, err)
	}
	s.Logger.Info("dataset written", "path", path, "archive", cfg.Archive.Root())
	return summary, nil
}
