// Command packager builds dependency archives and deployable project
// zips from the command line.
//
// Usage:
//
//	packager modules -manifest package.json [-cache s3://bucket/prefix] [-work DIR] [-materialize]
//	packager project -source BUNDLE -target DEST [-cache s3://bucket/prefix] [-keep]
//
// Store credentials are read from the environment (AWS_ACCESS_KEY_ID,
// AWS_SECRET_ACCESS_KEY), optionally loaded from a .env file. An
// optional packager.yaml configures the endpoint, installer, and
// compressor mode.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	packager "github.com/malczak/lambda-node-packager"
	"github.com/malczak/lambda-node-packager/archive"
	"github.com/malczak/lambda-node-packager/manifest"
	"github.com/malczak/lambda-node-packager/store"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "modules":
		err = runModules(ctx, os.Args[2:])
	case "project":
		err = runProject(ctx, os.Args[2:])
	case "-h", "-help", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "packager:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  packager modules -manifest package.json [-cache s3://bucket/prefix] [-work DIR] [-materialize]
  packager project -source BUNDLE -target DEST [-cache s3://bucket/prefix] [-keep]

common flags:
  -config FILE   YAML configuration (default packager.yaml if present)
  -env FILE      .env file with store credentials (default .env if present)
  -log-level L   debug, info, warn, or error (default info)`)
}

// commonFlags are shared by both subcommands.
type commonFlags struct {
	configPath string
	envPath    string
	logLevel   string
	cache      string
}

func registerCommon(fs *flag.FlagSet, cf *commonFlags) {
	fs.StringVar(&cf.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&cf.envPath, "env", "", ".env file with store credentials")
	fs.StringVar(&cf.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&cf.cache, "cache", "", "dependency cache location (s3://bucket/prefix)")
}

func runModules(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("modules", flag.ExitOnError)
	var cf commonFlags
	registerCommon(fs, &cf)
	manifestPath := fs.String("manifest", "package.json", "manifest file to build")
	workDir := fs.String("work", "", "working directory (temporary when empty)")
	materialize := fs.Bool("materialize", false, "extract the dependency tree into the working directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, logger, cache, err := buildClient(cf)
	if err != nil {
		return err
	}

	m, err := manifest.Load(*manifestPath)
	if err != nil {
		return err
	}

	res, err := c.BuildModules(ctx, packager.BuildRequest{
		Manifest:      m,
		CacheLocation: cache,
		WorkDir:       *workDir,
		Materialize:   *materialize,
	})
	if err != nil {
		return err
	}

	logger.Info("modules built",
		"archive", res.ArchiveName,
		"cache_hit", res.CacheHit,
		"work_dir", res.WorkDir)
	fmt.Println(res.ArchiveName)
	return nil
}

func runProject(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("project", flag.ExitOnError)
	var cf commonFlags
	registerCommon(fs, &cf)
	source := fs.String("source", "", "project bundle (s3://bucket/key or local .tgz)")
	target := fs.String("target", "", "destination (s3://bucket/prefix or local path)")
	keep := fs.Bool("keep", false, "retain the working root for debugging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *source == "" || *target == "" {
		return fmt.Errorf("project: -source and -target are required")
	}

	c, logger, cache, err := buildClient(cf)
	if err != nil {
		return err
	}

	resolved, err := c.PackageProject(ctx, packager.ProjectRequest{
		Source:        *source,
		Target:        *target,
		CacheLocation: cache,
		Keep:          *keep,
	})
	if err != nil {
		return err
	}

	logger.Info("project packaged", "target", resolved)
	fmt.Println(resolved)
	return nil
}

// buildClient assembles the packager client from flags, the optional
// config file, and environment credentials.
func buildClient(cf commonFlags) (*packager.Client, *slog.Logger, string, error) {
	if cf.envPath != "" {
		if err := godotenv.Load(cf.envPath); err != nil {
			return nil, nil, "", fmt.Errorf("load %s: %w", cf.envPath, err)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}

	cfg, err := loadFileConfig(cf.configPath)
	if err != nil {
		return nil, nil, "", err
	}

	level := cf.logLevel
	if level == "" {
		level = cfg.LogLevel
	}
	logger, err := newLogger(level)
	if err != nil {
		return nil, nil, "", err
	}

	mode, err := archive.ParseMode(cfg.Compressor)
	if err != nil {
		return nil, nil, "", err
	}

	opts := []packager.Option{
		packager.WithLogger(logger),
		packager.WithCompressorMode(mode),
	}
	if cfg.Installer != "" {
		opts = append(opts, packager.WithInstallerBin(cfg.Installer))
	}
	if cfg.Runtime.ProbeExclusions {
		opts = append(opts, packager.WithRuntimeProbedExclusions(cfg.Runtime.ModulesDir))
	}

	s, err := store.New(store.Config{
		Endpoint:  cfg.Store.Endpoint,
		Region:    firstNonEmpty(cfg.Store.Region, os.Getenv("AWS_REGION")),
		AccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		Insecure:  cfg.Store.Insecure,
		Logger:    logger,
	})
	if err != nil {
		return nil, nil, "", err
	}
	opts = append(opts, packager.WithStore(s))

	c, err := packager.NewClient(opts...)
	if err != nil {
		return nil, nil, "", err
	}
	return c, logger, firstNonEmpty(cf.cache, cfg.Cache), nil
}

func newLogger(level string) (*slog.Logger, error) {
	var l slog.Level
	switch level {
	case "", "info":
		l = slog.LevelInfo
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
