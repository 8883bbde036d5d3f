package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"vkarchiver/internal/downloader"
	"vkarchiver/pkg/archive"
	"vkarchiver/pkg/auth"
	"vkarchiver/pkg/config"
	"vkarchiver/pkg/consistency"
	"vkarchiver/pkg/logger"
	"vkarchiver/pkg/ratelimit"
	"vkarchiver/pkg/retry"
	"vkarchiver/pkg/ui"
	"vkarchiver/pkg/vkapi"
)

var (
	archiveMaxItems    int
	archiveConcurrency int
	archiveOutputDir   string
	archiveRestart     bool
	archiveChat        bool
)

var archiveCmd = &cobra.Command{
	Use:   "archive <id|screen-name>",
	Short: "Archive all media of a VK user or group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runArchive(args[0])
	},
}

func init() {
	archiveCmd.Flags().IntVar(&archiveMaxItems, "max-items", 0, "cap items per content type (0 = all)")
	archiveCmd.Flags().IntVar(&archiveConcurrency, "concurrency", 0, "concurrent downloads (overrides config)")
	archiveCmd.Flags().StringVarP(&archiveOutputDir, "output", "o", "", "output directory (overrides config)")
	archiveCmd.Flags().BoolVar(&archiveRestart, "restart", false, "reset resume cursors and re-scan from the beginning")
	archiveCmd.Flags().BoolVar(&archiveChat, "chat", false, "treat the argument as a conversation peer id and archive its attachments")
	rootCmd.AddCommand(archiveCmd)
}

func runArchive(target string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if archiveConcurrency > 0 {
		cfg.Download.Concurrency = archiveConcurrency
	}
	if archiveOutputDir != "" {
		cfg.Output.BaseDirectory = archiveOutputDir
		cfg.Output.ConsistencyFile = filepath.Join(archiveOutputDir, "downloaded.json")
	}
	if archiveMaxItems > 0 {
		cfg.Download.MaxItems = archiveMaxItems
	}

	if err := logger.Initialize(logger.Options{Level: cfg.Logging.Level, File: cfg.Logging.File}); err != nil {
		return err
	}
	log := logger.GetLogger()

	token, err := resolveToken(cfg)
	if err != nil {
		return err
	}

	limiter, err := ratelimit.New(cfg.RateLimit.RequestsPerSecond, log)
	if err != nil {
		return err
	}

	client := vkapi.NewClient(token, log)
	exec := vkapi.NewExecutor(client, limiter, vkapi.ExecutorConfig{
		MaxRetries: cfg.RateLimit.MaxRetries,
		Backoff: &retry.ExponentialBackoff{
			Base:       cfg.RateLimit.BackoffBase.Std(),
			Multiplier: 2.0,
			Jitter:     cfg.RateLimit.BackoffJitter.Std(),
		},
		CallTimeout: cfg.RateLimit.CallTimeout.Std(),
	}, log)

	store, err := consistency.Open(cfg.Output.ConsistencyFile, log)
	if err != nil {
		return err
	}
	defer store.Close()

	tracker := ui.NewStatusTracker()
	fetcher := downloader.NewHTTPFetcher(cfg.Download.DownloadTimeout.Std())
	pool := downloader.NewPool(cfg.Download.Concurrency, fetcher, store, log)
	pool.OnResult(func(res downloader.Result) {
		switch res.Status {
		case downloader.StatusDownloaded:
			tracker.RecordDownloaded()
		case downloader.StatusSkipped:
			tracker.RecordSkipped()
		case downloader.StatusFailed:
			tracker.RecordFailed()
		}
	})

	// An interrupt cancels cleanly; the persisted cursors and the
	// consistency record make the next invocation resume safely.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if archiveChat {
		return runArchiveChat(ctx, target, cfg, exec, store, pool, tracker, log)
	}

	// Resolve first so the archive directory carries a readable name.
	probe := archive.New(exec, store, pool, cfg.Output.BaseDirectory, archive.Options{}, log)
	resolved, err := probe.Resolve(ctx, target)
	if err != nil {
		return err
	}
	ui.PrintInfo("Archiving", fmt.Sprintf("%s %q (id %d)", resolved.Kind, resolved.Name, resolved.ID))

	targetDir := filepath.Join(cfg.Output.BaseDirectory, fmt.Sprintf("%d-%s", resolved.ID, resolved.Name))
	archiver := archive.New(exec, store, pool, targetDir, archive.Options{
		MaxItems: cfg.Download.MaxItems,
		PageSize: cfg.Download.PageSize,
	}, log)

	if archiveRestart {
		if err := archiver.ResetResume(); err != nil {
			return err
		}
	}

	summary := archiver.Run(ctx, resolved)
	tracker.PrintSummary()

	if summary.Failed > 0 {
		ui.PrintError(fmt.Sprintf("%d items failed; see *_error.txt markers under %s", summary.Failed, targetDir))
	} else {
		ui.PrintSuccess("Archive complete")
	}
	return nil
}

// runArchiveChat archives one conversation's attachments. The argument is the
// numeric peer id (user id for a dialog, 2000000000+chat_id for a group chat).
func runArchiveChat(ctx context.Context, arg string, cfg *config.Config, exec archive.Invoker,
	store *consistency.Store, pool *downloader.Pool, tracker *ui.StatusTracker, log logger.Logger) error {
	peerID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return fmt.Errorf("--chat requires a numeric peer id, got %q", arg)
	}
	ui.PrintInfo("Archiving chat", arg)

	targetDir := filepath.Join(cfg.Output.BaseDirectory, "chats")
	archiver := archive.New(exec, store, pool, targetDir, archive.Options{
		MaxItems: cfg.Download.MaxItems,
		PageSize: cfg.Download.PageSize,
	}, log)
	if archiveRestart {
		if err := archiver.ResetResume(); err != nil {
			return err
		}
	}

	summary, err := archiver.DownloadChat(ctx, peerID)
	tracker.PrintSummary()
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		ui.PrintError(fmt.Sprintf("%d items failed; see *_error.txt markers under %s", summary.Failed, targetDir))
	} else {
		ui.PrintSuccess("Archive complete")
	}
	return nil
}

// resolveToken finds the access token: config/env first, then the stored
// token, finally an interactive prompt.
func resolveToken(cfg *config.Config) (string, error) {
	if cfg.VK.AccessToken != "" {
		return cfg.VK.AccessToken, nil
	}
	if token, err := auth.NewEnvStore().Retrieve(); err == nil {
		return token, nil
	}
	store, err := auth.NewStore()
	if err == nil {
		if token, err := store.Retrieve(); err == nil {
			return token, nil
		} else if !errors.Is(err, auth.ErrTokenNotFound) {
			return "", err
		}
	}
	return auth.PromptToken()
}
