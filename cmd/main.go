package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	miniosdk "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/eduplex/identity-sync/internal/config"
	"github.com/eduplex/identity-sync/internal/logger"
	"github.com/eduplex/identity-sync/internal/model"
	"github.com/eduplex/identity-sync/internal/provider/cognito"
	"github.com/eduplex/identity-sync/internal/repository/postgres"
	"github.com/eduplex/identity-sync/internal/service"
	storage "github.com/eduplex/identity-sync/internal/storage/minio"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

const usage = `usage: identity-sync <command>

commands:
  sync                 full diff-based reconciliation (create/update/deactivate)
  sync-pages           page-wise create/update sweep, no orphan deactivation
  sync-user <id>       repair a single user by provider id
  stats                provider vs local population counts
  check                verify provider connectivity and pool configuration
  report <run-id>      print an archived run report
  version              print build information
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]

	if command == "version" {
		fmt.Printf("Build version: %s\nBuild date: %s\nBuild commit: %s\n", buildVersion, buildDate, buildCommit)
		return
	}

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel, cfg.LogJSON)

	if cfg.Cognito.UserPoolID == "" {
		logger.Fatal("COGNITO_USER_POOL_ID is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Cognito.Region))
	if err != nil {
		logger.Fatal("failed to load AWS configuration", "error", err)
	}

	provider := cognito.NewClient(cip.NewFromConfig(awsCfg), cognito.Options{
		UserPoolID:     cfg.Cognito.UserPoolID,
		PageSize:       cfg.Cognito.PageSize,
		PageDelay:      cfg.Cognito.PageDelay,
		RequestTimeout: cfg.Cognito.RequestTimeout,
		MaxRetries:     cfg.Cognito.MaxRetries,
	}, logger)

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer db.Close()

	userRepo := postgres.NewUserRepository(db)
	roleLinkRepo := postgres.NewRoleLinkRepository(db)

	var reports model.ReportArchive
	if cfg.Reports.Enabled {
		minioClient, err := miniosdk.New(cfg.Reports.Endpoint, &miniosdk.Options{
			Creds:  credentials.NewStaticV4(cfg.Reports.AccessKey, cfg.Reports.SecretKey, ""),
			Secure: cfg.Reports.UseSSL,
		})
		if err != nil {
			logger.Fatal("failed to create minio client", "error", err)
		}
		reports, err = storage.NewArchive(ctx, minioClient, cfg.Reports.Bucket)
		if err != nil {
			logger.Fatal("failed to initialize report archive", "error", err)
		}
	}

	syncService := service.NewSync(provider, userRepo, roleLinkRepo, reports, logger)

	runCtx, cancel := context.WithTimeout(ctx, cfg.Sync.RunTimeout)
	defer cancel()

	switch command {
	case "sync":
		result, err := syncService.RunFullSync(runCtx)
		if err != nil {
			logger.Fatal("sync did not run", "error", err)
		}
		fmt.Print(result.Summary())

	case "sync-pages":
		result, err := syncService.RunPaginatedFullSync(runCtx)
		if err != nil {
			logger.Fatal("paginated sync aborted",
				"users_processed", result.UsersProcessed,
				"error", err)
		}
		fmt.Printf("Processed %d users (success: %t)\n", result.UsersProcessed, result.Success)

	case "sync-user":
		if len(os.Args) < 3 {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		result, err := syncService.SyncOne(runCtx, os.Args[2])
		if err != nil {
			logger.Fatal("failed to sync user", "error", err)
		}
		fmt.Println(result.Message)

	case "stats":
		stats, err := syncService.Statistics(runCtx)
		if err != nil {
			logger.Fatal("failed to collect statistics", "error", err)
		}
		fmt.Printf("Provider users: %d\nLocal users:    %d\nSync needed:    %t\n",
			stats.ProviderUserCount, stats.LocalUserCount, stats.SyncNeeded)

	case "check":
		status, err := syncService.TestConnection(runCtx)
		if err != nil {
			logger.Fatal("connection test failed", "error", err)
		}
		fmt.Println(status.Message)

	case "report":
		if len(os.Args) < 3 {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		report, err := syncService.FetchReport(runCtx, os.Args[2])
		if err != nil {
			logger.Fatal("failed to fetch report", "error", err)
		}
		fmt.Print(report)

	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}
