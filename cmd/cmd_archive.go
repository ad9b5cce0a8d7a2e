package cmd

import (
	"log/slog"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/sss-network/sss-indexer/common/errs"
	"github.com/sss-network/sss-indexer/internal/config"
	"github.com/sss-network/sss-indexer/internal/postgres"
	stablecoinpostgres "github.com/sss-network/sss-indexer/modules/stablecoin/repository/postgres"
	"github.com/sss-network/sss-indexer/modules/stablecoin/usecase"
	"github.com/sss-network/sss-indexer/pkg/logger"
	"github.com/sss-network/sss-indexer/pkg/logger/slogx"
)

type archiveCmdOptions struct {
	From string
	To   string
}

func NewArchiveCommand() *cobra.Command {
	opts := &archiveCmdOptions{}

	cmd := &cobra.Command{
		Use:     "archive",
		Short:   "Archive the audit trail to S3 as a parquet file",
		Example: `sss archive --from 2024-01-01 --to 2024-02-01`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return archiveHandler(opts, cmd, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.From, "from", "", "Archive entries at or after this time (RFC3339 or YYYY-MM-DD). Default is the beginning")
	flags.StringVar(&opts.To, "to", "", "Archive entries at or before this time (RFC3339 or YYYY-MM-DD). Default is now")
	flags.String("bucket", "", "S3 bucket to upload to")
	flags.String("prefix", "", "Key prefix of the uploaded file")

	config.BindPFlag("archive.bucket", flags.Lookup("bucket"))
	config.BindPFlag("archive.prefix", flags.Lookup("prefix"))

	return cmd
}

func archiveHandler(opts *archiveCmdOptions, cmd *cobra.Command, _ []string) error {
	conf := config.Load()
	ctx := logger.WithContext(cmd.Context(), slogx.String("command", "archive"))

	from, err := parseArchiveTime(opts.From)
	if err != nil {
		return errors.Wrap(err, "invalid --from")
	}
	to, err := parseArchiveTime(opts.To)
	if err != nil {
		return errors.Wrap(err, "invalid --to")
	}
	if from != nil && to != nil && from.After(*to) {
		return errors.Wrap(errs.InvalidArgument, "--from must not be after --to")
	}

	switch strings.ToLower(conf.Modules.Stablecoin.Database) {
	case "postgresql", "postgres", "pg":
	default:
		return errors.Wrapf(errs.Unsupported, "archive needs a persistent database, %q is not supported", conf.Modules.Stablecoin.Database)
	}
	pg, err := postgres.NewPool(ctx, conf.Modules.Stablecoin.Postgres)
	if err != nil {
		return errors.Wrap(err, "can't create Postgres connection pool")
	}
	defer pg.Close()

	uploader, err := usecase.NewS3Uploader(ctx, usecase.S3Config{
		Bucket:   conf.Archive.Bucket,
		Region:   conf.Archive.Region,
		Endpoint: conf.Archive.Endpoint,
	})
	if err != nil {
		return errors.Wrap(err, "can't create S3 uploader")
	}

	stablecoinUsecase := usecase.New(stablecoinpostgres.NewRepository(pg), nil, nil, usecase.Config{
		ProgramID: conf.Modules.Stablecoin.ProgramID,
	})
	start := time.Now()
	result, err := stablecoinUsecase.ArchiveAuditTrail(ctx, from, to, conf.Archive.Prefix, uploader)
	if err != nil {
		return errors.Wrap(err, "failed to archive audit trail")
	}

	logger.InfoContext(ctx, "Archived audit trail",
		slogx.String("bucket", conf.Archive.Bucket),
		slogx.String("key", result.Key),
		slog.Int("rows", result.Rows),
		slogx.Duration("took", time.Since(start)),
	)
	return nil
}

func parseArchiveTime(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, errors.Wrapf(errs.InvalidArgument, "%q is neither RFC3339 nor YYYY-MM-DD", value)
}
