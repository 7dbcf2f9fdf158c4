package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"musicresolver/internal/core"
	"musicresolver/internal/flood"
	httpserver "musicresolver/internal/http"
	"musicresolver/pkg/text"
)

func newResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <text or link>",
		Short: "Resolve a link or search text to the best matching track",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithResolver(cmd, func(ctx context.Context, resolver *core.Resolver) (any, error) {
				input := text.NewParser().Parse(strings.Join(args, " "))
				return resolver.Best(ctx, core.Query(input.Query()), playOptions(cmd))
			})
		},
	}
	addPlayFlags(cmd)
	return cmd
}

func newLinkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link <url>",
		Short: "Resolve a single track link without falling back to search",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithResolver(cmd, func(ctx context.Context, resolver *core.Resolver) (any, error) {
				input := text.NewParser().Parse(args[0])
				track, err := resolver.Link(ctx, input.Query(), playOptions(cmd))
				if err != nil {
					return nil, err
				}
				if track == nil {
					return nil, fmt.Errorf("%q is not a supported track link", args[0])
				}
				return track, nil
			})
		},
	}
	addPlayFlags(cmd)
	return cmd
}

func newPlaylistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "playlist <url>",
		Short: "Resolve a playlist, album or mix link to its tracks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := core.DefaultPlaylistOptions()
			opts.PlayOptions = playOptions(cmd)
			opts.MaxSongs, _ = cmd.Flags().GetInt("max")
			opts.Shuffle, _ = cmd.Flags().GetBool("shuffle")
			opts.Unique, _ = cmd.Flags().GetBool("unique")

			return runWithResolver(cmd, func(ctx context.Context, resolver *core.Resolver) (any, error) {
				input := text.NewParser().Parse(args[0])
				return resolver.Playlist(ctx, core.Query(input.Query()), opts)
			})
		},
	}
	addPlayFlags(cmd)
	cmd.Flags().Int("max", core.NoLimit, "keep only the first N source entries (-1 keeps all)")
	cmd.Flags().Bool("shuffle", false, "shuffle the resolved tracks")
	cmd.Flags().Bool("unique", false, "drop tracks resolving to a URL already in the playlist")
	return cmd
}

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "List YouTube video results for search text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			return runWithResolver(cmd, func(ctx context.Context, resolver *core.Resolver) (any, error) {
				return resolver.Search(ctx, strings.Join(args, " "), playOptions(cmd), limit)
			})
		},
	}
	addPlayFlags(cmd)
	cmd.Flags().Int("limit", core.DefaultSearchLimit, "maximum number of results")
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the resolver HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServer()
		},
	}
}

func addPlayFlags(cmd *cobra.Command) {
	cmd.Flags().String("upload-date", "", "search upload date filter (hour, today, week, month, year)")
	cmd.Flags().String("duration", "", "search duration filter, matched as a label prefix (under, over)")
	cmd.Flags().String("sort-by", "", "search sort order (relevance, upload date, view, rating)")
	cmd.Flags().Bool("timecode", false, "honour the start time of YouTube links")
}

func playOptions(cmd *cobra.Command) core.PlayOptions {
	var opts core.PlayOptions
	opts.UploadDate, _ = cmd.Flags().GetString("upload-date")
	opts.Duration, _ = cmd.Flags().GetString("duration")
	opts.SortBy, _ = cmd.Flags().GetString("sort-by")
	opts.Timecode, _ = cmd.Flags().GetBool("timecode")
	return opts
}

type resolveFunc func(ctx context.Context, resolver *core.Resolver) (any, error)

func runWithResolver(cmd *cobra.Command, run resolveFunc) error {
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svcs, err := initializeServices(ctx, nil)
	if err != nil {
		return err
	}
	defer svcs.Close()

	result, err := run(ctx, svcs.resolver)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}

func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func runServer() error {
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting musicresolver",
		zap.String("cache_backend", config.Cache.Backend),
		zap.Bool("youtube_data_api", config.YouTube.APIKey != ""),
		zap.Bool("spotify_web_api", config.Spotify.ClientID != ""),
		zap.Int("flood_limit_per_minute", config.App.FloodLimitPerMinute))

	metrics := httpserver.NewMetrics()
	svcs, err := initializeServices(ctx, metrics)
	if err != nil {
		return err
	}
	defer svcs.Close()

	floodgate := flood.New(config.App.FloodLimitPerMinute)
	defer floodgate.Stop()

	server := httpserver.NewServer(&config.Server, svcs.resolver, metrics, floodgate,
		logger.Named("http"), svcs.checks...)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gCtx)
	})

	logger.Info("musicresolver started successfully",
		zap.String("http_addr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)))

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("musicresolver stopped with error", zap.Error(err))
		return err
	}

	logger.Info("musicresolver stopped gracefully")
	return nil
}
