package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"lyrics-collector/internal/app"
	"lyrics-collector/internal/config"
	"lyrics-collector/internal/lyrics"
	"lyrics-collector/pkg/music"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cmd := &cli.Command{
		Name:  "lyrics-collector",
		Usage: "Search several music platforms for synchronized lyrics and save them as .lrc",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   config.DefaultPath(),
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
			&cli.BoolFlag{
				Name:  "concurrent",
				Usage: "Query all providers at the same time",
			},
		},
		Commands: []*cli.Command{
			searchCommand(),
			getCommand(),
			fileCommand(),
			nowPlayingCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		stop()
		switch {
		case errors.Is(err, app.ErrAborted):
			os.Exit(130)
		case errors.Is(err, app.ErrNotFound), errors.Is(err, app.ErrSkipped):
			log.Warn().Err(err).Msg("no lyrics written")
			return
		}
		log.Fatal().Err(err).Msg("application error")
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Print ranked lyric candidates for ARTIST TITLE",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "artist"},
			&cli.StringArg{Name: "title"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp(ctx, cmd, false)
			if err != nil {
				return err
			}
			return a.Search(ctx, cmd.StringArg("artist"), cmd.StringArg("title"))
		},
	}
}

func getCommand() *cli.Command {
	return &cli.Command{
		Name:  "get",
		Usage: "Fetch lyrics for ARTIST TITLE and write them to a .lrc file",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "artist"},
			&cli.StringArg{Name: "title"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output path, - for stdout",
			},
			&cli.BoolFlag{
				Name:  "first",
				Usage: "Use the first provider that returns lyrics",
			},
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "Take the best candidate without prompting",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp(ctx, cmd, cmd.Bool("yes"))
			if err != nil {
				return err
			}
			path, err := a.Get(ctx, cmd.StringArg("artist"), cmd.StringArg("title"), app.GetOptions{
				Output: cmd.String("output"),
				First:  cmd.Bool("first"),
			})
			if err != nil {
				return err
			}
			if path != "-" {
				fmt.Println(path)
			}
			return nil
		},
	}
}

func fileCommand() *cli.Command {
	return &cli.Command{
		Name:      "file",
		Usage:     "Fetch lyrics for audio files and write .lrc files next to them",
		ArgsUsage: "PATH...",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "skip-existing",
				Usage: "Skip files that already have a .lrc next to them",
			},
			&cli.BoolFlag{
				Name:    "recursive",
				Aliases: []string{"r"},
				Usage:   "Scan directories recursively",
			},
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "Take the best candidate without prompting",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			paths := cmd.Args().Slice()
			if len(paths) == 0 {
				return fmt.Errorf("at least one PATH is required")
			}
			a, err := newApp(ctx, cmd, cmd.Bool("yes"))
			if err != nil {
				return err
			}
			summary, err := a.Files(ctx, paths, app.FileOptions{
				SkipExisting: cmd.Bool("skip-existing"),
				Recursive:    cmd.Bool("recursive"),
			})
			fmt.Println(summary)
			return err
		},
	}
}

func nowPlayingCommand() *cli.Command {
	return &cli.Command{
		Name:  "now-playing",
		Usage: "Fetch lyrics for the track playing in an MPRIS player",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output path, - for stdout",
			},
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "Take the best candidate without prompting",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp(ctx, cmd, cmd.Bool("yes"))
			if err != nil {
				return err
			}
			path, err := a.NowPlaying(ctx, app.GetOptions{Output: cmd.String("output")})
			if err != nil {
				return err
			}
			if path != "-" {
				fmt.Println(path)
			}
			return nil
		},
	}
}

// newApp 加载配置、设置日志级别并组装依赖
func newApp(ctx context.Context, cmd *cli.Command, auto bool) (*app.App, error) {
	cfg := config.Load(cmd.String("config"))

	level, err := zerolog.ParseLevel(cfg.App.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if cmd.Bool("verbose") {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if cmd.Bool("concurrent") {
		cfg.App.Concurrent = true
	}

	manager, err := music.CreateManager(cfg.MusicConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create music manager: %w", err)
	}
	log.Debug().Strs("providers", manager.GetProviderNames()).Msg("Providers ready")

	aiClient, err := lyrics.NewAIClient(ctx, cfg.AI)
	if err != nil {
		log.Warn().Err(err).Msg("AI client unavailable, free-form titles will not be resolved")
		aiClient = nil
	}

	var selector app.Selector = app.NewPromptSelector()
	if auto {
		selector = app.AutoSelector{}
	}

	return app.New(app.Options{
		Config:    cfg,
		Collector: manager,
		Resolver:  lyrics.NewResolver(aiClient),
		Selector:  selector,
	}), nil
}
