package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dokianime/internal/hls"
	"dokianime/internal/playback"
	"dokianime/internal/views"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func loadingObserver(cmd *cobra.Command, what string) views.Observer {
	return func(s views.Status) {
		if s == views.Loading {
			status(cmd, "Loading %s...", what)
		}
	}
}

func newRecentCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "recent",
		Short: "List recently released episodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			view := views.LoadRecent(cmd.Context(), client, loadingObserver(cmd, "recent episodes"))
			if view.Status == views.Failed {
				return errors.New(view.Message)
			}

			rows := make([][]string, 0, len(view.Entries))
			for _, e := range view.Entries {
				rows = append(rows, []string{e.ID, e.Title, e.EpisodeTitle})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Title", "Latest"}, rows, nil))
			return nil
		},
	}
}

func newSearchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query...>",
		Short: "Search the catalog by title",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			view := views.Search(cmd.Context(), client, strings.Join(args, " "), loadingObserver(cmd, "search results"))
			switch view.Status {
			case views.Idle:
				return errors.New("search query is required")
			case views.Failed:
				return errors.New(view.Message)
			case views.Empty:
				fmt.Fprintln(cmd.OutOrStdout(), view.Message)
				return nil
			}

			rows := make([][]string, 0, len(view.Results))
			for _, r := range view.Results {
				rows = append(rows, []string{r.ID, r.Title})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Title"}, rows, nil))
			return nil
		},
	}
}

func newDetailsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "details <animeId>",
		Short: "Show an entry and its episodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			view := views.LoadDetails(cmd.Context(), client, args[0], loadingObserver(cmd, "details"))
			if view.Status == views.Failed {
				return errors.New(view.Message)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, view.Title)
			fmt.Fprintln(out, view.Description)
			fmt.Fprintln(out)
			if view.EpisodesMessage != "" {
				fmt.Fprintln(out, view.EpisodesMessage)
				return nil
			}
			rows := make([][]string, 0, len(view.Episodes))
			for i, ep := range view.Episodes {
				rows = append(rows, []string{strconv.Itoa(i + 1), views.EpisodeLabel(ep), ep.ID})
			}
			fmt.Fprintln(out, renderTable([]string{"#", "Episode", "ID"}, rows, []columnAlignment{alignRight}))
			return nil
		},
	}
}

func newPlayCommand(ctx *commandContext) *cobra.Command {
	var (
		native   bool
		noEngine bool
		wait     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "play <animeId> <episodeId> | play <animeId,episodeId>",
		Short: "Resolve an episode and run it through the playback pipeline",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			animeID, episodeID, err := episodeArgs(args)
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}

			logger := ctx.logger(cmd.ErrOrStderr())
			httpc := &http.Client{Timeout: ctx.timeout}
			rt := &hls.Runtime{
				Options:       hls.Options{HTTPClient: httpc, Logger: logger},
				NativeHLS:     native,
				DisableEngine: noEngine,
			}

			updates := make(chan playback.Snapshot, 16)
			surface := playback.SurfaceFunc(func(s playback.Snapshot) {
				select {
				case updates <- s:
				default:
				}
			})
			pipeline := playback.New(client, rt, playback.Options{Surface: surface, Logger: logger})
			defer pipeline.Close()

			status(cmd, playback.MsgLoading)
			snap, err := pipeline.Load(cmd.Context(), animeID, episodeID)
			if err != nil {
				return err
			}
			if snap.State == playback.Playing && !snap.Started {
				snap = awaitStart(cmd, pipeline, updates, wait)
			}

			out := cmd.OutOrStdout()
			rows := [][]string{
				{"State", snap.State.String()},
				{"Strategy", string(snap.Strategy)},
				{"Stream", snap.StreamURL},
				{"Started", strconv.FormatBool(snap.Started)},
			}
			if snap.Message != "" {
				rows = append(rows, []string{"Message", snap.Message})
			}
			fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))

			if snap.State != playback.Playing {
				return errors.New(snap.Message)
			}
			return printLevels(cmd, httpc, snap.StreamURL)
		},
	}

	cmd.Flags().BoolVar(&native, "native", false, "Report native HLS support on the media element")
	cmd.Flags().BoolVar(&noEngine, "no-engine", false, "Disable the software engine and use native playback")
	cmd.Flags().DurationVar(&wait, "wait", 30*time.Second, "How long to wait for playback to start")
	return cmd
}

func episodeArgs(args []string) (string, string, error) {
	if len(args) == 2 {
		return args[0], args[1], nil
	}
	parts := strings.Split(args[0], ",")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid episode %q, expected animeId,episodeId", args[0])
	}
	return parts[0], parts[1], nil
}

// awaitStart waits until playback starts or the session settles elsewhere.
func awaitStart(cmd *cobra.Command, p *playback.Pipeline, updates <-chan playback.Snapshot, wait time.Duration) playback.Snapshot {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	for {
		select {
		case s := <-updates:
			if s.Started || s.State.Terminal() {
				return s
			}
		case <-timer.C:
			return p.Snapshot()
		case <-cmd.Context().Done():
			return p.Snapshot()
		}
	}
}

func printLevels(cmd *cobra.Command, httpc *http.Client, streamURL string) error {
	manifest, err := hls.FetchManifest(cmd.Context(), httpc, streamURL, hls.FetchOptions{})
	if err != nil {
		return fmt.Errorf("inspect manifest: %w", err)
	}
	rows := make([][]string, 0, len(manifest.Levels))
	for _, lvl := range manifest.Levels {
		bw := "-"
		if lvl.Bandwidth > 0 {
			bw = humanize.Bytes(uint64(lvl.Bandwidth)/8) + "/s"
		}
		rows = append(rows, []string{bw, lvl.Resolution, lvl.Codecs, lvl.URI})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Bandwidth", "Resolution", "Codecs", "URI"}, rows, []columnAlignment{alignRight}))
	return nil
}
