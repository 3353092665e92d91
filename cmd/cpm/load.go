package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/NHSDigital/connecting-party-manager-sub002/internal/domain"
	"github.com/NHSDigital/connecting-party-manager-sub002/internal/etl/load"
)

type loadOptions struct {
	*rootOptions
	File      string
	Events    bool
	GroupSize int
}

func newLoadCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &loadOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load an NDJSON file into the registry",
		Long: `Load newline-delimited JSON into the registry.

By default each line is an entity snapshot ({"kind":..., "state":...}) and the
file is written through the bulk path. With --events each line is an event
envelope ({"event":..., "data":...}) and the events are replayed in order;
creations that already exist are skipped, so the load can be rerun.

Examples:
  cpm load --file snapshot.ndjson
  cpm load --file changes.ndjson --events`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLoad(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "NDJSON input file, - for stdin (required)")
	_ = cmd.MarkFlagRequired("file")
	cmd.Flags().BoolVar(&opts.Events, "events", false, "treat lines as event envelopes and replay them")
	cmd.Flags().IntVar(&opts.GroupSize, "group-size", 0, "entities per bulk write (0 uses the default)")

	return cmd
}

func runLoad(ctx context.Context, opts *loadOptions, out io.Writer) error {
	in, err := openInput(opts.File)
	if err != nil {
		return err
	}
	defer in.Close()

	a, err := newApp(ctx, opts.cfg, opts.logger)
	if err != nil {
		return err
	}
	defer a.Close()

	loader, err := load.New(a.repo, load.WithLogger(opts.logger), load.WithBulkGroupSize(opts.GroupSize))
	if err != nil {
		return err
	}

	var result any
	if opts.Events {
		events, err := readEvents(in)
		if err != nil {
			return err
		}
		result, err = loader.Replay(ctx, events)
		if err != nil {
			return err
		}
	} else {
		result, err = loader.Bulk(ctx, in)
		if err != nil {
			return err
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

func readEvents(r io.Reader) ([]domain.Event, error) {
	var events []domain.Event
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var env load.Envelope
		if err := json.Unmarshal(scanner.Bytes(), &env); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		e, err := env.Decode()
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return events, nil
}
