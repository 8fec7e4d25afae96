// Command oracle-replay replays a JSON observation transcript against
// a declared starting hand for South and prints the resulting opponent
// hand marginals. It is batch and non-interactive, driven entirely by
// flags and a transcript file, which must be given with -transcript.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/azen-engine/pkg/config"
	"github.com/azen-engine/pkg/domino"
	"github.com/azen-engine/pkg/inference"
	"github.com/azen-engine/pkg/oracle"
	"github.com/azen-engine/pkg/tiles"
	"github.com/azen-engine/pkg/transcript"
)

func main() {
	handFlag := flag.String("hand", "", "South's 7 tiles, e.g. 0-1,1-3,2-5,3-3,4-6,5-5,6-6")
	transcriptFlag := flag.String("transcript", "", "path to a JSON observation transcript")
	configFlag := flag.String("config", "", "optional YAML session config override")
	deadlineFlag := flag.Duration("deadline", 10*time.Second, "marginal computation deadline")
	verboseFlag := flag.Bool("v", false, "log each observation as it is replayed")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if !*verboseFlag {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}

	handS, err := parseHand(*handFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	cfg := config.Default()
	if *configFlag != "" {
		cfg, err = config.Load(*configFlag)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error loading config:", err)
			os.Exit(1)
		}
	}

	session, err := oracle.New(handS, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error creating session:", err)
		os.Exit(1)
	}

	obs, err := transcript.Load(*transcriptFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error loading transcript:", err)
		os.Exit(1)
	}

	for i, o := range obs {
		if err := session.Apply(o); err != nil {
			fmt.Fprintf(os.Stderr, "error applying observation %d (%s): %v\n", i, o, err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *deadlineFlag)
	defer cancel()

	m, err := session.Marginals(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error computing marginals:", err)
		os.Exit(1)
	}

	printMarginals(m, session)
}

func printMarginals(m *inference.Marginals, session *oracle.Session) {
	unknown := session.Store().Unknown().Slice()
	sort.Slice(unknown, func(i, j int) bool { return unknown[i].Index() < unknown[j].Index() })

	fmt.Printf("method=%s samples=%d\n", m.Method, m.Samples)
	fmt.Printf("%-6s %6s %6s %6s\n", "tile", "W", "N", "E")
	for _, t := range unknown {
		fmt.Printf("%-6s", t.String())
		for _, p := range domino.Opponents {
			fmt.Printf(" %6.3f", m.At(p, t))
		}
		fmt.Println()
	}
}

func parseHand(spec string) (tiles.Set, error) {
	if spec == "" {
		return 0, fmt.Errorf("must supply -hand")
	}
	parts := strings.Split(spec, ",")
	ts := make([]tiles.Tile, 0, len(parts))
	for _, p := range parts {
		ab := strings.Split(strings.TrimSpace(p), "-")
		if len(ab) != 2 {
			return 0, fmt.Errorf("malformed tile %q, want a-b", p)
		}
		a, err := strconv.Atoi(ab[0])
		if err != nil {
			return 0, err
		}
		b, err := strconv.Atoi(ab[1])
		if err != nil {
			return 0, err
		}
		ts = append(ts, tiles.New(a, b))
	}
	return tiles.NewSet(ts...), nil
}
