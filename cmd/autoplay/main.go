// Command autoplay plays Walls 2048 through the REST API. It opens (or
// resumes) a session, then repeatedly asks a lookahead planner for the next
// direction until the game ends or the move budget runs out. With several
// attempts the board is reset between games and the best score is reported.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/wricardo/walls2048/game/engine"
	"github.com/wricardo/walls2048/internal/logging"
)

// playOptions tunes a run
type playOptions struct {
	Config   string
	Continue string
	MaxMoves int
	Attempts int
	Delay    time.Duration
	Verbose  bool
}

// Attempt summarizes one game
type Attempt struct {
	Moves    int
	Score    int
	BestTile int
	GameOver bool
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "autoplay",
		Usage: "Play Walls 2048 against a running server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "Game server URL", Sources: cli.EnvVars("API_URL")},
			&cli.StringFlag{Name: "config", Usage: "Board layout id (server default when empty)"},
			&cli.StringFlag{Name: "continue", Usage: "Resume playing an existing session by ID"},
			&cli.IntFlag{Name: "max-moves", Value: 5000, Usage: "Maximum moves per attempt"},
			&cli.IntFlag{Name: "attempts", Value: 1, Usage: "Games to play, resetting between them"},
			&cli.IntFlag{Name: "depth", Value: 2, Usage: "Planner lookahead in moves"},
			&cli.IntFlag{Name: "samples", Value: 6, Usage: "Spawn positions sampled per lookahead level"},
			&cli.DurationFlag{Name: "delay", Usage: "Pause between moves"},
			&cli.BoolFlag{Name: "v", Usage: "Verbose output"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logging.New(logging.Options{Debug: cmd.Bool("v")})
			defer logging.Sync(log)

			opts := playOptions{
				Config:   cmd.String("config"),
				Continue: cmd.String("continue"),
				MaxMoves: int(cmd.Int("max-moves")),
				Attempts: int(cmd.Int("attempts")),
				Delay:    cmd.Duration("delay"),
				Verbose:  cmd.Bool("v"),
			}
			strategy := NewLookaheadStrategy(int(cmd.Int("depth")), int(cmd.Int("samples")))

			log.Infow("connecting to game server", "url", cmd.String("url"))
			attempts, err := run(ctx, NewClient(cmd.String("url")), strategy, opts, log)
			if err != nil {
				return err
			}

			best := bestAttempt(attempts)
			log.Infow("finished", "attempts", len(attempts), "best_score", best.Score, "best_tile", best.BestTile)
			return nil
		},
	}
}

// run opens or resumes a session and plays opts.Attempts games on it
func run(ctx context.Context, client *Client, strategy *LookaheadStrategy, opts playOptions, log *zap.SugaredLogger) ([]Attempt, error) {
	var state *engine.GameState
	var err error

	if opts.Continue != "" {
		client.Resume(opts.Continue)
		state, err = client.GetState(ctx)
		if err != nil {
			log.Warnw("failed to resume session, creating a new one", "session_id", opts.Continue, "error", err)
		} else {
			log.Infow("session resumed", "session_id", client.SessionID(), "score", state.Score, "turn", state.Turn)
		}
	}

	if state == nil {
		state, err = client.CreateSession(ctx, opts.Config)
		if err != nil {
			return nil, err
		}
		log.Infow("session created", "session_id", client.SessionID(), "config", state.ConfigName, "size", state.Size)
	}

	if opts.Attempts < 1 {
		opts.Attempts = 1
	}

	var attempts []Attempt
	for n := 1; n <= opts.Attempts; n++ {
		if n > 1 || state.GameOver {
			if state, err = client.Reset(ctx); err != nil {
				return attempts, err
			}
		}

		attempt, err := playGame(ctx, client, strategy, state, opts, log)
		if err != nil {
			return attempts, err
		}
		attempts = append(attempts, attempt)
		log.Infow("attempt finished", "attempt", n, "moves", attempt.Moves, "score", attempt.Score,
			"best_tile", attempt.BestTile, "over", attempt.GameOver)
	}
	return attempts, nil
}

// playGame moves until the game ends, the planner has nothing to offer or
// MaxMoves is reached
func playGame(ctx context.Context, client *Client, strategy *LookaheadStrategy, state *engine.GameState, opts playOptions, log *zap.SugaredLogger) (Attempt, error) {
	moves := 0
	for !state.GameOver && (opts.MaxMoves <= 0 || moves < opts.MaxMoves) {
		if err := ctx.Err(); err != nil {
			return summarize(state, moves), err
		}

		dir, err := strategy.NextMove(state)
		if err != nil {
			return summarize(state, moves), err
		}
		if dir == "" {
			log.Warnw("no move changes the board", "score", state.Score)
			break
		}

		result, err := client.Move(ctx, dir)
		if err != nil {
			return summarize(state, moves), err
		}
		if !result.Success {
			return summarize(result.GameState, moves), errors.New("planner chose a move the server rejected as a no-op: " + string(dir))
		}
		state = result.GameState
		moves++

		if opts.Verbose && moves%100 == 0 {
			log.Debugw("progress", "moves", moves, "score", state.Score, "best_tile", state.BestTile, "empty", state.EmptyCells)
		}
		if opts.Delay > 0 {
			time.Sleep(opts.Delay)
		}
	}
	return summarize(state, moves), nil
}

func summarize(state *engine.GameState, moves int) Attempt {
	return Attempt{Moves: moves, Score: state.Score, BestTile: state.BestTile, GameOver: state.GameOver}
}

func bestAttempt(attempts []Attempt) Attempt {
	var best Attempt
	for _, a := range attempts {
		if a.Score > best.Score {
			best = a
		}
	}
	return best
}
