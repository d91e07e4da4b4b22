package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/console"
	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/storage"
)

// tableName is the badger key the transposition table is saved under.
const tableName = "default"

var (
	depth      = flag.Int("depth", 0, "maximum search depth (0 = no limit)")
	moveTime   = flag.Duration("movetime", 0, "time per move (0 = default, overridden by MOVE_TIME_MS)")
	increment  = flag.Duration("inc", 0, "time added to every move")
	hashMB     = flag.Int("hash", 16, "transposition table size in MB")
	clearTT    = flag.Bool("clear-tt", false, "clear the transposition table before every search")
	ttFile     = flag.String("tt", "", "load the transposition table from this file and save it on exit")
	dbDir      = flag.String("db", "", "badger directory for the table and parameters (\"default\" = data dir)")
	paramsFile = flag.String("params", "", "JSON parameter set to use (saved to -db when given)")
	perft      = flag.Int("perft", 0, "print perft divide to this depth and exit")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
	verbose    = flag.Bool("v", false, "debug logging")
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <FEN | w | b>\n\n", os.Args[0])
	fmt.Fprintln(flag.CommandLine.Output(), "  FEN  print the engine's move for the position and exit")
	fmt.Fprintln(flag.CommandLine.Output(), "  w|b  play interactively as white or black")
	fmt.Fprintln(flag.CommandLine.Output())
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger().Level(zerolog.InfoLevel)
	if *verbose {
		log = log.Level(zerolog.DebugLevel)
	}

	if err := run(log, flag.Args()); err != nil {
		log.Fatal().Err(err).Msg("chesscore")
	}
}

func run(log zerolog.Logger, args []string) error {
	// Start CPU profiling if requested (via flag or environment variable)
	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
		log.Info().Str("path", profilePath).Msg("cpu-profile")
	}

	arg := "w"
	if len(args) > 0 {
		arg = strings.Join(args, " ")
	}

	if *perft > 0 {
		return runPerft(arg)
	}

	var store *storage.Store
	if *dbDir != "" {
		var err error
		if *dbDir == "default" {
			store, err = storage.OpenDefault(log)
		} else {
			store, err = storage.Open(*dbDir, log)
		}
		if err != nil {
			return err
		}
		defer store.Close()
	}

	params, err := loadParams(store)
	if err != nil {
		return err
	}
	if v, ok := os.LookupEnv("MOVE_TIME_MS"); ok {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MOVE_TIME_MS: %w", err)
		}
		params.Search.MoveTime = max(time.Duration(ms)*time.Millisecond, 0)
	}

	eng := engine.New(engine.Options{HashMB: *hashMB, Params: params, Logger: log})
	loadTable(log, eng.TT(), store)
	defer saveTable(log, eng.TT(), store)

	limits := engine.Limits{
		Depth:     *depth,
		MoveTime:  *moveTime,
		Increment: *increment,
		ClearTT:   *clearTT,
	}

	switch arg {
	case "w", "b":
		human := board.White
		if arg == "b" {
			human = board.Black
		}
		c := console.New(eng, os.Stdout, console.Config{
			Limits:    limits,
			Human:     human,
			AutoReply: true,
			Logger:    log,
		})
		return c.Run(os.Stdin)
	default:
		pos, err := board.ParseFEN(arg)
		if err != nil {
			return err
		}
		res := eng.SearchWithLimits(pos, limits)
		if res.Move == board.NoMove {
			if pos.InCheck() {
				fmt.Println("checkmate")
			} else {
				fmt.Println("stalemate")
			}
			return nil
		}
		fmt.Println(console.FormatResult(res))
		return nil
	}
}

// loadParams picks the parameter set: the -params file if given (stored in
// the database when one is open), else the stored set, else the defaults.
func loadParams(store *storage.Store) (engine.Params, error) {
	if *paramsFile != "" {
		f, err := os.Open(*paramsFile)
		if err != nil {
			return engine.Params{}, err
		}
		defer f.Close()
		if store != nil {
			return store.ImportParams(f)
		}
		p := engine.DefaultParams()
		if err := json.NewDecoder(f).Decode(&p); err != nil {
			return engine.Params{}, fmt.Errorf("decode %s: %w", *paramsFile, err)
		}
		return p, nil
	}
	if store != nil {
		p, err := store.LoadParams()
		if err != nil {
			return engine.Params{}, fmt.Errorf("load params: %w", err)
		}
		return p, nil
	}
	return engine.DefaultParams(), nil
}

func runPerft(arg string) error {
	fen := arg
	if fen == "w" || fen == "b" {
		fen = board.StartFEN
	}
	c := console.New(engine.New(engine.Options{HashMB: 1}), os.Stdout, console.Config{})
	if err := c.SetPosition(fen); err != nil {
		return err
	}
	c.Execute("perft " + strconv.Itoa(*perft))
	return nil
}

func loadTable(log zerolog.Logger, tt *engine.TranspositionTable, store *storage.Store) {
	var err error
	source := *ttFile
	switch {
	case *ttFile != "":
		err = tt.LoadFile(*ttFile)
	case store != nil:
		source = "badger:" + tableName
		err = store.LoadTable(tableName, tt)
	default:
		return
	}
	switch {
	case err == nil:
		log.Info().Str("source", source).Int("hashfull", tt.HashFull()).Msg("table-loaded")
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, storage.ErrNotFound):
		log.Debug().Str("source", source).Msg("no saved table")
	default:
		log.Warn().Err(err).Str("source", source).Msg("table discarded")
	}
}

func saveTable(log zerolog.Logger, tt *engine.TranspositionTable, store *storage.Store) {
	var err error
	source := *ttFile
	switch {
	case *ttFile != "":
		err = tt.SaveFile(*ttFile)
	case store != nil:
		source = "badger:" + tableName
		err = store.SaveTable(tableName, tt)
	default:
		return
	}
	if err != nil {
		log.Error().Err(err).Str("source", source).Msg("table-save")
		return
	}
	log.Info().Str("source", source).Str("size", humanize.IBytes(uint64(tt.SizeBytes()))).
		Int("hashfull", tt.HashFull()).Msg("table-saved")
}
