// Command subgoal runs the decomposition engine against scenario files:
// `subgoal decompose` prints the candidate decompositions for a scenario,
// `subgoal solve` drives the full recursive search with the baseline leaf
// synthesizer.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"subgoal/internal/classify"
	"subgoal/internal/decompose"
	"subgoal/internal/facts"
	"subgoal/internal/goeval"
	"subgoal/internal/hole"
	"subgoal/internal/lang"
	"subgoal/internal/scenario"
	"subgoal/internal/solve"
	"subgoal/internal/trace"
)

var (
	flagDebug     bool
	flagScenario  string
	flagEvaluator string
	flagFacts     bool
	flagWatch     bool
	flagTraceDB   string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "subgoal",
	Short: "Counterexample-guided problem decomposition",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if flagDebug {
			config = zap.NewDevelopmentConfig()
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var decomposeCmd = &cobra.Command{
	Use:   "decompose",
	Short: "Print the candidate decompositions for a scenario",
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagWatch {
			return watchAndDecompose(flagScenario)
		}
		return runDecompose(flagScenario)
	},
}

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Solve a scenario end to end with the baseline synthesizer",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSolve(flagScenario)
	},
}

func main() {
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagScenario, "scenario", "", "path to a scenario YAML file")
	rootCmd.PersistentFlags().StringVar(&flagEvaluator, "evaluator", "tree", "expression evaluator: tree or go")
	rootCmd.PersistentFlags().StringVar(&flagTraceDB, "trace-db", "", "sqlite file to persist run traces to")
	decomposeCmd.Flags().BoolVar(&flagFacts, "facts", false, "print the Mangle facts of the decomposition")
	decomposeCmd.Flags().BoolVar(&flagWatch, "watch", false, "re-run when the scenario file changes")
	rootCmd.AddCommand(decomposeCmd, solveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// buildEvaluator selects the expression evaluator. "go" is the yaegi-backed
// one; it handles only scalar expressions and degrades everything else to an
// evaluation failure, which the engine treats as indeterminate.
func buildEvaluator(name string) (lang.Evaluator, error) {
	switch name {
	case "tree":
		return lang.NewTreeEvaluator(), nil
	case "go":
		return goeval.New(), nil
	}
	return nil, fmt.Errorf("unknown evaluator %q (want tree or go)", name)
}

func loadProblem(path string) (hole.Problem, error) {
	if path == "" {
		return hole.Problem{}, fmt.Errorf("--scenario is required")
	}
	f, err := scenario.Load(path)
	if err != nil {
		return hole.Problem{}, err
	}
	return f.Problem()
}

func runDecompose(path string) error {
	p, err := loadProblem(path)
	if err != nil {
		return err
	}

	ev, err := buildEvaluator(flagEvaluator)
	if err != nil {
		return err
	}

	rec := facts.NewRecorder()
	eng := decompose.New(ev,
		decompose.WithLogger(logger),
		decompose.WithClassificationObserver(func(p hole.Problem, cond lang.Expr, outcome classify.Outcome) {
			if err := rec.RecordClassification(p.ID, cond.String(), outcome); err != nil {
				logger.Warn("record classification", zap.Error(err))
			}
		}))
	insts := eng.Apply(nil, p)
	if len(insts) == 0 {
		fmt.Println("no decomposition proposed")
		return nil
	}

	for _, inst := range insts {
		fmt.Printf("%s (%d sub-holes, recompose %s)\n", inst.Label, len(inst.Children), inst.Recompose.Kind)
		for i, child := range inst.Children {
			fmt.Printf("  [%d] %s\n", i, child.ID)
			fmt.Printf("      path:     %s\n", child.Path)
			fmt.Printf("      examples: %d valid, %d failing\n",
				len(child.Examples.Valid), len(child.Examples.Invalid))
		}
		if err := rec.RecordDecomposition(p, inst); err != nil {
			return err
		}
	}

	if flagFacts {
		for _, pred := range []struct {
			name  string
			arity int
		}{{"decomposition", 3}, {"subhole", 3}, {"classified", 3}} {
			fs, err := rec.Facts(pred.name, pred.arity)
			if err != nil {
				return err
			}
			for _, f := range fs {
				fmt.Printf("%s%v.\n", f.Predicate, f.Args)
			}
		}
	}
	return nil
}

func runSolve(path string) error {
	p, err := loadProblem(path)
	if err != nil {
		return err
	}

	ev, err := buildEvaluator(flagEvaluator)
	if err != nil {
		return err
	}
	eng := decompose.New(ev, decompose.WithLogger(logger))
	solver := solve.New(eng, solve.NewEnumerator(ev), solve.Options{Logger: logger})

	sol, err := solver.Solve(context.Background(), p)
	if err != nil {
		return err
	}

	fmt.Printf("pre:  %s\n", sol.EffectivePre())
	fmt.Printf("term: %s\n", sol.Term)

	if flagTraceDB != "" {
		store, err := trace.Open(flagTraceDB)
		if err != nil {
			return err
		}
		defer store.Close()
		runID := uuid.NewString()
		if err := store.RecordSteps(runID, solver.Steps()); err != nil {
			return err
		}
		if err := store.RecordSolution(runID, p.ID, sol); err != nil {
			return err
		}
		logger.Info("trace persisted", zap.String("run_id", runID), zap.String("db", flagTraceDB))
	}
	return nil
}

func watchAndDecompose(path string) error {
	if err := runDecompose(path); err != nil {
		logger.Warn("decompose failed", zap.Error(err))
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	logger.Info("watching scenario", zap.String("path", path))
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			fmt.Println("---")
			if err := runDecompose(path); err != nil {
				logger.Warn("decompose failed", zap.Error(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", zap.Error(err))
		}
	}
}
