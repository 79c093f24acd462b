// Command analyze prints quick, human-readable reports about the mission
// scenarios in the configs directory: grid statistics and reachability from
// home, scenario validation, and a side-by-side run of every coverage strategy.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/drone-coverage-planner/game/config"
	"github.com/wricardo/drone-coverage-planner/game/engine"
	"github.com/wricardo/drone-coverage-planner/game/metrics"
	"github.com/wricardo/drone-coverage-planner/game/planner"
	"github.com/wricardo/drone-coverage-planner/game/world"
)

// Inspection summarizes a scenario's grid as seen from home
type Inspection struct {
	Name        string
	GridSize    int
	Stats       world.Stats
	Home        world.Cell
	Battery     int
	Reachable   int
	Unreachable []world.Cell
	// OutOfRange are reachable cells whose round trip from home exceeds the battery
	OutOfRange int
}

// StrategyResult is one strategy flown to the end on its own engine
type StrategyResult struct {
	Strategy     engine.Strategy
	PlanLength   int
	Stop         planner.StopReason
	Phase        engine.Phase
	Coverage     float64
	BatteryUsed  int
	Turns        int
	SafetyScore  int
	Replans      int
	PlanEstimate float64
}

var strategies = []engine.Strategy{engine.StrategyZigzag, engine.StrategyGreedy, engine.StrategyAdaptive}

func main() {
	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "inspect, validate and compare drone mission scenarios",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Aliases: []string{"d"},
				Value:   "configs",
				Usage:   "directory containing scenario files",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "disable colored output",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("no-color") {
				color.NoColor = true
			}
			return ctx, nil
		},
		Commands: []*cli.Command{
			{
				Name:      "inspect",
				Usage:     "show grid statistics and reachability for scenarios",
				ArgsUsage: "[scenario...]",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					scenarios, err := loadScenarios(cmd.String("config-dir"), cmd.Args().Slice())
					if err != nil {
						return err
					}
					for _, cfg := range scenarios {
						ins, err := Inspect(cfg)
						if err != nil {
							return fmt.Errorf("inspect %s: %w", cfg.Name, err)
						}
						printInspection(out, ins)
					}
					return nil
				},
			},
			{
				Name:  "validate",
				Usage: "check every scenario file loads and all free cells are reachable from home",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					failures := Validate(out, cmd.String("config-dir"))
					if failures > 0 {
						return fmt.Errorf("%d scenario(s) failed validation", failures)
					}
					return nil
				},
			},
			{
				Name:      "compare",
				Usage:     "fly every strategy on each scenario and compare the results",
				ArgsUsage: "[scenario...]",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					scenarios, err := loadScenarios(cmd.String("config-dir"), cmd.Args().Slice())
					if err != nil {
						return err
					}
					for _, cfg := range scenarios {
						results, err := CompareStrategies(ctx, cfg)
						if err != nil {
							return fmt.Errorf("compare %s: %w", cfg.Name, err)
						}
						printComparison(out, cfg, results)
					}
					return nil
				},
			},
		},
	}
}

// loadScenarios loads the named scenarios, or every scenario in dir when none are named
func loadScenarios(dir string, names []string) ([]*engine.MissionConfig, error) {
	manager, err := config.NewManager(dir)
	if err != nil {
		return nil, err
	}

	if len(names) == 0 {
		infos, err := manager.ListConfigs()
		if err != nil {
			return nil, err
		}
		for _, info := range infos {
			names = append(names, info.ConfigID)
		}
	}

	scenarios := make([]*engine.MissionConfig, 0, len(names))
	for _, name := range names {
		cfg, err := manager.LoadConfig(name)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, cfg)
	}
	return scenarios, nil
}

// Inspect builds the scenario's grid and checks which free cells can be reached from home
func Inspect(cfg *engine.MissionConfig) (*Inspection, error) {
	state, err := engine.InitMissionStateFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	home := state.Drone.Home()
	ins := &Inspection{
		Name:     cfg.Name,
		GridSize: state.Grid.Size(),
		Stats:    state.Grid.Stats(),
		Home:     home,
		Battery:  state.Drone.Capacity(),
	}

	finder := planner.NewPathFinder(cfg.MaxSearchExpansions)
	for _, c := range state.Grid.FreeCells() {
		path, ok := finder.FindPath(state.Grid, home, c)
		if !ok {
			ins.Unreachable = append(ins.Unreachable, c)
			continue
		}
		ins.Reachable++
		if 2*(len(path)-1)*state.Drone.MovingCost() > ins.Battery {
			ins.OutOfRange++
		}
	}
	return ins, nil
}

// Validate loads every scenario file in dir on its own and reports problems.
// It returns the number of files that failed.
func Validate(out io.Writer, dir string) int {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	entries, err := os.ReadDir(dir)
	if err != nil {
		fmt.Fprintf(out, "%s %v\n", red("ERROR"), err)
		return 1
	}

	failures := 0
	for _, entry := range entries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if entry.IsDir() || (ext != ".json" && ext != ".yaml" && ext != ".yml") {
			continue
		}

		cfg, err := engine.LoadMissionConfig(filepath.Join(dir, entry.Name()))
		if err != nil {
			fmt.Fprintf(out, "%s %s: %v\n", red("FAIL"), entry.Name(), err)
			failures++
			continue
		}

		ins, err := Inspect(cfg)
		if err != nil {
			fmt.Fprintf(out, "%s %s: %v\n", red("FAIL"), entry.Name(), err)
			failures++
			continue
		}

		if len(ins.Unreachable) > 0 {
			fmt.Fprintf(out, "%s %s: %d free cell(s) unreachable from home %s\n",
				yellow("WARN"), entry.Name(), len(ins.Unreachable), ins.Home)
			continue
		}
		fmt.Fprintf(out, "%s %s\n", green("OK"), entry.Name())
	}
	return failures
}

// CompareStrategies flies each strategy to the end on an independent engine
func CompareStrategies(ctx context.Context, cfg *engine.MissionConfig) ([]StrategyResult, error) {
	results := make([]StrategyResult, len(strategies))

	g, ctx := errgroup.WithContext(ctx)
	for i, strategy := range strategies {
		g.Go(func() error {
			res, err := fly(ctx, cfg, strategy)
			if err != nil {
				return fmt.Errorf("%s: %w", strategy, err)
			}
			results[i] = *res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func fly(ctx context.Context, cfg *engine.MissionConfig, strategy engine.Strategy) (*StrategyResult, error) {
	e, err := engine.NewEngine(cfg)
	if err != nil {
		return nil, err
	}

	summary, err := e.PlanMission(strategy)
	if err != nil {
		return nil, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		run := e.Run(engine.MaxBulkSteps)
		if run.Executed == 0 || run.StopErr != "" || run.Phase == engine.PhaseCompleted || run.Phase.Over() {
			break
		}
	}

	state := e.GetState()
	report := metrics.Compare(state.Grid, state.Drone, state.Drone.PathHistory(), metrics.Baseline{})
	return &StrategyResult{
		Strategy:     strategy,
		PlanLength:   summary.Length,
		Stop:         summary.Stop,
		Phase:        state.Phase,
		Coverage:     report.CoveragePercent,
		BatteryUsed:  state.Drone.Capacity() - state.Drone.Battery(),
		Turns:        report.Turns,
		SafetyScore:  report.SafetyScore,
		Replans:      state.Replans,
		PlanEstimate: summary.EstimatedCoverage,
	}, nil
}

func printInspection(out io.Writer, ins *Inspection) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	fmt.Fprintf(out, "\n%s (%dx%d)\n", cyan(ins.Name), ins.GridSize, ins.GridSize)
	fmt.Fprintf(out, "  Home: %s  Battery: %d\n", ins.Home, ins.Battery)
	fmt.Fprintf(out, "  Free: %d  Obstacles: %d  No-fly: %d\n", ins.Stats.Free, ins.Stats.Obstacles, ins.Stats.NoFly)
	fmt.Fprintf(out, "  Reachable from home: %d/%d\n", ins.Reachable, ins.Stats.Free)
	if ins.OutOfRange > 0 {
		fmt.Fprintf(out, "  %s %d cell(s) cannot be reached and returned from on one battery\n", yellow("Out of range:"), ins.OutOfRange)
	}
	if len(ins.Unreachable) > 0 {
		cells := make([]string, len(ins.Unreachable))
		for i, c := range ins.Unreachable {
			cells[i] = c.String()
		}
		fmt.Fprintf(out, "  %s %s\n", yellow("Unreachable:"), strings.Join(cells, " "))
	}
}

func printComparison(out io.Writer, cfg *engine.MissionConfig, results []StrategyResult) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	best := append([]StrategyResult(nil), results...)
	sort.SliceStable(best, func(i, j int) bool {
		if best[i].Coverage != best[j].Coverage {
			return best[i].Coverage > best[j].Coverage
		}
		return best[i].BatteryUsed < best[j].BatteryUsed
	})

	fmt.Fprintf(out, "\n%s\n", cyan(cfg.Name))
	fmt.Fprintf(out, "  %-9s %6s %9s %8s %6s %7s %7s  %s\n", "strategy", "plan", "coverage", "battery", "turns", "safety", "replans", "phase")
	for _, r := range results {
		name := fmt.Sprintf("%-9s", r.Strategy)
		if r.Strategy == best[0].Strategy {
			name = green(name)
		}
		fmt.Fprintf(out, "  %s %6d %8.1f%% %8d %6d %7d %7d  %s\n",
			name, r.PlanLength, r.Coverage, r.BatteryUsed, r.Turns, r.SafetyScore, r.Replans, r.Phase)
	}
}
