package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/rampart-fl/rampart/experiment"
	"github.com/rampart-fl/rampart/pkg/aggregate"
	"github.com/rampart-fl/rampart/pkg/attack"
	"github.com/rampart-fl/rampart/pkg/sdk"
)

var (
	defOffset uint64 = 0
	defLimit  uint64 = 10
)

var csdk sdk.SDK

func SetRampartSDK(s sdk.SDK) {
	csdk = s
}

func NewExperimentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "experiments [create|wizard|view|list|delete|start]",
		Short: "Experiments manager",
		Long:  `Create, view, list, delete experiments and start runs from them.`,
	}

	var exp sdk.Experiment
	var defFile string

	createCmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Create experiment",
		Long: `Create experiment from flags or from a TOML definition file.
A definition file replaces the flags; a name argument overrides the file's name.

Examples:
  # Krum defending against the little-is-enough attack
  rampart-cli experiments create krum-vs-lie --strategy krum --attack lie --malicious 2

  # FLANDERS filtering with a 20 round warmup
  rampart-cli experiments create flanders-minmax --strategy flanders --attack minmax --malicious 3 --warmup 20

  # From a definition file
  rampart-cli experiments create --file examples/flanders-vs-minmax.toml`,
		Run: func(cmd *cobra.Command, args []string) {
			if defFile != "" {
				def, err := experiment.LoadConfig(defFile)
				if err != nil {
					logErrorCmd(*cmd, err)

					return
				}
				exp = fromDefinition(def)
			}
			if len(args) == 1 {
				exp.Name = args[0]
			}
			if exp.Name == "" {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			created, err := csdk.CreateExperiment(exp)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, created)
		},
	}

	createCmd.Flags().StringVar(&exp.Dataset, "dataset", "synthetic", "Dataset name")
	createCmd.Flags().IntVar(&exp.PoolSize, "pool-size", 10, "Number of simulated clients")
	createCmd.Flags().IntVar(&exp.NumRounds, "rounds", 50, "Number of federated rounds")
	createCmd.Flags().IntVar(&exp.WarmupRounds, "warmup", 0, "Rounds without attacks")
	createCmd.Flags().IntVar(&exp.Epochs, "epochs", 1, "Local epochs per round")
	createCmd.Flags().IntVar(&exp.BatchSize, "batch-size", 32, "Local batch size")
	createCmd.Flags().Float64Var(&exp.Sampling, "sampling", 1, "Fraction of clients sampled per round")
	createCmd.Flags().Int64Var(&exp.Seed, "seed", 0, "Random seed")
	createCmd.Flags().StringVar(&exp.Strategy.Name, "strategy", "fedavg", "Aggregation strategy")
	createCmd.Flags().IntVar(&exp.Strategy.NumToKeep, "to-keep", 0, "Clients kept by the strategy")
	createCmd.Flags().Float64Var(&exp.Strategy.TrimRatio, "trim-ratio", 0, "Trimmed mean ratio")
	createCmd.Flags().IntVar(&exp.Strategy.NumIters, "iters", 0, "Strategy iterations")
	createCmd.Flags().IntVar(&exp.Strategy.SampleWidth, "sample-width", 0, "Coordinate sampling width")
	createCmd.Flags().StringVar(&exp.Attack.Name, "attack", "na", "Attack name")
	createCmd.Flags().IntVar(&exp.Attack.NumMalicious, "malicious", 0, "Number of malicious clients")
	createCmd.Flags().Float64Var(&exp.Attack.Magnitude, "magnitude", 0, "Attack magnitude")
	createCmd.Flags().StringVar(&defFile, "file", "", "TOML experiment definition")

	wizardCmd := &cobra.Command{
		Use:   "wizard",
		Short: "Create experiment interactively",
		Long:  `Walk through an interactive form and create the resulting experiment.`,
		Run: func(cmd *cobra.Command, _ []string) {
			built, err := experimentForm()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			created, err := csdk.CreateExperiment(built)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, created)
		},
	}

	viewCmd := &cobra.Command{
		Use:   "view <id>",
		Short: "View experiment",
		Long:  `View experiment.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			e, err := csdk.GetExperiment(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, e)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List experiments",
		Long:  `List experiments.`,
		Run: func(cmd *cobra.Command, _ []string) {
			page, err := csdk.ListExperiments(defOffset, defLimit)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, page)
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete experiment",
		Long:  `Delete experiment.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			if err := csdk.DeleteExperiment(args[0]); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logOKCmd(*cmd)
		},
	}

	startCmd := &cobra.Command{
		Use:   "start <id>",
		Short: "Start run",
		Long:  `Start a new run of an experiment.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			run, err := csdk.StartRun(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, run)
		},
	}

	cmd.AddCommand(createCmd)
	cmd.AddCommand(wizardCmd)
	cmd.AddCommand(viewCmd)
	cmd.AddCommand(listCmd)
	cmd.AddCommand(deleteCmd)
	cmd.AddCommand(startCmd)

	cmd.PersistentFlags().Uint64VarP(
		&defOffset,
		"offset",
		"o",
		defOffset,
		"Offset",
	)

	cmd.PersistentFlags().Uint64VarP(
		&defLimit,
		"limit",
		"l",
		defLimit,
		"Limit",
	)

	return cmd
}

func experimentForm() (sdk.Experiment, error) {
	exp := sdk.Experiment{}
	poolSize := "10"
	numRounds := "50"
	warmup := "0"
	malicious := "0"
	seed := "0"

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Value(&exp.Name).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("name is required")
					}

					return nil
				}),
			huh.NewInput().Title("Pool size").Value(&poolSize).Validate(validateInt),
			huh.NewInput().Title("Rounds").Value(&numRounds).Validate(validateInt),
			huh.NewInput().Title("Warmup rounds").Value(&warmup).Validate(validateInt),
			huh.NewInput().Title("Seed").Value(&seed).Validate(validateInt),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Strategy").
				Options(huh.NewOptions(aggregate.Names()...)...).
				Value(&exp.Strategy.Name),
			huh.NewSelect[string]().
				Title("Attack").
				Options(huh.NewOptions(attack.Names()...)...).
				Value(&exp.Attack.Name),
			huh.NewInput().Title("Malicious clients").Value(&malicious).Validate(validateInt),
		),
	)
	if err := form.Run(); err != nil {
		return sdk.Experiment{}, err
	}

	exp.PoolSize, _ = strconv.Atoi(poolSize)
	exp.NumRounds, _ = strconv.Atoi(numRounds)
	exp.WarmupRounds, _ = strconv.Atoi(warmup)
	exp.Attack.NumMalicious, _ = strconv.Atoi(malicious)
	exp.Seed, _ = strconv.ParseInt(seed, 10, 64)

	return exp, nil
}

func fromDefinition(e experiment.Experiment) sdk.Experiment {
	return sdk.Experiment{
		Name:         e.Name,
		Dataset:      e.Dataset,
		PoolSize:     e.PoolSize,
		NumRounds:    e.NumRounds,
		WarmupRounds: e.WarmupRounds,
		Epochs:       e.Epochs,
		BatchSize:    e.BatchSize,
		Sampling:     e.Sampling,
		Seed:         e.Seed,
		Strategy: sdk.Strategy{
			Name:        e.Strategy.Name,
			NumToKeep:   e.Strategy.NumToKeep,
			TrimRatio:   e.Strategy.TrimRatio,
			NumIters:    e.Strategy.NumIters,
			SampleWidth: e.Strategy.SampleWidth,
			Multiplier:  e.Strategy.Multiplier,
			Threshold:   e.Strategy.Threshold,
			Omniscient:  e.Strategy.Omniscient,
		},
		Attack: sdk.Attack{
			Name:         e.Attack.Name,
			NumMalicious: e.Attack.NumMalicious,
			Magnitude:    e.Attack.Magnitude,
			MaxIters:     e.Attack.MaxIters,
			Tolerance:    e.Attack.Tolerance,
			Direction:    e.Attack.Direction,
		},
	}
}

func validateInt(s string) error {
	if _, err := strconv.Atoi(s); err != nil {
		return fmt.Errorf("%q is not a number", s)
	}

	return nil
}
