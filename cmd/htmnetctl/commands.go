package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vitaly-krugl/htmresearch/internal/config"
	"github.com/vitaly-krugl/htmresearch/internal/datasource"
	"github.com/vitaly-krugl/htmresearch/internal/encoders"
	"github.com/vitaly-krugl/htmresearch/internal/engine"
	"github.com/vitaly-krugl/htmresearch/internal/model"
	"github.com/vitaly-krugl/htmresearch/internal/netfactory"
	"github.com/vitaly-krugl/htmresearch/internal/regions"
	htmapi "github.com/vitaly-krugl/htmresearch/pkg/htmresearch"
)

func newInitCommand() *cobra.Command {
	var (
		format string
		out    string
		force  bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default network configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if out == "" {
				return config.WriteDefault(cmd.OutOrStdout(), format)
			}
			if !cmd.Flags().Changed("format") {
				format = config.FormatFromPath(out)
			}
			if _, err := os.Stat(out); err == nil && !force {
				return fmt.Errorf("%s exists; use --force to overwrite", out)
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := config.WriteDefault(f, format); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", config.FormatYAML, "output format: yaml or json")
	cmd.Flags().StringVar(&out, "out", "", "file to write; stdout when empty")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newValidateCommand() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate a network configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, key := range config.RegionKeys() {
				region, _ := cfg.Region(key)
				state := "enabled"
				if key != model.SensorRegionKey && key != model.ClassifierRegionKey && !region.Enabled() {
					state = "disabled"
				}
				fmt.Fprintf(w, "%-24s %-12s %-30s %s\n", key, region.RegionName, region.RegionType, state)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "network configuration file")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

type buildFlags struct {
	configPath string
	configName string
	dataPath   string
	saveAs     string
}

func (f *buildFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.configPath, "config", "", "network configuration file")
	cmd.Flags().StringVar(&f.configName, "config-name", "", "stored network configuration name")
	cmd.Flags().StringVar(&f.dataPath, "data", "", "CSV data file with three header rows")
	cmd.Flags().StringVar(&f.saveAs, "save-as", "", "store the configuration, with observed scalar bounds, under this name")
	_ = cmd.MarkFlagRequired("data")
}

func (f *buildFlags) request() (htmapi.BuildRequest, error) {
	if (f.configPath == "") == (f.configName == "") {
		return htmapi.BuildRequest{}, errors.New("use exactly one of --config or --config-name")
	}
	source, err := datasource.OpenCSV(f.dataPath)
	if err != nil {
		return htmapi.BuildRequest{}, err
	}
	req := htmapi.BuildRequest{ConfigName: f.configName, Source: source, SaveConfigAs: f.saveAs}
	if f.configPath != "" {
		cfg, err := config.Load(f.configPath)
		if err != nil {
			return htmapi.BuildRequest{}, err
		}
		req.Config = cfg
	}
	return req, nil
}

func newBuildCommand(v *viper.Viper) *cobra.Command {
	var (
		flags buildFlags
		learn bool
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Assemble a network and record its summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := flags.request()
			if err != nil {
				return err
			}
			req.LearningMode = learn

			client, err := newClient(cmd, v)
			if err != nil {
				return err
			}
			defer client.Close()

			result, err := client.Build(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), result.Summary)
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&learn, "learn", false, "enable learning on every non-sensor region")
	return cmd
}

func newLearnCommand(v *viper.Viper) *cobra.Command {
	var (
		flags buildFlags
		mode  string
	)
	cmd := &cobra.Command{
		Use:   "learn",
		Short: "Assemble a network and toggle learning on its regions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var learningMode bool
			switch mode {
			case "on":
				learningMode = true
			case "off":
			default:
				return fmt.Errorf("--mode must be on or off, got %q", mode)
			}
			req, err := flags.request()
			if err != nil {
				return err
			}

			client, err := newClient(cmd, v)
			if err != nil {
				return err
			}
			defer client.Close()

			result, err := client.Build(cmd.Context(), req)
			if err != nil {
				return err
			}
			stages, err := client.SetLearning(cmd.Context(), result.ID, learningMode)
			if err != nil {
				return err
			}
			return printStages(cmd.OutOrStdout(), stages)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&mode, "mode", "on", "learning mode to apply: on or off")
	return cmd
}

func newSummaryCommand(v *viper.Viper) *cobra.Command {
	var (
		id    string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show stored assembly summaries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := newClient(cmd, v)
			if err != nil {
				return err
			}
			defer client.Close()

			if id != "" {
				summary, err := client.Summary(cmd.Context(), id)
				if err != nil {
					return err
				}
				return printSummary(cmd.OutOrStdout(), summary)
			}

			summaries, err := client.Summaries(cmd.Context(), htmapi.SummariesRequest{Limit: limit})
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCREATED\tREGIONS\tENCODER WIDTH\tLEARNING")
			for _, s := range summaries {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", s.ID, humanize.Time(s.CreatedAt), len(s.Regions), humanize.Comma(int64(s.EncoderWidth)), onOff(s.LearningMode))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "show one summary in full")
	cmd.Flags().IntVar(&limit, "limit", 20, "max summaries to list")
	return cmd
}

func newRegionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "regions",
		Short: "List region types and research region modules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TYPE\tSOURCE")
			for _, name := range engine.ListRegionTypes() {
				source := "module"
				if engine.IsBuiltin(name) {
					source = "built-in"
				}
				fmt.Fprintf(w, "%s\t%s\n", name, source)
			}
			fmt.Fprintln(w, "\nMODULE\tTYPE")
			for _, path := range engine.ListModules() {
				spec, err := engine.ModuleSpec(path)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\n", path, spec.Name)
			}
			return w.Flush()
		},
	}
}

func newEncodersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "encoders",
		Short: "List encoder types usable in an encoders mapping",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, kind := range encoders.ListKinds() {
				fmt.Fprintln(cmd.OutOrStdout(), kind)
			}
			return nil
		},
	}
}

func printSummary(out io.Writer, s model.AssemblySummary) error {
	fmt.Fprintf(out, "network %s\n", s.ID)
	fmt.Fprintf(out, "created %s (%s)\n", s.CreatedAt.Format(time.RFC3339), humanize.Time(s.CreatedAt))
	fmt.Fprintf(out, "encoder width %s, learning %s\n\n", humanize.Comma(int64(s.EncoderWidth)), onOff(s.LearningMode))

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "REGION\tTYPE\tOUTPUT WIDTH")
	for _, r := range s.Regions {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, r.Type, humanize.Comma(int64(r.OutputWidth)))
	}
	fmt.Fprintln(w, "\nSOURCE\tDEST\tPORTS")
	for _, l := range s.Links {
		fmt.Fprintf(w, "%s\t%s\t%s -> %s\n", l.Source, l.Dest, l.SrcOutput, l.DestInput)
	}
	return w.Flush()
}

func printStages(out io.Writer, stages netfactory.Stages) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STAGE\tREGION\tLEARNING")
	rows := []struct {
		stage  string
		handle *engine.RegionHandle
	}{
		{"sensor", stages.Sensor},
		{"sp", stages.SP},
		{"tm", stages.TM},
		{"tp", stages.TP},
		{"classifier", stages.Classifier},
	}
	for _, row := range rows {
		switch {
		case row.handle == nil:
			fmt.Fprintf(w, "%s\t-\tdisabled\n", row.stage)
		case row.handle == stages.Sensor:
			fmt.Fprintf(w, "%s\t%s\t-\n", row.stage, row.handle.Name())
		default:
			value, err := row.handle.GetParameter(regions.LearningModeParam)
			if err != nil {
				return err
			}
			learning, _ := value.(bool)
			fmt.Fprintf(w, "%s\t%s\t%s\n", row.stage, row.handle.Name(), onOff(learning))
		}
	}
	return w.Flush()
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
