package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ardanlabs/hampel/config"
	"github.com/ardanlabs/hampel/hampel"
)

func detectCommand() *cobra.Command {
	var (
		cfgFile string
		bounds  bool
	)

	cmd := &cobra.Command{
		Use:   "detect [FILE]",
		Short: "Print the outliers of a series",
		Long: `Print the outliers of a series read from FILE or the standard input.

Every line holds a value or a label and a value separated by white space.
Empty lines and lines starting with # are ignored. Outliers are printed one per
line, as positions (starting at 0) or as labels.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}

			r := cmd.InOrStdin()
			if len(args) == 1 {
				file, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer file.Close()
				r = file
			}

			series, err := readSeries(r)
			if err != nil {
				return err
			}

			f, err := hampel.New(cfg.Filter.Params())
			if err != nil {
				return err
			}
			if _, err := f.Apply(series); err != nil {
				return err
			}

			if bounds {
				return printBounds(cmd.OutOrStdout(), f)
			}
			return printOutliers(cmd.OutOrStdout(), f)
		},
	}

	addFilterFlags(cmd, &cfgFile)
	cmd.Flags().BoolVar(&bounds, "bounds", false, "print position, lower and upper bound of every window")
	return cmd
}

// readSeries parses a series, either all lines have a label or none has.
func readSeries(r io.Reader) (hampel.Series, error) {
	var (
		labels  []string
		values  []float64
		labeled bool
	)

	s := bufio.NewScanner(r)
	lnum := 0
	for s.Scan() {
		lnum++
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) > 2 {
			return nil, fmt.Errorf("%d: bad line: %q", lnum, s.Text())
		}

		if len(values) == 0 {
			labeled = len(fields) == 2
		}
		if labeled != (len(fields) == 2) {
			return nil, fmt.Errorf("%d: mixed labeled and unlabeled lines", lnum)
		}

		v, err := strconv.ParseFloat(fields[len(fields)-1], 64)
		if err != nil {
			return nil, fmt.Errorf("%d: bad value: %q", lnum, fields[len(fields)-1])
		}

		if labeled {
			labels = append(labels, fields[0])
		}
		values = append(values, v)
	}

	if err := s.Err(); err != nil {
		return nil, err
	}

	if labeled {
		return hampel.Labeled[string]{Index: labels, Values: values}, nil
	}
	return hampel.List(values), nil
}

func printOutliers(w io.Writer, f *hampel.Filter) error {
	out, err := f.Outliers()
	if err != nil {
		return err
	}

	switch v := out.(type) {
	case []int:
		for _, i := range v {
			fmt.Fprintln(w, i)
		}
	case []string:
		for _, label := range v {
			fmt.Fprintln(w, label)
		}
	default:
		return fmt.Errorf("unexpected outliers type %T", out)
	}
	return nil
}

func printBounds(w io.Writer, f *hampel.Filter) error {
	lower, upper, err := f.Boundaries()
	if err != nil {
		return err
	}

	k := f.Params().HalfWidth()
	for j := range lower {
		fmt.Fprintf(w, "%d %g %g\n", j+k, lower[j], upper[j])
	}
	return nil
}
