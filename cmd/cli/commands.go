package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/museecg/pkg/museecg/spectrum"
	"github.com/himanishpuri/museecg/pkg/museecg/waveform"
	"github.com/himanishpuri/museecg/pkg/utils"
)

func newExtractCmd(a *app) *cobra.Command {
	var (
		out           string
		appendMode    bool
		progressEvery int
	)

	cmd := &cobra.Command{
		Use:   "extract <file-or-dir>...",
		Short: "Write one TSV metadata row per MUSE XML document",
		Long: `Extract walks the given files and directories for .xml documents and writes
one tab-separated row per document. Documents that cannot be parsed are
logged and skipped. Exit status is 0 when every document was written, 2 when
some failed and 1 when all failed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("out") {
				out = a.cfg.OutPath
			}
			if cmd.Flags().Changed("progress-every") {
				a.cfg.ProgressEvery = progressEvery
			}

			svc, err := a.createService(false)
			if err != nil {
				return fmt.Errorf("failed to create service: %w", err)
			}
			defer svc.Close()

			sum, err := svc.WriteMetadataTSV(cmd.Context(), args, out, appendMode)
			if err != nil {
				return err
			}
			a.exitCode = sum.ExitCode()
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "muse_metadata.tsv", "output TSV path")
	cmd.Flags().BoolVar(&appendMode, "append", false, "append rows; the header is written only to a new file")
	cmd.Flags().IntVar(&progressEvery, "progress-every", 500, "log progress every N documents (0 disables)")
	return cmd
}

func newLeadsCmd(a *app) *cobra.Command {
	var (
		leadList string
		head     int
	)

	cmd := &cobra.Command{
		Use:   "leads <file.xml>",
		Short: "Print the decoded leads of one document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			leads := waveform.AllLeads()
			if leadList != "" {
				var err error
				if leads, err = waveform.ParseLeadList(leadList); err != nil {
					return err
				}
			}

			svc, err := a.createService(false)
			if err != nil {
				return fmt.Errorf("failed to create service: %w", err)
			}
			defer svc.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			t, err := svc.ReadLeads(f, args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "# %s sample_rate=%d\n", args[0], t.SampleRate)
			for _, lead := range leads {
				printLead(w, spectrum.Summarize(lead, t.Leads.Get(lead), t.SampleRate), t.Leads.Get(lead), head)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&leadList, "leads", "", "comma-separated leads, e.g. I,II,aVF (default all)")
	cmd.Flags().IntVar(&head, "head", 10, "samples printed per lead (0 prints none, -1 all)")
	return cmd
}

func printLead(w io.Writer, sum spectrum.Summary, s waveform.Series, head int) {
	fmt.Fprintf(w, "%s\tn=%d\tmin=%.2f\tmax=%.2f\trms=%.2f\tdominant_hz=%.2f",
		sum.Lead, sum.Samples, sum.Min, sum.Max, sum.RMS, sum.DominantHz)

	if head < 0 || head > len(s) {
		head = len(s)
	}
	if head > 0 {
		vals := make([]string, head)
		for i := range vals {
			vals[i] = fmt.Sprintf("%.2f", s[i])
		}
		fmt.Fprintf(w, "\t%s", strings.Join(vals, " "))
	}
	fmt.Fprintln(w)
}

func newDecodeCmd(a *app) *cobra.Command {
	var scale float64

	cmd := &cobra.Command{
		Use:   "decode <base64>",
		Short: "Decode one WaveFormData blob to microvolts, one sample per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.createService(false)
			if err != nil {
				return fmt.Errorf("failed to create service: %w", err)
			}
			defer svc.Close()

			var series waveform.Series
			if cmd.Flags().Changed("scale") {
				series, err = svc.DecodeBlob(args[0], scale)
			} else {
				series, err = svc.DecodeBlobDefault(args[0])
			}
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, v := range series {
				fmt.Fprintf(w, "%g\n", v)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&scale, "scale", 0, "microvolts per LSB, any real value (default from config, 4.88)")
	return cmd
}

func defaultOutput(input, ext string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + ext
}

func newPlotCmd(a *app) *cobra.Command {
	var out, leadList string

	cmd := &cobra.Command{
		Use:   "plot <file.xml>",
		Short: "Draw stacked lead strips as a PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			leads, err := waveform.ParseLeadList(leadList)
			if err != nil {
				return err
			}
			if out == "" {
				out = defaultOutput(args[0], ".png")
			}

			svc, err := a.createService(false)
			if err != nil {
				return fmt.Errorf("failed to create service: %w", err)
			}
			defer svc.Close()

			err = utils.WriteFileAtomic(out, func(w io.Writer) error {
				return svc.PlotLeads(args[0], w, leads)
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output PNG (default <file>.png)")
	cmd.Flags().StringVar(&leadList, "leads", "aVF,V2,V5", "comma-separated leads to plot")
	return cmd
}

func newSpectrogramCmd(a *app) *cobra.Command {
	var outDir, leadList string

	cmd := &cobra.Command{
		Use:   "spectrogram <file.xml>",
		Short: "Save one spectrogram PNG per lead",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var leads []waveform.Lead
			if leadList != "" {
				var err error
				if leads, err = waveform.ParseLeadList(leadList); err != nil {
					return err
				}
			}

			svc, err := a.createService(false)
			if err != nil {
				return fmt.Errorf("failed to create service: %w", err)
			}
			defer svc.Close()

			written, err := svc.RenderSpectrograms(args[0], outDir, leads)
			for _, p := range written {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "spectrograms", "output directory")
	cmd.Flags().StringVar(&leadList, "leads", "", "comma-separated leads (default all)")
	return cmd
}

func newWAVCmd(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "wav <file.xml>",
		Short: "Export the twelve leads as a 16-bit multichannel WAV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = defaultOutput(args[0], ".wav")
			}

			svc, err := a.createService(false)
			if err != nil {
				return fmt.Errorf("failed to create service: %w", err)
			}
			defer svc.Close()

			if err := svc.ExportWAV(args[0], out); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output WAV (default <file>.wav)")
	return cmd
}
