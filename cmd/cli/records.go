package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/museecg/pkg/museecg"
)

func newIndexCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "index <file-or-dir>...",
		Short: "Analyze documents and store them in the record database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.createService(true)
			if err != nil {
				return fmt.Errorf("failed to create service: %w", err)
			}
			defer svc.Close()

			sum, err := svc.Index(cmd.Context(), args)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d of %d documents\n", sum.Succeeded, sum.Total)
			a.exitCode = sum.ExitCode()
			return nil
		},
	}
}

func newRecordsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Inspect the record database",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List stored records",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withStore(func(svc museecg.Service) error {
					recs, err := svc.ListRecords()
					if err != nil {
						return err
					}
					printRecords(cmd.OutOrStdout(), recs)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "count",
			Short: "Print the number of stored records",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withStore(func(svc museecg.Service) error {
					n, err := svc.CountRecords()
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), n)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Print one record as JSON",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withStore(func(svc museecg.Service) error {
					rec, err := svc.GetRecord(args[0])
					if err != nil {
						return err
					}
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(rec)
				})
			},
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete one record",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withStore(func(svc museecg.Service) error {
					if err := svc.DeleteRecord(args[0]); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "patient <patient-id>",
			Short: "List the records of one patient",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withStore(func(svc museecg.Service) error {
					recs, err := svc.FindByPatient(args[0])
					if err != nil {
						return err
					}
					printRecords(cmd.OutOrStdout(), recs)
					return nil
				})
			},
		},
	)
	return cmd
}

func (a *app) withStore(fn func(museecg.Service) error) error {
	svc, err := a.createService(true)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer svc.Close()
	return fn(svc)
}

func printRecords(w io.Writer, recs []museecg.StoredRecord) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No records.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPATIENT\tECG DATE\tFILE")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.Record.PatientID, r.Record.ECGDate, r.Record.FilePath)
	}
	tw.Flush()
}
