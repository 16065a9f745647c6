package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/learnerguy001/Smart-Traffic-main/internal/storage"
	"github.com/learnerguy001/Smart-Traffic-main/internal/violation"
)

var dataFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "trafficctl",
		Short: "Smart Traffic data tool",
		Long:  "Inspect and maintain the violation data file used by the dashboard server",
	}

	rootCmd.PersistentFlags().StringVar(&dataFile, "data", "data/violations.json", "Path to the violation data file")

	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(statsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openStore() (*violation.Store, error) {
	store := violation.NewStore(storage.NewFileAdapter(dataFile), zerolog.Nop())
	if err := store.Hydrate(); err != nil {
		return nil, fmt.Errorf("load %s: %w", dataFile, err)
	}
	return store, nil
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Reset the data file to the demo seed records",
		RunE: func(cmd *cobra.Command, args []string) error {
			seed := violation.Seed(time.Now())
			data, err := json.MarshalIndent(seed, "", "  ")
			if err != nil {
				return err
			}
			if err := storage.NewFileAdapter(dataFile).Save(data); err != nil {
				return fmt.Errorf("write %s: %w", dataFile, err)
			}
			fmt.Printf("wrote %d seed violations to %s\n", len(seed), dataFile)
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	var status, query string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List violations, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTIME\tPLATE\tVEHICLE\tSPEED\tLIMIT\tSTATUS\tLOCATION")
			for _, v := range store.List(query, status) {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.0f\t%.0f\t%s\t%s\n",
					v.ID, v.Timestamp.Format(time.RFC3339), v.LicensePlate, v.Vehicle,
					v.Speed, v.SpeedLimit, v.Status, v.Location)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (pending, confirmed, dismissed)")
	cmd.Flags().StringVar(&query, "query", "", "Filter by plate, location, or vehicle substring")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print aggregate violation statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			st := store.Stats()
			fmt.Printf("total:          %d\n", st.Total)
			fmt.Printf("pending:        %d\n", st.Pending)
			fmt.Printf("confirmed:      %d\n", st.Confirmed)
			fmt.Printf("dismissed:      %d\n", st.Dismissed)
			fmt.Printf("average speed:  %.1f\n", st.AverageSpeed)
			return nil
		},
	}
}
