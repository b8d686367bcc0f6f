package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var processJSON bool

var processCmd = &cobra.Command{
	Use:   "process [drawing or model...]",
	Short: "Run the full pipeline for one or more inputs",
	Long: `Generate a model for each drawing (or take a model as is), convert it to
STL, repair it and check it. Inputs are processed concurrently and
independently of each other.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)
	processCmd.Flags().BoolVar(&processJSON, "json", false, "Print results as JSON")
}

type processOutput struct {
	Input  string `json:"input"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

func runProcess(cmd *cobra.Command, args []string) error {
	svc := newService()
	defer svc.Close()

	items := svc.ProcessAll(cmd.Context(), args)
	out := cmd.OutOrStdout()

	failed := 0
	outputs := make([]processOutput, len(items))
	for i, item := range items {
		outputs[i].Input = item.Input
		if item.Err != nil {
			failed++
			outputs[i].Error = item.Err.Error()
			continue
		}
		outputs[i].Result = item.Result
	}

	if processJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(outputs); err != nil {
			return err
		}
	} else {
		for _, item := range items {
			if item.Err != nil {
				fmt.Fprintf(out, "%s: error: %v\n", item.Input, item.Err)
				continue
			}
			r := item.Result
			fmt.Fprintf(out, "%s: task %s -> %s (printable: %t)\n",
				item.Input, r.TaskID, r.STLPath, r.Printability.Printable)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d tasks failed", failed, len(items))
	}
	return nil
}
