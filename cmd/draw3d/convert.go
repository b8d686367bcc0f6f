package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nQrChao/kids-draw-3d/pkg/pipeline"
)

var convertTaskID string

var convertCmd = &cobra.Command{
	Use:   "convert [model]",
	Short: "Normalize a GLB, glTF, OBJ or STL model into an STL file",
	Long: `Load a model, scale it so its longest side matches the target size,
center it on the origin and write <task>_model.stl to the output directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().StringVar(&convertTaskID, "task-id", "", "Task id for the output name (random when empty)")
}

func runConvert(cmd *cobra.Command, args []string) error {
	svc := newService()
	defer svc.Close()

	taskID := convertTaskID
	if taskID == "" {
		taskID = pipeline.NewTaskID()
	}
	out, err := svc.ConvertToSTL(cmd.Context(), args[0], taskID)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
