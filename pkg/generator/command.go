package generator

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// CommandGenerator runs an external image-to-3D program. The placeholders
// {input} and {output} in Args are replaced with the image and model paths.
type CommandGenerator struct {
	command string
	args    []string
	timeout time.Duration
	workDir string
}

// NewCommandGenerator creates a generator for command. A zero timeout
// means no limit beyond ctx.
func NewCommandGenerator(command string, args []string, timeout time.Duration, workDir string) *CommandGenerator {
	return &CommandGenerator{
		command: command,
		args:    args,
		timeout: timeout,
		workDir: workDir,
	}
}

// Name identifies the generator in logs and metrics
func (g *CommandGenerator) Name() string {
	return "command"
}

// Available checks that the command can be found
func (g *CommandGenerator) Available() error {
	if g.command == "" {
		return fmt.Errorf("%w: no command configured", ErrUnavailable)
	}
	if _, err := exec.LookPath(g.command); err != nil {
		return fmt.Errorf("%w: %s not found in PATH", ErrUnavailable, g.command)
	}
	return nil
}

// Generate runs the command and checks that it produced outputPath
func (g *CommandGenerator) Generate(ctx context.Context, imagePath, outputPath string) error {
	if err := g.Available(); err != nil {
		return err
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	replacer := strings.NewReplacer("{input}", imagePath, "{output}", outputPath)
	args := make([]string, len(g.args))
	for i, a := range g.args {
		args[i] = replacer.Replace(a)
	}

	cmd := exec.CommandContext(ctx, g.command, args...)
	cmd.Dir = g.workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var errMsg strings.Builder
		errMsg.WriteString(fmt.Sprintf("failed to generate model from %s: %v", imagePath, err))
		if stderr.Len() > 0 {
			errMsg.WriteString("\nstderr: ")
			errMsg.WriteString(stderr.String())
		}
		if stdout.Len() > 0 {
			errMsg.WriteString("\nstdout: ")
			errMsg.WriteString(stdout.String())
		}
		return fmt.Errorf("%s", errMsg.String())
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return fmt.Errorf("generator did not produce %s: %w", outputPath, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("generator produced an empty file %s", outputPath)
	}
	return nil
}
