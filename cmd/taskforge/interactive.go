package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"taskforge/internal/version"
	"taskforge/pkg/models"
)

var (
	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Border(lipgloss.RoundedBorder()).
			Padding(0, 2)

	promptColor  = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	failColor    = color.New(color.FgRed)
	dimColor     = color.New(color.Faint)
)

func runREPL() error {
	a, err := buildApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Println(bannerStyle.Render(fmt.Sprintf("taskforge %s", version.Get())))
	dimColor.Println("Type a request, or 'help' for commands.")

	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		promptColor.Print("taskforge> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch strings.ToLower(line) {
		case "quit", "exit":
			dimColor.Println("Bye.")
			return nil
		case "help":
			printHelp()
		case "status":
			printStatus(a)
		case "agents":
			printAgents(a)
		case "health":
			printHealth(ctx, a)
		default:
			res := a.supervisor.ProcessRequest(ctx, line)
			a.recordManifest(line, res)
			printResult(res)
		}
	}
}

func printHelp() {
	fmt.Println(`Commands:
  help      Show this help
  status    Show supervisor status and recent tasks
  agents    List registered agents
  health    Run agent health checks
  quit      Exit

Anything else is processed as a request, for example:
  generate a calculator
  plan a todo web application
  remember deploy_target as staging`)
}

func printStatus(a *app) {
	st := a.supervisor.Status()
	fmt.Printf("Status:    %s\n", st.Status)
	fmt.Printf("Version:   %s\n", st.Version)
	fmt.Printf("Processed: %d tasks\n", st.TotalTasksProcessed)
	if len(st.RecentTasks) == 0 {
		dimColor.Println("No recent tasks.")
		return
	}
	fmt.Println("Recent tasks:")
	for _, entry := range st.RecentTasks {
		marker := successColor.Sprint("ok")
		if !entry.Success {
			marker = failColor.Sprint("failed")
		}
		fmt.Printf("  %s  %s via %s (%.2fs) %s\n",
			entry.TaskID, entry.TaskType, entry.AgentUsed, entry.ProcessingTime, marker)
	}
}

func printAgents(a *app) {
	st := a.supervisor.Status()
	for _, info := range st.Agents {
		fmt.Printf("  %-12s %s\n", info.Name, info.Description)
	}
}

func printHealth(ctx context.Context, a *app) {
	results := a.supervisor.HealthCheck(ctx)
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if results[name] {
			fmt.Printf("  %-12s %s\n", name, successColor.Sprint("healthy"))
		} else {
			fmt.Printf("  %-12s %s\n", name, failColor.Sprint("unhealthy"))
		}
	}
}

func printResult(res models.RequestResult) {
	if !res.Success {
		failColor.Printf("Failed: %s\n", res.Error)
		return
	}
	successColor.Printf("Done in %.2fs", res.ProcessingTime)
	if res.Result != nil {
		fmt.Printf(" via %s", res.Result.AgentUsed)
	}
	fmt.Println()

	if res.Result == nil || res.Result.Result == nil {
		return
	}
	pipeline := res.Result.Result
	fmt.Printf("  Steps: %d completed, %d failed (%s)\n",
		pipeline.StepsCompleted, pipeline.StepsFailed, pipeline.FinalStatus)

	art := pipeline.Artifacts
	for _, f := range art.GeneratedFiles {
		fmt.Printf("  Generated: %s\n", f)
	}
	if art.CodegenArtifact != "" && len(art.GeneratedFiles) == 0 {
		fmt.Printf("  Generated: %s\n", art.CodegenArtifact)
	}
	if art.ExecutableArtifact != "" {
		fmt.Printf("  Executable: %s\n", art.ExecutableArtifact)
	}
	if art.ExecutableNote != "" {
		dimColor.Printf("  Note: %s\n", art.ExecutableNote)
	}
	if art.TaskDir != "" {
		dimColor.Printf("  Artifacts: %s\n", art.TaskDir)
	}
}
