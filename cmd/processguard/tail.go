package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/processguard/processguard/internal/config"
	"github.com/processguard/processguard/internal/logger"
)

var tailCmd = &cobra.Command{
	Use:   "tail <process>",
	Short: "Tail a process's log file",
	Long: `Read a process's log directly from the Log Store on disk.

This does not talk to a running daemon: it reads the same
<log_base_dir>/<process>/ directory the daemon writes to.`,
	Args: cobra.ExactArgs(1),
	Run:  runTail,
}

var (
	tailLines  int
	tailFollow bool
)

func init() {
	tailCmd.Flags().IntVarP(&tailLines, "lines", "n", 100, "Number of lines to show")
	tailCmd.Flags().BoolVarP(&tailFollow, "follow", "f", false, "Follow the log as it grows")
}

func runTail(cmd *cobra.Command, args []string) {
	processName := args[0]

	cfg, err := config.LoadFrom(getConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	store, err := logger.NewStore(cfg.LogBaseDir, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log store: %v\n", err)
		os.Exit(1)
	}

	files, err := store.ListLogFiles(processName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to list logs for %q: %v\n", processName, err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "no log files found for process %q under %s\n", processName, cfg.LogBaseDir)
		os.Exit(1)
	}

	activePath := files[len(files)-1]

	lines, err := logger.TailFile(activePath, tailLines)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read %s: %v\n", activePath, err)
		os.Exit(1)
	}
	for _, line := range lines {
		fmt.Println(line)
	}

	if !tailFollow {
		return
	}

	followFile(activePath)
}

// followFile polls the active log file for new lines, stdlib-only,
// since the CLI has no handle to the daemon's in-memory Store.files
// mapping used by Store.Stream.
func followFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open %s: %v\n", path, err)
		os.Exit(1)
	}
	defer f.Close()

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		fmt.Fprintf(os.Stderr, "failed to seek %s: %v\n", path, err)
		os.Exit(1)
	}

	reader := bufio.NewReader(f)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		for {
			line, err := reader.ReadString('\n')
			if line != "" {
				fmt.Print(line)
			}
			if err != nil {
				break
			}
		}
	}
}
