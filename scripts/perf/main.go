// SPDX-License-Identifier: MIT

// Command perf runs the repository benchmarks and appends the results to a
// JSONL history, so ns/op drift between runs is visible as a delta instead
// of a feeling.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

type sample struct {
	NsPerOp     float64 `json:"ns_per_op"`
	BPerOp      float64 `json:"b_per_op,omitempty"`
	AllocsPerOp float64 `json:"allocs_per_op,omitempty"`
}

type runRecord struct {
	Timestamp string            `json:"timestamp"`
	Commit    string            `json:"commit"`
	GoVersion string            `json:"go_version"`
	Packages  []string          `json:"packages"`
	Bench     string            `json:"bench"`
	Benchtime string            `json:"benchtime"`
	Count     int               `json:"count"`
	Samples   map[string]sample `json:"benchmarks"`
}

var benchLine = regexp.MustCompile(`^(Benchmark\S+)\s+\d+\s+([0-9.]+)\s+ns/op(?:\s+([0-9.]+)\s+B/op\s+([0-9.]+)\s+allocs/op)?`)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("perf", flag.ContinueOnError)
	historyPath := fs.String("history", "perf/history.jsonl", "path to benchmark history jsonl")
	rawDir := fs.String("raw-dir", "perf/runs", "directory for raw benchmark logs")
	packageCSV := fs.String("packages", "./internal/msgfile", "comma-separated benchmark packages")
	benchPattern := fs.String("bench", ".", "go test -bench pattern")
	benchtime := fs.String("benchtime", "1x", "go test benchmark time (for example: 1x, 500ms, 2s)")
	count := fs.Int("count", 5, "go test benchmark count")
	warnPct := fs.Float64("warn-pct", 10, "mark benchmarks whose ns/op grew more than this percentage since the previous run")
	if err := fs.Parse(args); err != nil {
		return err
	}

	packages := splitCSV(*packageCSV)
	if len(packages) == 0 {
		return fmt.Errorf("no benchmark packages provided")
	}

	rawOutput, err := runBenchmarks(packages, *benchPattern, *benchtime, *count)
	if err != nil {
		return err
	}

	samples, err := parseSamples(rawOutput)
	if err != nil {
		return err
	}

	record := runRecord{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Commit:    gitShortCommit(),
		GoVersion: runtimeGoVersion(),
		Packages:  packages,
		Bench:     *benchPattern,
		Benchtime: *benchtime,
		Count:     *count,
		Samples:   samples,
	}

	if err := os.MkdirAll(*rawDir, 0o755); err != nil {
		return fmt.Errorf("create raw log dir: %w", err)
	}
	rawFile := filepath.Join(*rawDir, "bench-"+time.Now().UTC().Format("20060102T150405")+".txt")
	if err := os.WriteFile(rawFile, []byte(rawOutput), 0o644); err != nil {
		return fmt.Errorf("write raw log: %w", err)
	}

	// Read the previous record before appending so this run still has a
	// baseline to diff against.
	previous, _ := loadLastRecord(*historyPath)
	if err := appendRecord(*historyPath, record); err != nil {
		return fmt.Errorf("append history: %w", err)
	}

	fmt.Fprintf(out, "saved raw benchmark log: %s\n", rawFile)
	fmt.Fprintf(out, "updated benchmark history: %s\n", *historyPath)
	printSummary(out, record, previous, *warnPct)
	return nil
}

func runBenchmarks(packages []string, bench, benchtime string, count int) (string, error) {
	args := []string{
		"test",
		"-run=^$",
		"-bench=" + bench,
		"-benchmem",
		"-benchtime=" + benchtime,
		fmt.Sprintf("-count=%d", count),
	}
	args = append(args, packages...)
	cmd := exec.Command("go", args...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("benchmark run failed: %w\n%s", err, output.String())
	}
	return output.String(), nil
}

func parseSamples(raw string) (map[string]sample, error) {
	samples := make(map[string]sample)
	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		match := benchLine.FindStringSubmatch(line)
		if len(match) == 0 {
			continue
		}
		entry := sample{NsPerOp: parseFloat(match[2])}
		if match[3] != "" {
			entry.BPerOp = parseFloat(match[3])
		}
		if match[4] != "" {
			entry.AllocsPerOp = parseFloat(match[4])
		}
		samples[match[1]] = entry
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("no benchmark results found in output")
	}
	return samples, nil
}

func parseFloat(v string) float64 {
	var out float64
	_, _ = fmt.Sscanf(v, "%f", &out)
	return out
}

func gitShortCommit() string {
	out, err := exec.Command("git", "rev-parse", "--short", "HEAD").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}

func runtimeGoVersion() string {
	out, err := exec.Command("go", "version").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}

func splitCSV(in string) []string {
	parts := strings.Split(in, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func appendRecord(path string, record runRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	line, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if _, err := f.Write(line); err != nil {
		return err
	}
	if _, err := f.WriteString("\n"); err != nil {
		return err
	}
	return nil
}

func loadLastRecord(path string) (*runRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	scanner := bufio.NewScanner(f)
	var last string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			last = line
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if last == "" {
		return nil, fmt.Errorf("history file is empty")
	}
	var record runRecord
	if err := json.Unmarshal([]byte(last), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func printSummary(out io.Writer, current runRecord, previous *runRecord, warnPct float64) {
	names := make([]string, 0, len(current.Samples))
	for name := range current.Samples {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(out, "benchmark summary (ns/op):")
	for _, name := range names {
		cur := current.Samples[name]
		if previous == nil {
			fmt.Fprintf(out, "  %-44s %.2f\n", name, cur.NsPerOp)
			continue
		}
		prev, ok := previous.Samples[name]
		if !ok || prev.NsPerOp == 0 {
			fmt.Fprintf(out, "  %-44s %.2f\n", name, cur.NsPerOp)
			continue
		}
		deltaPct := ((cur.NsPerOp - prev.NsPerOp) / prev.NsPerOp) * 100
		marker := ""
		if warnPct > 0 && deltaPct > warnPct {
			marker = "  <-- regressed"
		}
		fmt.Fprintf(out, "  %-44s %.2f (%+.2f%% vs previous)%s\n", name, cur.NsPerOp, deltaPct, marker)
	}
}
