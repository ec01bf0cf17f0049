package compose

import (
	"path/filepath"
	"strconv"
	"strings"
)

// Argument builders for the compose CLI. Every builder returns the arguments
// that follow the base command ("docker compose").

func ListArgs() []string {
	return []string{"ls", "--all", "--format", "json"}
}

func ConfigArgs(definitionPath string) []string {
	return append(fileArgs(definitionPath), "config", "--format", "json")
}

// PsArgs asks for "json": older compose releases print an array for it and
// newer ones print JSON lines. ParseServiceList accepts both.
func PsArgs(definitionPath string) []string {
	return append(fileArgs(definitionPath), "ps", "--all", "--format", "json")
}

func UpArgs(definitionPath string) []string {
	return append(fileArgs(definitionPath), "up", "--detach", "--remove-orphans")
}

func StopArgs(definitionPath string) []string {
	return append(fileArgs(definitionPath), "stop")
}

func DownArgs(definitionPath string) []string {
	return append(fileArgs(definitionPath), "down", "--remove-orphans")
}

// LogsArgs requests the last tail lines once.
func LogsArgs(definitionPath string, tail int) []string {
	return append(fileArgs(definitionPath), "logs", "--tail", strconv.Itoa(tail))
}

// FollowArgs streams new log output only; history comes from LogsArgs.
func FollowArgs(definitionPath string) []string {
	return append(fileArgs(definitionPath), "logs", "--follow", "--tail", "0")
}

func VersionArgs() []string {
	return []string{"version"}
}

// fileArgs expands a definition path into --file flags. The runtime reports
// multi-file stacks as a comma-separated list.
func fileArgs(definitionPath string) []string {
	var args []string
	for _, path := range strings.Split(definitionPath, ",") {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		args = append(args, "--file", path)
	}
	return args
}

// Subcommand returns the compose subcommand in args, skipping --file flags.
func Subcommand(args []string) string {
	for i := 0; i < len(args); i++ {
		if args[i] == "--file" {
			i++
			continue
		}
		if !strings.HasPrefix(args[i], "-") {
			return args[i]
		}
	}
	return ""
}

// WorkingDir returns the directory of the first file of a definition path.
func WorkingDir(definitionPath string) string {
	first, _, _ := strings.Cut(definitionPath, ",")
	return filepath.Dir(strings.TrimSpace(first))
}
