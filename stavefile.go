//go:build stave

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/yaklabco/stave/pkg/sh"
	"github.com/yaklabco/stave/pkg/st"
)

// Default target when running `stave` with no arguments.
var Default = Build

// Aliases for common targets.
var Aliases = map[string]interface{}{
	"b": Build,
	"t": Test,
	"l": Lint,
	"i": Install,
	"c": Clean,
	"x": Index,
}

const (
	binaryName = "dirindex"
	mainPkg    = "./cmd/dirindex"
	binDir     = "bin"
	coverFile  = "coverage.out"
)

// All lints, tests and builds.
func All() error {
	st.Deps(Lint, Test)
	st.Deps(Build)
	return nil
}

// Build compiles bin/dirindex with version information.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating bin directory: %w", err)
	}
	return sh.RunV("go", "build", "-ldflags", ldflags(), "-o", builtBinary(), mainPkg)
}

// Install copies the built binary into GOBIN, GOPATH/bin or /usr/local/bin.
func Install() error {
	st.Deps(Build)

	dir, err := installDir()
	if err != nil {
		return err
	}
	dst := filepath.Join(dir, exe(binaryName))
	if st.Verbose() {
		fmt.Printf("Installing %s to %s\n", builtBinary(), dst)
	}
	return sh.Copy(dst, builtBinary())
}

// Uninstall removes the installed binary, if any.
func Uninstall() error {
	dir, err := installDir()
	if err != nil {
		return err
	}

	target := filepath.Join(dir, exe(binaryName))
	err = os.Remove(target)
	if errors.Is(err, fs.ErrNotExist) {
		if st.Verbose() {
			fmt.Printf("%s is not installed\n", target)
		}
		return nil
	}
	return err
}

// Test runs the test suite with the race detector and writes a coverage
// profile.
func Test() error {
	return sh.RunV("go", "test", "-race", "-coverprofile="+coverFile, "./...")
}

// Cover prints per-function coverage from a fresh Test run.
func Cover() error {
	st.Deps(Test)
	return sh.RunV("go", "tool", "cover", "-func="+coverFile)
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Index updates every folder in the local config and checks the result.
func Index() error {
	st.Deps(Build)

	if err := sh.RunV(builtBinary(), "update"); err != nil {
		return err
	}
	return sh.RunV(builtBinary(), "verify")
}

// Clean removes build output and the coverage profile.
func Clean() error {
	if st.Verbose() {
		fmt.Printf("Removing %s/ and %s\n", binDir, coverFile)
	}
	if err := sh.Rm(coverFile); err != nil {
		return err
	}
	return sh.Rm(binDir + "/")
}

// Fmt runs gofmt and goimports over the tree.
func Fmt() error {
	if err := sh.Run("gofmt", "-w", "."); err != nil {
		return fmt.Errorf("running gofmt: %w", err)
	}
	return sh.Run("goimports", "-w", ".")
}

// Tidy runs go mod tidy.
func Tidy() error {
	return sh.RunV("go", "mod", "tidy")
}

func exe(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

func builtBinary() string {
	return filepath.Join(binDir, exe(binaryName))
}

// installDir resolves GOBIN, then GOPATH/bin, then /usr/local/bin.
func installDir() (string, error) {
	gocmd := st.GoCmd()
	for _, key := range []string{"GOBIN", "GOPATH"} {
		v, err := sh.Output(gocmd, "env", key)
		if err != nil {
			return "", fmt.Errorf("determining %s: %w", key, err)
		}
		if v = strings.TrimSpace(v); v == "" {
			continue
		}
		if key == "GOPATH" {
			// GOPATH may list several entries; binaries go in the first.
			v = filepath.Join(filepath.SplitList(v)[0], "bin")
		}
		return v, nil
	}
	return "/usr/local/bin", nil
}

// ldflags injects version, commit and build date into cmd/dirindex.
func ldflags() string {
	vars := map[string]string{
		"version": "dev",
		"commit":  "unknown",
		"date":    time.Now().UTC().Format(time.RFC3339),
	}
	if v, err := sh.Output("git", "describe", "--tags", "--always", "--dirty"); err == nil && v != "" {
		vars["version"] = strings.TrimSpace(v)
	}
	if c, err := sh.Output("git", "rev-parse", "--short", "HEAD"); err == nil && c != "" {
		vars["commit"] = strings.TrimSpace(c)
	}

	const pkg = "github.com/jamesainslie/dirindex/cmd/dirindex"
	flags := make([]string, 0, len(vars))
	for _, name := range []string{"version", "commit", "date"} {
		flags = append(flags, fmt.Sprintf("-X %s.%s=%s", pkg, name, vars[name]))
	}
	return strings.Join(flags, " ")
}
