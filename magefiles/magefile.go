//go:build mage

// Package main provides build targets for touch using Mage.
//
// Usage:
//
//	mage build     Compile the touch binary to bin/
//	mage test      Run all tests
//	mage lint      Run golangci-lint
//	mage run       Build, then serve with config.yaml and .env
//	mage migrate   Apply pending migrations
//	mage seed      Seed subjects from subjects.yaml
//	mage clean     Remove build artifacts
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "touch"
	binaryDir  = "bin"
	cmdDir     = "./cmd/touch"
)

var binary = filepath.Join(binaryDir, binaryName)

// Build compiles the touch binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV(binGo, "build", "-o", binary, cmdDir)
}

// Test runs all tests.
func Test() error {
	return sh.RunV(binGo, "test", "./...")
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Run builds then serves with the local environment.
func Run() error {
	mg.Deps(Build)
	env, err := localEnv()
	if err != nil {
		return err
	}
	fmt.Println(">> Starting touch ...")
	return sh.RunWithV(env, binary, "serve")
}

// Migrate applies pending migrations.
func Migrate() error {
	mg.Deps(Build)
	env, err := localEnv()
	if err != nil {
		return err
	}
	return sh.RunWithV(env, binary, "migrate")
}

// Seed creates or updates subjects from subjects.yaml.
func Seed() error {
	mg.Deps(Build)
	env, err := localEnv()
	if err != nil {
		return err
	}
	return sh.RunWithV(env, binary, "subjects", "seed", "subjects.yaml")
}

// Clean removes build artifacts.
func Clean() error {
	return os.RemoveAll(binaryDir)
}

// localEnv reads .env when present.
func localEnv() (map[string]string, error) {
	env, err := godotenv.Read()
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	return env, err
}
