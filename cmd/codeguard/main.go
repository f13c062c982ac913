// Command codeguard scans source code for security vulnerabilities, privacy
// compliance gaps and code health problems.
//
// Usage:
//
//	codeguard scan app/src/main/java/Login.java
//	cat Login.kt | codeguard scan --language Kotlin -
//	codeguard scan --github octo/app/src/Main.kt@main --format sarif > codeguard.sarif
//	codeguard health --gitlab group/app:src/Main.kt@develop
//	codeguard history list --kind security
//	codeguard serve --config codeguard.yaml
//	codeguard watch ./app/src
package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
)

// Set at build time with -ldflags "-X main.version=...".
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// Exit codes.
const (
	exitOK       = 0
	exitError    = 1
	exitFindings = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		var gate *gateError
		if stderrors.As(err, &gate) {
			fmt.Fprintln(stderr, gate.Error())
			return exitFindings
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	return exitOK
}
