// faqchat - chat with a question-answering backend from the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"os"

	"github.com/jeranaias/faqchat/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	version := Version
	if GitCommit != "unknown" {
		version += " (" + GitCommit + ")"
	}
	os.Exit(cli.Execute(version))
}
