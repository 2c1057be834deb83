// SPDX-License-Identifier: MIT
// Command gitpost turns a shared git repository into a multi-writer message
// store: channels are directories, messages are files, commits replicate.
package main

import "github.com/skaphos/gitpost/cmd/gitpost"

// execute is overridable in tests.
var execute = gitpost.Execute

func main() {
	execute()
}
