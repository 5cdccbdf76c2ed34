// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/nibench/nibench/cmd/nibench"

func main() {
	cmd.Execute()
}
