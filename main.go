// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/relgate/relgate/cmd/relgate"

func main() {
	cmd.Execute()
}
