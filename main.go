// SPDX-License-Identifier: MPL-2.0

package main

import cmd "pysling/cmd/pysling"

func main() {
	cmd.Execute()
}
