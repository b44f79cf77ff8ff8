// Command journal is the CLI front end for the append-only lab
// journal engine: query/search/stats/active/export over the indexed
// entries, rebuild-index to re-derive the index from disk, init to lay
// out a new project, and shell for an interactive session.
package main

import (
	"github.com/anthropics/labjournal/cmd/journal/commands"
)

func main() {
	commands.Execute()
}
