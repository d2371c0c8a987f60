// panelport moves Kibana dashboards and their dependencies between instances.
package main

import (
	"os"

	"github.com/hupe1980/panelport/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
