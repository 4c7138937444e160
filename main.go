// The main package for the catalog-collector executable.
package main

import "github.com/revendis/catalog-collector/cmd"

func main() {
	cmd.Execute()
}
