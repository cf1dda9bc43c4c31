// Command vdbctl is the CLI front end for the vectordb embedded store.
package main

import "github.com/diffsec/vectordb/cmd"

func main() {
	cmd.Execute()
}
