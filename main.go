package main

import "github.com/deploymenttheory/myfs/cmd"

func main() {
	cmd.Execute()
}
