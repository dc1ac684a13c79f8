package main

import "github.com/lexcodex/codeagent/app/cmd"

func main() {
	cmd.Execute()
}
