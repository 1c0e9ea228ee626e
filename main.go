/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/DiscipleTools/agent-ai-sub003/cmd"

func main() {
	cmd.Execute()
}
