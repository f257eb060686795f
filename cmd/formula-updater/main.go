package main

import "github.com/k4kratik/homebrew-smart-rds-viewer/cmd/formula-updater/cmd"

func main() {
	cmd.Execute()
}
