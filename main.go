package main

import "mixer-report/cmd"

func main() {
	cmd.Execute()
}
