package main

import "github.com/khanhnv2901/cfcheck/cmd"

var execCmd = cmd.Execute

func main() {
	execCmd()
}
