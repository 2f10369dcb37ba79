package main

import "github.com/OpenTraceLab/OpenTraceSVF/cmd/svfload/cmd"

func main() {
	cmd.Execute()
}
