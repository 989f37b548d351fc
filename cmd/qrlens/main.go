package main

import "github.com/MeKo-Tech/qrlens/cmd/qrlens/cmd"

func main() {
	cmd.Execute()
}
