package main

import "github.com/MeKo-Tech/platefinder/cmd/platefinder/cmd"

func main() {
	cmd.Execute()
}
