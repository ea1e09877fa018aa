package main

import "github.com/callmind/ms-go-billing/cmd"

func main() {
	cmd.Execute()
}
