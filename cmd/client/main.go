package main

import "tejanitos/cmd/client/cmd"

func main() {
	cmd.Execute()
}
