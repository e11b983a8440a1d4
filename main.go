package main

import "github.com/derickschaefer/appmeta/cmd"

func main() {
	cmd.Execute()
}
