package main

import "github.com/Mohsinsiddi/earnusdc/cmd"

func main() {
	cmd.Execute()
}
