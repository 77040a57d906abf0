package main

import "github.com/PraveenPrabhuT/sugar-pack/cmd"

func main() {
	cmd.Execute()
}
