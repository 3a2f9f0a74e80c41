package main

import "github.com/nixxel-company-limited/escpos-dispatch/cmd"

func main() {
	cmd.Execute()
}
