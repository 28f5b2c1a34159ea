package main

import (
	"fmt"
	"os"

	"github.com/chrissicool/lbc/cmd"
)

func main() {
	code, err := cmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(code)
}
