package main

import (
	"os"

	"github.com/theloz33-bot/jino-ai-interviewer/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
