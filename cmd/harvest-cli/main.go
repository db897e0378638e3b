package main

import (
	"redditharvest/cmd/harvest-cli/commands"
	"redditharvest/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
