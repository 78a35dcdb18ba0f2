package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

var CLI struct {
	Serve         ServeCmd         `cmd:"" help:"Run the HTTP server." default:"1"`
	Migrate       MigrateCmd       `cmd:"" help:"Apply pending database migrations and exit."`
	AuditConsumer AuditConsumerCmd `cmd:"" help:"Consume audit events and append them to a log file."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("journal"),
		kong.Description("Learning journal web service"),
		kong.UsageOnError(),
	)
	if err := ctx.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
