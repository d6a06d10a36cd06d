package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pevans/recipefed/config"
)

func handleConfigCommand(a *app, configPath string, args []string) {
	action := "show"
	if len(args) > 0 {
		action = args[0]
	}
	if configPath == "" {
		configPath = config.DefaultPath()
	}

	switch action {
	case "show":
		data, err := config.Marshal(a.cfg)
		if err != nil {
			fail("%v", err)
		}
		fmt.Printf("# %s\n", configPath)
		fmt.Print(string(data))
	case "init":
		fs := flag.NewFlagSet("config init", flag.ExitOnError)
		force := fs.Bool("force", false, "Overwrite an existing config file")
		fs.Parse(args[1:])

		if err := config.Save(configPath, a.cfg, *force); err != nil {
			fail("%v", err)
		}
		fmt.Printf("✓ Wrote config: %s\n", configPath)
	case "path":
		fmt.Println(configPath)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown config command: %s\n\n", action)
		fmt.Println("Usage: recipefed config [show | init [--force] | path]")
		os.Exit(1)
	}
}
