package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// A missing .env is fine; variables may come from the environment.
	_ = godotenv.Load()

	configPath := getEnv("RECIPEFED_CONFIG", "")

	subcommand := os.Args[1]
	args := os.Args[2:]

	switch subcommand {
	case "normalize":
		handleNormalize(args)
	case "help", "--help", "-h":
		printUsage()
	default:
		a := newApp(configPath)
		defer a.close()

		switch subcommand {
		case "extract":
			handleExtract(a, args)
		case "process":
			handleProcess(a, args)
		case "harvest":
			handleHarvest(a, args)
		case "discover":
			handleDiscover(a, args)
		case "run":
			handleRun(a, args)
		case "pages":
			handlePagesCommand(a, args)
		case "recipes":
			handleRecipesCommand(a, args)
		case "sites":
			handleSitesCommand(a, args)
		case "config":
			handleConfigCommand(a, configPath, args)
		default:
			fmt.Fprintf(os.Stderr, "Error: unknown command: %s\n\n", subcommand)
			printUsage()
			a.close()
			os.Exit(1)
		}
	}
}

func printUsage() {
	fmt.Println("recipefed - Recipe extraction and ingredient normalization")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  recipefed <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  normalize  Normalize ingredient lines or JSON ingredient records")
	fmt.Println("  extract    Extract a recipe from a URL or a saved HTML file")
	fmt.Println("  process    Extract every HTML file in a directory")
	fmt.Println("  harvest    Fetch and extract pending pages")
	fmt.Println("  discover   Queue new pages from site feeds")
	fmt.Println("  run        Discover and harvest periodically until interrupted")
	fmt.Println("  pages      Manage tracked pages")
	fmt.Println("  recipes    Manage extracted recipes")
	fmt.Println("  sites      Show configured sites")
	fmt.Println("  config     Show or create the config file")
	fmt.Println("  help       Show this help message")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  RECIPEFED_CONFIG      Path to config file (default: ~/.recipefed/config.yaml)")
	fmt.Println("  RECIPEFED_DATA_DIR    Directory for recipes and the page database")
	fmt.Println("  RECIPEFED_LOG_LEVEL   debug, info, warn or error")
	fmt.Println("  RECIPEFED_CACHE_TYPE  memory, redis or none")
}
