package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pevans/recipefed/ingredient"
	"github.com/pevans/recipefed/locale"
)

func handleNormalize(args []string) {
	fs := flag.NewFlagSet("normalize", flag.ExitOnError)
	lang := fs.String("locale", "", "Language of the ingredient lines (e.g. de, it, ru)")
	amount := fs.String("amount", "", "Amount supplied alongside a single line")
	unit := fs.String("unit", "", "Unit supplied alongside a single line")
	asJSON := fs.Bool("json", false, "Read an ingredient object or array as JSON from stdin")
	format := fs.String("format", "table", "Output format: table, json")
	fs.Parse(args)

	if *asJSON {
		normalizeJSON(os.Stdin)
		return
	}

	lines := fs.Args()
	if len(lines) == 0 {
		var err error
		lines, err = readLines(os.Stdin)
		if err != nil {
			fail("failed to read stdin: %v", err)
		}
	}
	if len(lines) == 0 {
		fail("no ingredient lines given")
	}
	if (*amount != "" || *unit != "") && len(lines) > 1 {
		fail("--amount and --unit apply to a single line")
	}

	lx := locale.Lookup(*lang)
	raws := make([]*ingredient.Raw, 0, len(lines))
	for _, line := range lines {
		raw := lx.Prepare(line)
		if *amount != "" {
			raw.Amount = *amount
		}
		if *unit != "" {
			raw.Unit = lx.TranslateUnit(*unit)
		}
		raws = append(raws, &raw)
	}

	ings := ingredient.NormalizeList(raws)
	switch *format {
	case "json":
		printJSON(ings)
	case "table":
		printIngredients(ings)
	default:
		fail("unknown format: %s", *format)
	}
}

// normalizeJSON normalizes one ingredient object or an array of them read
// from r, keeping any extra keys.
func normalizeJSON(r io.Reader) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var body any
	if err := dec.Decode(&body); err != nil {
		fail("invalid JSON: %v", err)
	}

	switch v := body.(type) {
	case map[string]any:
		printJSON(ingredient.NormalizeValue(v))
	case []any:
		printJSON(ingredient.NormalizeValues(v))
	default:
		fail("expected an ingredient object or an array of ingredients")
	}
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan input: %w", err)
	}
	return lines, nil
}
