// Command dmq runs one-shot queries, filters and conversions over CSV, TSV
// and JSON files.
//
//	dmq query people.csv -e "SELECT name WHERE city='Oslo' ORDER BY name"
//	dmq filter people.csv -w "OR*='%anna%'"
//	dmq convert people.tsv --to json
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
