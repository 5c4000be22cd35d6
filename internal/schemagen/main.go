// Command schemagen writes the JSON schema of the litescript configuration.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/cernvm/litescript/api/v1beta1/configs"
)

var outFile = flag.String("o", "configs.v1beta1.json", "Output file for the generated schema")

func main() {
	flag.Parse()

	data, err := configs.Schema()
	if err != nil {
		log.Fatalf("generate JSON schema: %v", err)
	}

	err = os.WriteFile(*outFile, data, 0o600)
	if err != nil {
		log.Fatalf("write schema file: %v", err)
	}
}
