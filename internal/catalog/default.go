package catalog

import (
	_ "embed"
	"fmt"
)

//go:embed default.yaml
var defaultCatalog []byte

// Default returns the catalog of the built-in genotypes.
func Default() Config {
	cfg, err := Decode(defaultCatalog, ".yaml")
	if err != nil {
		panic(fmt.Sprintf("decode default catalog: %v", err))
	}
	return cfg
}
