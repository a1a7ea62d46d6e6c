package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/cuemby/bffhd/pkg/store"
	"github.com/cuemby/bffhd/pkg/value"
)

var (
	dataDir = flag.String("data-dir", "/var/lib/bffhd", "bffhd data directory")
	dbName  = flag.String("db", "state.db", "state database file name, relative to data-dir")
)

func main() {
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	dbPath := filepath.Join(*dataDir, *dbName)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		log.Fatalf("state database not found at %s", dbPath)
	}

	log.Printf("bffhd-dump: %s", dbPath)

	st, err := store.Open(dbPath)
	if err != nil {
		log.Fatalf("opening state store: %v", err)
	}
	defer st.Close()

	var count int
	err = st.IterateAll(func(e store.Entry) error {
		count++
		fmt.Printf("resource %d\n", e.ID)
		fmt.Printf("  input:  %s\n", formatState(e.Input))
		fmt.Printf("  output: %s\n", formatState(e.Output))
		return nil
	})
	if err != nil {
		log.Fatalf("iterating store: %v", err)
	}

	log.Printf("dumped %d resource entries", count)
}

func formatState(s value.State) string {
	entries := s.Entries()
	if len(entries) == 0 {
		return "(empty)"
	}
	out := ""
	for i, e := range entries {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s=%s", e.OID.String(), e.Value.String())
	}
	return out
}
