// Command tidestore-cli is a small flag-based client for exercising one
// named collection's backing LSM engine directly from the shell: put, get,
// del, and compact.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"tidestore/pkg/collection"
	"tidestore/pkg/document"
	"tidestore/pkg/lsm"
)

func main() {
	dataDir := flag.String("data-dir", "./tidestore-data", "Root directory for per-collection engine storage")
	collName := flag.String("collection", "default", "Collection name")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	c, err := openCollection(*dataDir, *collName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := run(c, args[0], args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func openCollection(dataDir, name string) (*collection.Collection, error) {
	enginePath := filepath.Join(dataDir, name)

	var (
		engine *lsm.Engine
		err    error
	)
	if _, statErr := os.Stat(enginePath); statErr == nil {
		engine, err = lsm.Load(name, enginePath)
	} else {
		engine, err = lsm.New(name, enginePath)
	}
	if err != nil {
		return nil, fmt.Errorf("open collection %s: %w", name, err)
	}
	return collection.Open(name, engine), nil
}

func run(c *collection.Collection, cmd string, args []string) error {
	switch cmd {
	case "put":
		return cmdPut(c, args)
	case "get":
		return cmdGet(c, args)
	case "del":
		return cmdDel(c, args)
	case "compact":
		return cmdCompact(c, args)
	default:
		usage()
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func cmdPut(c *collection.Collection, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: put <json-document>")
	}
	var body map[string]interface{}
	if err := json.Unmarshal([]byte(args[0]), &body); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	id, err := c.Insert(document.NewDocumentFromMap(body))
	if err != nil {
		return err
	}
	fmt.Println(id.Hex())
	return nil
}

func cmdGet(c *collection.Collection, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: get <id>")
	}
	id, err := document.ObjectIDFromHex(args[0])
	if err != nil {
		return fmt.Errorf("invalid id: %w", err)
	}
	doc, err := c.FindByID(id)
	if err == collection.ErrNotFound {
		fmt.Println("not found")
		return nil
	}
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(doc.ToMap(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func cmdDel(c *collection.Collection, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: del <id>")
	}
	id, err := document.ObjectIDFromHex(args[0])
	if err != nil {
		return fmt.Errorf("invalid id: %w", err)
	}
	return c.DeleteByID(id)
}

func cmdCompact(c *collection.Collection, args []string) error {
	force := false
	if len(args) > 0 && args[0] == "force" {
		force = true
	}
	if err := c.Compact(force); err != nil {
		return err
	}
	stats := c.Stats()
	out, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: tidestore-cli [-data-dir dir] [-collection name] <command> [args]

commands:
  put <json-document>   insert a document, prints its new id
  get <id>               fetch a document by id
  del <id>               delete a document by id
  compact [force]        run one compaction cycle`)
}
