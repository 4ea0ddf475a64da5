package main

import (
	"fmt"
	"os"

	"github.com/aqua777/krait"

	"github.com/beyondbrewing/brewery-docstore/config"
)

// Config keys for krait
const (
	KeyConfig     = "config"
	KeyTarget     = "store.target"
	KeyCollection = "store.collection"
	KeyNamespace  = "store.namespace"
	KeyLogLevel   = "log.level"
	KeyLogFormat  = "log.format"
	KeyMultiple   = "update.multiple"
	KeyUpsert     = "update.upsert"
	KeyAll        = "drop.all"
	KeyFile       = "file"
)

func main() {
	app := krait.App("docstore", "Document store CLI",
		"Store, query and maintain JSON documents in a key-value backend (memory, pebble, sqlite, redis)").
		WithRun(func(args []string) error {
			fmt.Printf("%s %s - use 'docstore --help' to list commands\n", config.APP_NAME, config.APP_VERSION)
			return nil
		})

	for _, cmd := range []*krait.Command{
		krait.New("insert", "Insert documents", "Insert JSON documents given as arguments, or read from stdin, and print their ids").
			WithRun(run(cmdInsert)),
		krait.New("get", "Get a document by id", "Print the document stored under the given id").
			WithExactArgs(1).
			WithRun(run(cmdGet)),
		krait.New("find", "Find documents", "Print every document matching an optional JSON filter").
			WithMaximumNArgs(1).
			WithRun(run(cmdFind)),
		krait.New("count", "Count documents", "Print how many documents match an optional JSON filter").
			WithMaximumNArgs(1).
			WithRun(run(cmdCount)),
		krait.New("update", "Update documents", "Merge JSON fields into the documents matching a JSON filter").
			WithExactArgs(2).
			WithBoolP(KeyMultiple, "Update every match instead of the first", "multiple", "m", "", false).
			WithBoolP(KeyUpsert, "Insert when nothing matches", "upsert", "u", "", false).
			WithRun(run(cmdUpdate)),
		krait.New("delete", "Delete documents", "Delete the documents matching a JSON filter").
			WithExactArgs(1).
			WithRun(run(cmdDelete)),
		krait.New("keys", "List document ids", "Print the id of every document in the collection").
			WithNoArgs().
			WithRun(run(cmdKeys)),
		krait.New("drop", "Drop the collection", "Delete every document of the collection, or of the whole store with --all").
			WithNoArgs().
			WithBool(KeyAll, "Flush the whole store, every collection included", "all", "", false).
			WithRun(run(cmdDrop)),
		krait.New("export", "Export documents", "Write the collection as JSON lines to stdout or a file").
			WithNoArgs().
			WithStringP(KeyFile, "Output file", "file", "f", "", "").
			WithRun(run(cmdExport)),
		krait.New("import", "Import documents", "Insert JSON documents read from stdin or a file").
			WithNoArgs().
			WithStringP(KeyFile, "Input file", "file", "f", "", "").
			WithRun(run(cmdImport)),
	} {
		app.WithCommand(withStoreFlags(cmd))
	}

	if err := app.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// withStoreFlags adds the flags every store command shares. Empty values
// fall back to the loaded configuration.
func withStoreFlags(cmd *krait.Command) *krait.Command {
	return cmd.
		WithStringP(KeyConfig, "Path to config file (default ./.env)", "config", "c", "DOCSTORE_CONFIG", "").
		WithStringP(KeyTarget, "Connection target, e.g. redis://localhost:6379/0", "target", "t", "DOCSTORE_CONNECTION_TARGET", "").
		WithString(KeyCollection, "Collection name", "collection", "DOCSTORE_COLLECTION_NAME", "").
		WithString(KeyNamespace, "Store namespace", "namespace", "DOCSTORE_NAMESPACE", "").
		WithString(KeyLogLevel, "Log level (debug, info, warn, error)", "log-level", "DOCSTORE_LOG_LEVEL", "").
		WithString(KeyLogFormat, "Log format (json, console)", "log-format", "DOCSTORE_LOG_FORMAT", "")
}
