package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/aqua777/krait"

	"github.com/beyondbrewing/brewery-docstore/config"
	"github.com/beyondbrewing/brewery-docstore/docstore"
	"github.com/beyondbrewing/brewery-docstore/pkg/logger"
)

var errNotFound = errors.New("document not found")

// invocation is what a command gets to work with besides the collection.
type invocation struct {
	args []string
	in   io.Reader
	out  io.Writer

	multiple bool
	upsert   bool
	all      bool
	file     string
}

type commandFunc func(ctx context.Context, col *docstore.Collection, inv *invocation) error

// run wraps a command with config loading, logger setup and the
// collection lifecycle.
func run(fn commandFunc) func(args []string) error {
	return func(args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return err
		}
		logger.SetDefault(log)
		defer logger.SyncDefault()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		col, err := docstore.Open(ctx, cfg, docstore.WithLogger(log))
		if err != nil {
			return err
		}
		defer func() {
			if err := col.Close(); err != nil {
				logger.Warn("failed to close collection", "error", err)
			}
		}()

		return fn(ctx, col, &invocation{
			args:     args,
			in:       os.Stdin,
			out:      os.Stdout,
			multiple: krait.GetBool(KeyMultiple),
			upsert:   krait.GetBool(KeyUpsert),
			all:      krait.GetBool(KeyAll),
			file:     krait.GetString(KeyFile),
		})
	}
}

// loadConfig reads the configuration and applies flag overrides on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(krait.GetString(KeyConfig))
	if err != nil {
		return nil, err
	}
	override(&cfg.ConnectionTarget, krait.GetString(KeyTarget))
	override(&cfg.CollectionName, krait.GetString(KeyCollection))
	override(&cfg.Namespace, krait.GetString(KeyNamespace))
	override(&cfg.LogLevel, krait.GetString(KeyLogLevel))
	override(&cfg.LogFormat, krait.GetString(KeyLogFormat))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func cmdInsert(ctx context.Context, col *docstore.Collection, inv *invocation) error {
	if len(inv.args) == 0 {
		ids, err := col.Import(ctx, inv.in)
		printLines(inv.out, ids)
		return err
	}

	docs := make([]docstore.Document, 0, len(inv.args))
	for _, arg := range inv.args {
		obj, err := parseObject(arg)
		if err != nil {
			return err
		}
		docs = append(docs, obj)
	}
	ids, err := col.InsertMany(ctx, docs)
	printLines(inv.out, ids)
	return err
}

func cmdGet(ctx context.Context, col *docstore.Collection, inv *invocation) error {
	doc, found, err := col.GetByID(ctx, inv.args[0])
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %q", errNotFound, inv.args[0])
	}
	return writeJSON(inv.out, doc)
}

func cmdFind(ctx context.Context, col *docstore.Collection, inv *invocation) error {
	filter, err := optionalFilter(inv.args)
	if err != nil {
		return err
	}
	docs, err := col.Filter(ctx, filter)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if err := writeJSON(inv.out, doc); err != nil {
			return err
		}
	}
	return nil
}

func cmdCount(ctx context.Context, col *docstore.Collection, inv *invocation) error {
	filter, err := optionalFilter(inv.args)
	if err != nil {
		return err
	}
	n, err := col.Count(ctx, filter)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(inv.out, n)
	return err
}

func cmdUpdate(ctx context.Context, col *docstore.Collection, inv *invocation) error {
	filter, err := parseObject(inv.args[0])
	if err != nil {
		return err
	}
	fields, err := parseObject(inv.args[1])
	if err != nil {
		return err
	}

	n, res, err := col.Update(ctx, docstore.Filter(filter), fields, docstore.UpdateOptions{
		Multiple: inv.multiple,
		Upsert:   inv.upsert,
	})
	if err != nil {
		return err
	}
	docs := res.Documents()
	if docs == nil {
		docs = []docstore.Document{}
	}
	return writeJSON(inv.out, struct {
		Updated   int                 `json:"updated"`
		Result    string              `json:"result"`
		Documents []docstore.Document `json:"documents"`
	}{n, res.Kind().String(), docs})
}

func cmdDelete(ctx context.Context, col *docstore.Collection, inv *invocation) error {
	filter, err := parseObject(inv.args[0])
	if err != nil {
		return err
	}
	n, err := col.Delete(ctx, docstore.Filter(filter))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(inv.out, n)
	return err
}

func cmdKeys(ctx context.Context, col *docstore.Collection, inv *invocation) error {
	keys, err := col.Keys(ctx)
	if err != nil {
		return err
	}
	sort.Strings(keys)
	printLines(inv.out, keys)
	return nil
}

func cmdDrop(ctx context.Context, col *docstore.Collection, inv *invocation) error {
	if inv.all {
		return col.DropDatabase(ctx)
	}
	n, err := col.Drop(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(inv.out, n)
	return err
}

func cmdExport(ctx context.Context, col *docstore.Collection, inv *invocation) error {
	w := inv.out
	if inv.file != "" {
		f, err := os.Create(inv.file)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	n, err := col.Export(ctx, w)
	if err != nil {
		return err
	}
	logger.Info("collection exported", "collection", col.Name(), "documents", n)
	return nil
}

func cmdImport(ctx context.Context, col *docstore.Collection, inv *invocation) error {
	r := inv.in
	if inv.file != "" {
		f, err := os.Open(inv.file)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	ids, err := col.Import(ctx, r)
	logger.Info("collection imported", "collection", col.Name(), "documents", len(ids))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(inv.out, len(ids))
	return err
}

// parseObject decodes a JSON object given on the command line. Numbers
// are kept as written.
func parseObject(s string) (docstore.Document, error) {
	var obj docstore.Document
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("invalid JSON object %q: %w", s, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("invalid JSON object %q: null", s)
	}
	return obj, nil
}

func optionalFilter(args []string) (docstore.Filter, error) {
	if len(args) == 0 {
		return nil, nil
	}
	obj, err := parseObject(args[0])
	if err != nil {
		return nil, err
	}
	return docstore.Filter(obj), nil
}

func writeJSON(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

func printLines(w io.Writer, lines []string) {
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
}
