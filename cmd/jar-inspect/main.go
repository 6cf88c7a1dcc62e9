package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"swear-jar/domain"
	"swear-jar/infrastructure/storage"
	"swear-jar/services"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"
)

type Config struct {
	BadgerFilepath string  `envconfig:"BADGER_FILEPATH" default:"./data/ledger"`
	UnitRate       float64 `envconfig:"UNIT_RATE" default:"0.069"`
	CurrencySymbol string  `envconfig:"CURRENCY_SYMBOL" default:"£"`
	// JAR_INSPECT_COLOURS colorizes the table header
	Colours bool `envconfig:"JAR_INSPECT_COLOURS" default:"true"`
}

func main() {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(2)
	}

	app := cli.App{
		Name:  "jar-inspect",
		Usage: "read-only inspection of the swear jar ledger",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db",
				Usage:   "path to the Badger ledger",
				Value:   cfg.BadgerFilepath,
				EnvVars: []string{"BADGER_FILEPATH"},
			},
		},
	}
	app.Commands = []*cli.Command{
		{
			Name:  "list",
			Usage: "every ledger entry in key order",
			Action: func(cctx *cli.Context) error {
				return withDB(cctx, func(db *badger.DB) error {
					entries, err := readEntries(db)
					if err != nil {
						return err
					}
					renderEntries(os.Stdout, cfg, entries)
					return nil
				})
			},
		},
		{
			Name:  "top",
			Usage: "the k naughtiest participants",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "k", Usage: "number of entries", Value: 10},
			},
			Action: func(cctx *cli.Context) error {
				return withDB(cctx, func(db *badger.DB) error {
					entries, err := storage.NewBadgerLedgerRepository(db, logs.GetLoggerFromString("ERROR")).TopK(cctx.Context, cctx.Int("k"))
					if err != nil {
						return err
					}
					renderEntries(os.Stdout, cfg, entries)
					return nil
				})
			},
		},
		{
			Name:      "get",
			Usage:     "the count of one participant",
			ArgsUsage: "<participant-id>",
			Action: func(cctx *cli.Context) error {
				participant := cctx.Args().First()
				if participant == "" {
					return fmt.Errorf("need to provide a participant id as an argument")
				}
				return withDB(cctx, func(db *badger.DB) error {
					count, err := storage.NewBadgerLedgerRepository(db, logs.GetLoggerFromString("ERROR")).Get(cctx.Context, domain.ParticipantID(participant))
					if err != nil {
						return err
					}
					renderEntries(os.Stdout, cfg, []domain.LedgerEntry{{Participant: domain.ParticipantID(participant), Count: count}})
					return nil
				})
			},
		},
	}
	app.RunAndExitOnError()
}

func withDB(cctx *cli.Context, fn func(db *badger.DB) error) error {
	db, err := openDB(cctx.String("db"))
	if err != nil {
		return fmt.Errorf("error while opening Badger: %w", err)
	}
	defer db.Close()
	return fn(db)
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)
	return badger.Open(opts)
}

// readEntries scans the ledger prefix. Undecodable values are reported and skipped.
func readEntries(db *badger.DB) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(storage.LedgerPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := string(item.Key())
			err := item.Value(func(v []byte) error {
				count, err := storage.DecodeCount(v)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error decoding key %s: %v\n", key, err)
					return nil
				}
				entries = append(entries, domain.LedgerEntry{
					Participant: domain.ParticipantID(key[len(prefix):]),
					Count:       count,
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return entries, err
}

func renderEntries(w io.Writer, cfg Config, entries []domain.LedgerEntry) {
	header := []string{"Participant", "Count", "Owed"}
	if cfg.Colours {
		for i, h := range header {
			header[i] = color.New(color.FgGreen, color.OpBold).Render(h)
		}
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	report := services.NewLeaderboardReport(entries, nil, cfg.UnitRate)
	for _, l := range report.Lines {
		table.Append([]string{
			string(l.Participant),
			strconv.FormatUint(l.Count, 10),
			cfg.CurrencySymbol + strconv.FormatFloat(l.Owed, 'f', 2, 64),
		})
	}
	table.SetFooter([]string{"", "Total", cfg.CurrencySymbol + strconv.FormatFloat(report.Total, 'f', 2, 64)})
	table.Render()
}
