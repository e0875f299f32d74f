package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wherewasi/wherewasi/internal/archive"
	"github.com/wherewasi/wherewasi/internal/model"
	"github.com/wherewasi/wherewasi/internal/store"
)

var (
	importSource      string
	importConcurrency int
)

var importCmd = &cobra.Command{
	Use:   "import <archive.json> [archive.json...]",
	Short: "Import location archives into the store",
	Long: `Import decodes location-history archives (Google Takeout JSON) and
stores their points. Each file becomes one import with its own ID.
Records without a usable timestamp or with out-of-range coordinates
are counted as skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("import"); err != nil {
			return err
		}

		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(importConcurrency)
		for _, path := range args {
			g.Go(func() error {
				imp, err := importFile(ctx, st, path, importSource, cfg.Import.BatchSize)
				if err != nil {
					return err
				}
				zap.L().Info("archive imported",
					zap.String("id", imp.ID),
					zap.String("source", imp.Source),
					zap.Int64("points", imp.Points),
					zap.Int64("skipped", imp.Skipped))
				return nil
			})
		}
		return g.Wait()
	},
}

func init() {
	importCmd.Flags().StringVar(&importSource, "source", "", "source label stored with the import (default: file name)")
	importCmd.Flags().IntVar(&importConcurrency, "concurrency", 2, "archives to import in parallel")
	rootCmd.AddCommand(importCmd)
}

// importFile streams one archive into a fresh import, flushing points
// in batches of batchSize. The returned import is the finished row.
func importFile(ctx context.Context, st store.Store, path, source string, batchSize int) (*store.Import, error) {
	if source == "" {
		source = filepath.Base(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open archive %s", path)
	}
	defer f.Close()

	imp, err := st.CreateImport(ctx, source)
	if err != nil {
		return nil, err
	}

	records, errs := archive.Stream(ctx, f)

	var (
		batch   []model.Point
		points  int64
		skipped int64
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := st.AddPoints(ctx, imp.ID, batch)
		if err != nil {
			return err
		}
		points += n
		batch = batch[:0]
		return nil
	}

	for rec := range records {
		p, ok := rec.Point()
		if !ok || !p.CoordsValid() {
			skipped++
			continue
		}
		batch = append(batch, p)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := <-errs; err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}

	if err := st.FinishImport(ctx, imp.ID, points, skipped); err != nil {
		return nil, err
	}
	return st.GetImport(ctx, imp.ID)
}
