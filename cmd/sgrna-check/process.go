package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/sgrna-check/internal/alignment"
	"github.com/inodb/sgrna-check/internal/annotate"
	"github.com/inodb/sgrna-check/internal/config"
	"github.com/inodb/sgrna-check/internal/duckdb"
	"github.com/inodb/sgrna-check/internal/expression"
	"github.com/inodb/sgrna-check/internal/feature"
	"github.com/inodb/sgrna-check/internal/output"
)

var processFlagKeys = map[string]string{
	"guide_length":          "guide-length",
	"strict_flags":          "strict-flags",
	"workers":               "workers",
	"expression.dir":        "expression-dir",
	"output.summary_format": "summary-format",
	"duckdb.path":           "duckdb",
	"cache.dir":             "gene-cache",
}

func newProcessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process <sample> <gff> <sam> <outdir>",
		Short: "Annotate guide alignments and score guide/gene agreement",
		Long: `Annotate every aligned guide in a SAM file with the gene starting nearest
below its position, then write <sample>_final_df.tsv and a per-sample
summary into <outdir>.`,
		Example: `  sgrna-check process brunello genes.gtf brunello.sam results/
  sgrna-check process brunello GRCh38 brunello.sam results/
  sgrna-check process --workers 0 --duckdb runs.duckdb s1 genes.gtf.gz s1.sam.gz out/
  sgrna-check process --summary-format yaml --expression-dir "" s1 genes.gtf s1.sam out/`,
		Args: exactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bindFlags(cmd.Flags(), processFlagKeys); err != nil {
				return err
			}
			cfg, err := config.Load(viper.GetViper())
			if err != nil {
				return usageError{err}
			}
			job := processJob{
				Sample:  args[0],
				GFFPath: resolveAnnotationPath(args[1]),
				SAMPath: args[2],
				OutDir:  args[3],
			}
			_, err = runProcess(cfg, job, logger)
			return err
		},
	}

	f := cmd.Flags()
	f.Int("guide-length", annotate.DefaultGuideLength, "length of a perfectly aligned guide")
	f.Bool("strict-flags", false, "fail on FLAG bits without a label")
	f.Int("workers", 1, "resolver workers (0 = all CPUs)")
	f.String("expression-dir", "data/TCGA", "directory of expression tables (empty disables)")
	f.String("summary-format", string(output.FormatJSON), "summary format: json, yaml")
	f.String("duckdb", "", "also store results in this DuckDB file")
	f.String("gene-cache", "", "cache parsed genes in this directory")

	return cmd
}

// processJob names the inputs and outputs of one sample.
type processJob struct {
	Sample  string
	GFFPath string
	SAMPath string
	OutDir  string
}

// TSVName returns the annotated table file name.
func (j processJob) TSVName() string {
	return j.Sample + "_final_df.tsv"
}

// SummaryName returns the summary file name for format f.
func (j processJob) SummaryName(f output.Format) string {
	return j.Sample + "_summary" + f.Ext()
}

// runProcess runs one sample end to end. Nothing is written to OutDir
// unless every step succeeds. The DuckDB store is updated last, in one
// transaction, once the files are in place.
func runProcess(cfg config.Config, job processJob, log *zap.Logger) (annotate.MatchSummary, error) {
	var none annotate.MatchSummary

	genes, err := loadGenes(job.GFFPath, cfg.Cache.Dir, log)
	if err != nil {
		return none, err
	}
	idx := feature.BuildIndex(genes)
	log.Info("loaded gene annotation",
		zap.String("path", job.GFFPath),
		zap.Int("genes", idx.GeneCount()),
		zap.Int("chromosomes", len(idx.Chromosomes())))

	records, err := readAlignments(job.SAMPath)
	if err != nil {
		return none, err
	}
	aligned, unaligned := alignment.Split(records)
	log.Info("read alignments",
		zap.String("path", job.SAMPath),
		zap.Int("records", len(records)),
		zap.Int("unaligned", len(unaligned)))

	ann := annotate.NewAnnotator(idx)
	ann.SetLogger(log)
	ann.SetStrictFlags(cfg.StrictFlags)

	var res *annotate.Resolution
	if cfg.Workers == 1 {
		res, err = ann.Resolve(aligned)
	} else {
		res, err = ann.ResolveParallel(aligned, cfg.Workers)
	}
	if err != nil {
		return none, err
	}

	summary := annotate.Classify(res.Alignments, len(records), len(unaligned), cfg.GuideLength)

	expr, err := loadExpression(cfg.Expression, res.Alignments, log)
	if err != nil {
		return none, err
	}

	format := cfg.SummaryFormat()
	staged, err := output.NewStaged(job.OutDir)
	if err != nil {
		return none, err
	}
	defer staged.Abort()

	if err := staged.Write(job.TSVName(), func(w io.Writer) error {
		return output.NewTabWriter(w, expr).WriteAll(res.Alignments)
	}); err != nil {
		return none, fmt.Errorf("writing annotated table: %w", err)
	}
	if err := staged.Write(job.SummaryName(format), func(w io.Writer) error {
		return output.WriteSummary(w, format, map[string]annotate.MatchSummary{job.SAMPath: summary})
	}); err != nil {
		return none, fmt.Errorf("writing summary: %w", err)
	}

	paths, err := staged.Commit()
	if err != nil {
		return none, err
	}
	for _, p := range paths {
		log.Info("wrote output", zap.String("path", p))
	}

	if cfg.DuckDB.Path != "" {
		if err := storeRun(cfg.DuckDB.Path, job, res.Alignments, summary); err != nil {
			return none, err
		}
		log.Info("stored results", zap.String("duckdb", cfg.DuckDB.Path))
	}

	log.Info("run summary",
		zap.String("sample", job.Sample),
		zap.Int("total", summary.Total),
		zap.Int("unaligned", summary.Unaligned),
		zap.Int("aligned", summary.Aligned),
		zap.Int("matched", summary.Matched),
		zap.Int("mismatched", summary.Mismatched),
		zap.Int("indel_affected", summary.IndelAffected),
		zap.Int("unresolved", summary.Unresolved))

	return summary, nil
}

// loadGenes parses the gene annotation, going through the gob cache when
// cacheDir is set.
func loadGenes(gffPath, cacheDir string, log *zap.Logger) ([]feature.Gene, error) {
	loader := feature.NewGFFLoader(gffPath)
	if cacheDir == "" {
		return loader.Load()
	}

	fp, err := duckdb.StatFile(gffPath)
	if err != nil {
		return nil, fmt.Errorf("stat gene annotation: %w", err)
	}
	gc := duckdb.NewGeneCache(cacheDir, gffPath)
	if gc.Valid(fp) {
		genes, err := gc.Load()
		if err == nil {
			log.Debug("loaded genes from cache", zap.String("dir", cacheDir))
			return genes, nil
		}
		log.Warn("gene cache unreadable, reparsing", zap.Error(err))
	}

	genes, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if err := gc.Write(genes, fp); err != nil {
		log.Warn("could not write gene cache", zap.String("dir", cacheDir), zap.Error(err))
	}
	return genes, nil
}

func readAlignments(path string) ([]alignment.Record, error) {
	r, err := alignment.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return alignment.ReadAll(r)
}

// loadExpression loads expression values for the assigned genes. A
// missing directory disables enrichment with a warning.
func loadExpression(cfg config.ExpressionConfig, anns []annotate.AnnotatedAlignment, log *zap.Logger) (*expression.Matrix, error) {
	if cfg.Dir == "" {
		return nil, nil
	}

	genes := make(map[string]bool)
	for i := range anns {
		if anns[i].Assigned.IsAssigned() {
			genes[anns[i].Assigned.Gene] = true
		}
	}

	loader := expression.NewLoader(cfg.GeneColumn, cfg.ValueColumn)
	loader.SetLogger(log)
	m, err := loader.LoadDir(cfg.Dir, genes)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn("expression directory not found, skipping enrichment", zap.String("dir", cfg.Dir))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	log.Info("loaded expression tables", zap.String("dir", cfg.Dir), zap.Int("samples", len(m.Samples)))
	return m, nil
}

func storeRun(path string, job processJob, anns []annotate.AnnotatedAlignment, summary annotate.MatchSummary) error {
	fp, err := duckdb.StatFile(job.SAMPath)
	if err != nil {
		return fmt.Errorf("stat alignments: %w", err)
	}
	store, err := duckdb.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	return store.WriteRun(job.Sample, fp, anns, summary)
}
