package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"go.uber.org/zap"
)

// GENCODE FTP release used for gene annotations
const (
	gencodeBaseURL = "https://ftp.ebi.ac.uk/pub/databases/gencode/Gencode_human/release_46"
	gencodeVersion = "v46"
)

// gencodeGTFURL returns the gene annotation URL for the given assembly.
func gencodeGTFURL(assembly string) (string, error) {
	switch strings.ToUpper(assembly) {
	case "GRCH37":
		return fmt.Sprintf("%s/GRCh37_mapping/gencode.%slift37.basic.annotation.gtf.gz", gencodeBaseURL, gencodeVersion), nil
	case "GRCH38":
		return fmt.Sprintf("%s/gencode.%s.basic.annotation.gtf.gz", gencodeBaseURL, gencodeVersion), nil
	}
	return "", fmt.Errorf("unknown assembly %q (want GRCh37 or GRCh38)", assembly)
}

// defaultAnnotationDir returns ~/.sgrna-check/<assembly>.
func defaultAnnotationDir(assembly string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, configName, strings.ToLower(assembly))
}

// resolveAnnotationPath maps an assembly name given in place of a GFF path
// to the downloaded GENCODE file. Anything else is returned unchanged.
func resolveAnnotationPath(arg string) string {
	if _, err := os.Stat(arg); err == nil {
		return arg
	}
	if _, err := gencodeGTFURL(arg); err != nil {
		return arg
	}
	dir := defaultAnnotationDir(arg)
	if dir == "" {
		return arg
	}
	matches, err := filepath.Glob(filepath.Join(dir, "gencode.v*.annotation.gtf.gz"))
	if err != nil || len(matches) == 0 {
		return arg
	}
	return matches[0]
}

func newDownloadCmd() *cobra.Command {
	var (
		assembly  string
		outputDir string
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download the GENCODE gene annotation",
		Long: `Download the GENCODE basic gene annotation for an assembly. Once
downloaded, "process" accepts the assembly name in place of a GFF path.`,
		Example: `  sgrna-check download
  sgrna-check download --assembly GRCh37
  sgrna-check download --output /data/gencode`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := gencodeGTFURL(assembly)
			if err != nil {
				return usageError{err}
			}
			destDir := outputDir
			if destDir == "" {
				if destDir = defaultAnnotationDir(assembly); destDir == "" {
					return fmt.Errorf("cannot determine home directory")
				}
			}
			if err := os.MkdirAll(destDir, 0755); err != nil {
				return fmt.Errorf("cannot create directory %s: %w", destDir, err)
			}

			client := &http.Client{Timeout: 30 * time.Minute}
			dest := filepath.Join(destDir, filepath.Base(url))
			if err := downloadFile(client, url, dest, cmd.ErrOrStderr(), logger); err != nil {
				return fmt.Errorf("downloading GENCODE annotation: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Annotation ready: %s\n", dest)
			return nil
		},
	}

	cmd.Flags().StringVar(&assembly, "assembly", "GRCh38", "genome assembly: GRCh37 or GRCh38")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (default ~/"+configName+"/<assembly>)")

	return cmd
}

// downloadFile fetches url into destPath through a temp file. An existing
// destPath is kept. A progress bar is drawn on progress when it is not nil.
func downloadFile(client *http.Client, url, destPath string, progress io.Writer, log *zap.Logger) error {
	if info, err := os.Stat(destPath); err == nil {
		log.Info("already downloaded, skipping",
			zap.String("path", destPath),
			zap.String("size", formatSize(info.Size())))
		return nil
	}

	log.Info("downloading", zap.String("url", url))
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: %s", resp.Status)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	var (
		body io.Reader = resp.Body
		pbs  *mpb.Progress
		bar  *mpb.Bar
	)
	if progress != nil {
		pbs = mpb.New(mpb.WithWidth(40), mpb.WithOutput(progress))
		bar = pbs.AddBar(resp.ContentLength,
			mpb.PrependDecorators(
				decor.Name(filepath.Base(destPath)+" ", decor.WC{C: decor.DindentRight}),
				decor.CountersKibiByte("% .1f / % .1f", decor.WCSyncWidth),
			),
			mpb.AppendDecorators(
				decor.EwmaETA(decor.ET_STYLE_GO, 30),
				decor.OnComplete(decor.Name(""), " done"),
			),
		)
		proxy := bar.ProxyReader(resp.Body)
		defer proxy.Close()
		body = proxy
	}

	n, err := io.Copy(f, body)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close %s: %w", tmpPath, cerr)
	}
	if pbs != nil {
		if err != nil {
			bar.Abort(false)
		} else {
			bar.SetTotal(-1, true)
		}
		pbs.Wait()
	}
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("download failed: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename file: %w", err)
	}

	log.Info("download complete",
		zap.String("path", destPath),
		zap.String("size", formatSize(n)))
	return nil
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
