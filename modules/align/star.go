package align

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// starArgs builds the STAR argument list for a single- or paired-end run.
// The flag set mirrors what the pipeline's containers run in production, so
// test alignments exercise the exact command the pipeline would.
func starArgs(endedness string, fastqs []string, indexDir string, ncpus, ramGB int) ([]string, error) {
	var reads []string
	switch endedness {
	case "single":
		if len(fastqs) != 1 {
			return nil, fmt.Errorf("single-end alignment needs exactly 1 fastq, got %d", len(fastqs))
		}
		reads = []string{fastqs[0]}
	case "paired":
		if len(fastqs) != 2 {
			return nil, fmt.Errorf("paired-end alignment needs exactly 2 fastqs, got %d", len(fastqs))
		}
		reads = []string{fastqs[0], fastqs[1]}
	default:
		return nil, fmt.Errorf("endedness must be 'single' or 'paired', got '%s'", endedness)
	}

	args := []string{"--genomeDir", indexDir, "--readFilesIn"}
	args = append(args, reads...)
	args = append(args,
		"--readFilesCommand", "zcat",
		"--runThreadN", strconv.Itoa(ncpus),
		"--genomeLoad", "NoSharedMemory",
		"--outFilterMultimapNmax", "20",
		"--alignSJoverhangMin", "8",
		"--alignSJDBoverhangMin", "1",
		"--outFilterMismatchNmax", "999",
		"--outFilterMismatchNoverReadLmax", "0.04",
		"--alignIntronMin", "20",
		"--alignIntronMax", "1000000",
		"--alignMatesGapMax", "1000000",
		"--outSAMheaderCommentFile", "COfile.txt",
		"--outSAMheaderHD", "@HD", "VN:1.4", "SO:coordinate",
		"--outSAMunmapped", "Within",
		"--outFilterType", "BySJout",
		"--outSAMattributes", "NH", "HI", "AS", "NM", "MD",
	)
	// Spliced alignment strandedness is only inferable for single-end reads;
	// paired-end runs leave the default.
	if endedness == "single" {
		args = append(args, "--outSAMstrandField", "intronMotif")
	}
	args = append(args,
		"--outSAMtype", "BAM", "SortedByCoordinate",
		"--quantMode", "TranscriptomeSAM",
		"--sjdbScore", "1",
		"--limitBAMsortRAM", fmt.Sprintf("%d000000000", ramGB),
	)
	return args, nil
}

// ExtractFlat unpacks a gzipped tar archive into destDir, flattening member
// paths to their base names. Index archives wrap their files in a top-level
// directory whose name varies; flattening gives a stable layout.
func ExtractFlat(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", archivePath, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("reading gzip stream of %s: %w", archivePath, err)
	}
	defer gz.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading archive %s: %w", archivePath, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		dest := filepath.Join(destDir, filepath.Base(hdr.Name))
		out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(hdr.Mode)&0o777)
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, tr); err != nil {
			out.Close()
			return fmt.Errorf("extracting %s from %s: %w", hdr.Name, archivePath, err)
		}
		if err := out.Close(); err != nil {
			return err
		}
	}
}
