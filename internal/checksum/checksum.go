// Package checksum verifies pipeline outputs against stored reference md5
// values. A metadata JSON maps output keys to produced files; a reference
// JSON maps the same keys to expected md5 hex digests. Comparing a selected
// set of keys yields a flat result with per-key match status and an overall
// boolean, which is the sole input to a verification job's pass/fail decision.
package checksum

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
)

// KeyResult records the comparison outcome for a single output key.
type KeyResult struct {
	Reference string `json:"reference_md5"`
	Observed  string `json:"observed_md5"`
	Match     bool   `json:"match"`
}

// Result is the flat comparison artifact written for a verification job.
type Result struct {
	Keys         map[string]KeyResult `json:"keys"`
	MatchOverall bool                 `json:"match_overall"`
}

// MismatchedKeys returns the sorted keys that did not match.
func (r Result) MismatchedKeys() []string {
	var keys []string
	for k, kr := range r.Keys {
		if !kr.Match {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// FileMD5 returns the md5 hex digest of the file at path.
func FileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Compare checks the given keys. metadata maps keys to produced file paths;
// reference maps keys to expected md5 hex digests. A key missing from either
// side, or a file that cannot be hashed, counts as a mismatch rather than an
// error so one bad output does not mask the status of the others.
func Compare(metadata, reference map[string]string, keys []string) Result {
	result := Result{
		Keys:         make(map[string]KeyResult, len(keys)),
		MatchOverall: true,
	}

	for _, key := range keys {
		kr := KeyResult{}
		if ref, ok := reference[key]; ok {
			kr.Reference = ref
		}
		if path, ok := metadata[key]; ok {
			if observed, err := FileMD5(path); err == nil {
				kr.Observed = observed
			}
		}
		kr.Match = kr.Reference != "" && kr.Reference == kr.Observed
		if !kr.Match {
			result.MatchOverall = false
		}
		result.Keys[key] = kr
	}
	return result
}

// CompareFiles loads the metadata and reference JSON documents and compares
// the given keys. With no keys given, every key in the reference is checked.
func CompareFiles(metadataPath, referencePath string, keys []string) (Result, error) {
	metadata, err := readStringMap(metadataPath)
	if err != nil {
		return Result{}, err
	}
	reference, err := readStringMap(referencePath)
	if err != nil {
		return Result{}, err
	}

	if len(keys) == 0 {
		for k := range reference {
			keys = append(keys, k)
		}
		sort.Strings(keys)
	}
	return Compare(metadata, reference, keys), nil
}

// WriteResult writes the result artifact as indented JSON.
func WriteResult(path string, result Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing result to %s: %w", path, err)
	}
	return nil
}

// readStringMap decodes a flat JSON object of string values.
func readStringMap(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	out := make(map[string]string)
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return out, nil
}
