package position

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	fixzip "github.com/hidez8891/zip"
	"go.uber.org/zap"

	"slidefit/misc"
	"slidefit/state"
)

// processArchiveBundle processes deck documents inside the source archive and
// writes a new archive to dst: processed entries are replaced, new assets are
// added and everything else is carried over untouched.
func processArchiveBundle(ctx context.Context, src, pathIn, dst string, log *zap.Logger) error {
	env := state.EnvFromContext(ctx)

	tmpDir, err := os.MkdirTemp("", misc.GetAppName()+"-bundle-")
	if err != nil {
		return fmt.Errorf("unable to create temporary directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	if err := processArchive(ctx, src, pathIn, "", tmpDir, log); err != nil {
		return err
	}

	if _, err := os.Stat(dst); err == nil {
		if !env.Overwrite {
			return fmt.Errorf("output file already exists: %s", dst)
		}
		log.Warn("Overwriting existing file", zap.String("file", dst))
	} else if !os.IsNotExist(err) {
		return err
	} else if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	return rewriteBundle(src, tmpDir, dst, log)
}

// rewriteBundle copies the source archive to dst replacing entries that were
// produced under tmpDir. Untouched entries are copied raw, without
// recompression; data descriptor flags are dropped along the way since some
// consumers choke on them.
func rewriteBundle(src, tmpDir, dst string, log *zap.Logger) error {
	produced, err := collectProduced(tmpDir)
	if err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("unable to create target file (%s): %w", dst, err)
	}
	defer out.Close()

	r, err := fixzip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("unable to read archive file (%s): %w", src, err)
	}
	defer r.Close()

	w := fixzip.NewWriter(out)
	defer w.Close()

	used := make(map[string]bool)
	for _, file := range r.File {
		path, ok := produced[file.Name]
		if !ok {
			// unset data descriptor flag.
			file.Flags &= ^fixzip.FlagDataDescriptor

			// copy zip entry
			if err := w.CopyFile(file); err != nil {
				return fmt.Errorf("unable to write target file (%s): %w", dst, err)
			}
			continue
		}
		used[file.Name] = true
		if err := writeBundleEntry(w, file.Name, path); err != nil {
			return err
		}
		log.Debug("Replaced bundle entry", zap.String("entry", file.Name))
	}

	// anything produced that did not replace an existing entry (rasterized
	// SVG output, decks renamed by the output template) is appended
	for name, path := range produced {
		if used[name] {
			continue
		}
		if err := writeBundleEntry(w, name, path); err != nil {
			return err
		}
		log.Debug("Added bundle entry", zap.String("entry", name))
	}
	return nil
}

func collectProduced(tmpDir string) (map[string]string, error) {
	produced := make(map[string]string)
	err := filepath.WalkDir(tmpDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(tmpDir, path)
		if err != nil {
			return err
		}
		produced[strings.ReplaceAll(rel, string(filepath.Separator), "/")] = path
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to collect processed entries: %w", err)
	}
	return produced, nil
}

func writeBundleEntry(w *fixzip.Writer, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("unable to open processed entry (%s): %w", path, err)
	}
	defer f.Close()

	fw, err := w.Create(name)
	if err != nil {
		return fmt.Errorf("unable to create bundle entry (%s): %w", name, err)
	}
	if _, err := io.Copy(fw, f); err != nil {
		return fmt.Errorf("unable to write bundle entry (%s): %w", name, err)
	}
	return nil
}
