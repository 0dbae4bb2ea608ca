package importer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/conorfennell/molcards/internal/domain"
	"github.com/conorfennell/molcards/internal/gitsource"
	"github.com/conorfennell/molcards/internal/library"
	"github.com/conorfennell/molcards/internal/tabular"
)

// IsGitURL reports whether source names a remote git repository. A path
// that exists locally is never a URL, even when it ends in ".git".
func IsGitURL(source string) bool {
	if _, err := os.Stat(source); err == nil {
		return false
	}
	return strings.HasSuffix(source, ".git") ||
		strings.HasPrefix(source, "git@") ||
		strings.HasPrefix(source, "https://") ||
		strings.HasPrefix(source, "http://")
}

// ImportSource merges the molecules found at source into lib. A source is a
// CSV/XLSX file, a directory walked for such files, or a git repository that
// is cloned (or pulled) under reposDir first.
func ImportSource(ctx context.Context, lib *library.Library, source, reposDir string) (library.ImportReport, error) {
	path := source
	if IsGitURL(source) {
		localPath, err := gitURLToLocalPath(reposDir, source)
		if err != nil {
			return library.ImportReport{}, err
		}
		if err := gitsource.Sync(ctx, source, localPath); err != nil {
			return library.ImportReport{}, err
		}
		path = localPath
	}

	molecules, err := collect(path)
	if err != nil {
		return library.ImportReport{}, err
	}
	report, err := lib.ImportMolecules(ctx, molecules)
	if err != nil {
		return library.ImportReport{}, err
	}
	slog.Info("Source imported", "source", source, "added", report.Added)
	return report, nil
}

// collect parses every table under path. Any parse failure aborts the whole
// import so the store is never partially updated.
func collect(path string) ([]domain.Molecule, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("import source %s: %w", path, err)
	}
	if !info.IsDir() {
		return tabular.ParseFile(path)
	}

	var molecules []domain.Molecule
	var parseErrors []error
	files := 0

	walkErr := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if _, err := tabular.FormatFromName(d.Name()); err != nil {
			return nil
		}
		files++
		fileMolecules, parseErr := tabular.ParseFile(p)
		if parseErr != nil {
			parseErrors = append(parseErrors, fmt.Errorf("parsing %s: %w", p, parseErr))
			return nil
		}
		molecules = append(molecules, fileMolecules...)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walking %s: %w", path, walkErr)
	}
	if len(parseErrors) > 0 {
		return nil, errors.Join(parseErrors...)
	}

	slog.Debug("Source scanned", "path", path, "files", files, "molecules", len(molecules))
	return molecules, nil
}

func gitURLToLocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil || (parsedURL.Scheme != "https" && parsedURL.Scheme != "http") {
		if strings.Contains(repoURL, "@") {
			parts := strings.Split(repoURL, ":")
			if len(parts) == 2 {
				hostAndUser := strings.Split(parts[0], "@")
				if len(hostAndUser) == 2 {
					host := hostAndUser[1]
					repoPath := strings.TrimSuffix(parts[1], ".git")
					return safeJoin(baseDir, host, repoPath)
				}
			}
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	sanitizedPath := strings.TrimSuffix(parsedURL.Path, ".git")
	return safeJoin(baseDir, parsedURL.Host, sanitizedPath)
}

// safeJoin keeps clone targets inside baseDir.
func safeJoin(baseDir string, elems ...string) (string, error) {
	joined := filepath.Join(append([]string{baseDir}, elems...)...)
	rel, err := filepath.Rel(baseDir, joined)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("git URL escapes repository directory: %s", filepath.Join(elems...))
	}
	return joined, nil
}
