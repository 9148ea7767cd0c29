package sheet

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Stage copies src into dir as recommendations_<timestamp>.xlsx and returns
// the new path. The staged copy is the run's transient artifact.
func Stage(src, dir string, now time.Time) (string, error) {
	switch strings.ToLower(filepath.Ext(src)) {
	case ".xlsx", ".xlsm":
	default:
		return "", fmt.Errorf("invalid file format %q: expected an Excel workbook (.xlsx)", filepath.Ext(src))
	}
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	dst := filepath.Join(dir, "recommendations_"+now.Format("20060102_150405")+".xlsx")
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return "", err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return "", err
	}
	return dst, nil
}
