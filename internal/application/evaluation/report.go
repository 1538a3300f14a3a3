package evaluation

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/sapogeth/qylysh-higgsfiled/internal/domain/entity"
	apperrors "github.com/sapogeth/qylysh-higgsfiled/pkg/errors"
)

// WriteReport 以缩进 UTF-8 JSON 写出各生成方指标，顶层键为生成方名称
func WriteReport(path string, report entity.ComparisonReport) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.Wrap(err, apperrors.CodeStorageError, "create report dir")
	}

	comparisons := report.Comparisons
	if comparisons == nil {
		comparisons = map[string]entity.QualityMetrics{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(comparisons); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternalError, "encode comparison report")
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return apperrors.Wrap(err, apperrors.CodeStorageError, "write comparison report").WithDetail(path)
	}
	return nil
}
