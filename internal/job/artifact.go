package job

import (
	"path/filepath"
	"strings"
)

// DefaultResultSuffix is appended to the source base name by the bundled worker.
const DefaultResultSuffix = "_说话人识别结果"

// ArtifactPath derives the result file the worker writes for source:
// the source path without its extension, then suffix, then ".json".
func ArtifactPath(source, suffix string) string {
	return strings.TrimSuffix(source, filepath.Ext(source)) + suffix + ".json"
}
